package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/couchbaselabs/identitystore/internal/config"
	"github.com/couchbaselabs/identitystore/internal/logging"
	"github.com/couchbaselabs/identitystore/internal/roles"
	"github.com/couchbaselabs/identitystore/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errUnknownUser = errors.New("user not found")

func newGrantRoleCommand() *cobra.Command {
	var userName, roleName string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Add a role to a user directly in the store, creating the role when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantRole(cmd.Context(), userName, roleName)
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "User name to grant the role to")
	cmd.Flags().StringVar(&roleName, "role", "", "Role name (defaults to the configured admin role)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runGrantRole(ctx context.Context, userName, roleName string) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if strings.TrimSpace(roleName) == "" {
		roleName = appConfig.AdminRole
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store, closeStore, err := openBucket(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	userStore, roleStore, err := buildStores(appConfig, store, logger)
	if err != nil {
		return err
	}
	if err := grantRole(ctx, userStore, roleStore, userName, roleName); err != nil {
		return err
	}
	logger.Info("role granted", zap.String("user_name", userName), zap.String("role", roleName))
	return nil
}

// grantRole ensures a role named roleName exists and adds it to the user.
func grantRole(ctx context.Context, userStore *users.UserStore, roleStore *roles.RoleStore, userName, roleName string) error {
	user, err := userStore.FindByName(ctx, userName)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: %q", errUnknownUser, userName)
	}

	role, err := roleStore.FindByName(ctx, roleName)
	if bucket.IsKeyNotFound(err) {
		role = roles.NewRole(roleName)
		err = roleStore.Create(ctx, role)
	}
	if err != nil {
		return err
	}

	if err := userStore.AddToRole(user, role.Name); err != nil {
		return err
	}
	return userStore.Update(ctx, user)
}
