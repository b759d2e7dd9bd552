package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchbaselabs/identitystore/internal/auth"
	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/couchbaselabs/identitystore/internal/config"
	"github.com/couchbaselabs/identitystore/internal/logging"
	"github.com/couchbaselabs/identitystore/internal/roles"
	"github.com/couchbaselabs/identitystore/internal/server"
	"github.com/couchbaselabs/identitystore/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "identity-api",
		Short: "Identity store service for users, roles and external logins",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newGrantRoleCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("store-backend", defaults.GetString("store.backend"), "Document store backend (sqlite, redis)")
	cmd.PersistentFlags().String("bucket-name", defaults.GetString("bucket.name"), "Bucket holding identity documents")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Access token TTL in minutes")
	cmd.PersistentFlags().Bool("refresh-mirror-keys", defaults.GetBool("identity.refresh_mirror_keys"), "Rewrite username and email keys on update")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Access token signing secret (overrides env)")
	cmd.PersistentFlags().String("admin-role", defaults.GetString("auth.admin_role"), "Role allowed to manage roles and other users")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "store.backend", "store-backend")
	bindFlag(cmd, "bucket.name", "bucket-name")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "identity.refresh_mirror_keys", "refresh-mirror-keys")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.admin_role", "admin-role")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
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

	handler, err := buildHandler(appConfig, store, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("backend", appConfig.StoreBackend),
			zap.String("bucket", store.Name()))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildStores wraps store and constructs the user and role stores over it.
func buildStores(appConfig config.AppConfig, store bucket.Bucket, logger *zap.Logger) (*users.UserStore, *roles.RoleStore, error) {
	wrapped, err := bucket.NewThrowableBucket(bucket.Config{
		Bucket:      store,
		FanoutLimit: appConfig.FanoutLimit,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	userStore, err := users.NewUserStore(users.UserStoreConfig{
		Bucket:            wrapped,
		IDProvider:        users.NewUUIDProvider(),
		Clock:             time.Now,
		Logger:            logger,
		RefreshMirrorKeys: appConfig.RefreshMirrorKeys,
	})
	if err != nil {
		return nil, nil, err
	}

	roleStore, err := roles.NewRoleStore(roles.RoleStoreConfig{Bucket: wrapped, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return userStore, roleStore, nil
}

// buildHandler wires the identity stores and token services over store.
func buildHandler(appConfig config.AppConfig, store bucket.Bucket, logger *zap.Logger) (http.Handler, error) {
	userStore, roleStore, err := buildStores(appConfig, store, logger)
	if err != nil {
		return nil, err
	}

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.TokenIssuer,
		Audience:      appConfig.TokenAudience,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	return server.NewHTTPHandler(server.Dependencies{
		Users:     userStore,
		Roles:     roleStore,
		Tokens:    tokenManager,
		Passwords: auth.NewPasswordHasher(0),
		Lockout: server.LockoutPolicy{
			MaxFailedAttempts: appConfig.MaxFailedAttempts,
			Duration:          appConfig.LockoutDuration,
		},
		Clock:     time.Now,
		Logger:    logger,
		AdminRole: appConfig.AdminRole,
	})
}
