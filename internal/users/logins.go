package users

import (
	"context"
	"fmt"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"go.uber.org/zap"
)

// AddLogin stores the association document for login and then rewrites the user with
// the new login key.
func (s *UserStore) AddLogin(ctx context.Context, user *User, login LoginInfo) error {
	if user == nil {
		return ErrInvalidUser
	}
	if err := validateLogin(login); err != nil {
		return err
	}
	key := LoginKey(login)
	association := LoginAssociation{
		Type:          documentTypeLogin,
		LoginProvider: normalize(login.LoginProvider),
		ProviderKey:   normalize(login.ProviderKey),
		UserID:        user.ID,
	}
	if err := s.bucket.Create(ctx, key, association); err != nil {
		s.logError(opAddLogin, "association_write_failed", err,
			zap.String("user_id", user.ID),
			zap.String("login_key", key))
		return err
	}
	if !containsKey(user.LoginKeys, key) {
		user.LoginKeys = append(user.LoginKeys, key)
	}
	return s.Update(ctx, user)
}

// RemoveLogin deletes the association document and rewrites the user without it.
func (s *UserStore) RemoveLogin(ctx context.Context, user *User, login LoginInfo) error {
	if user == nil {
		return ErrInvalidUser
	}
	if err := validateLogin(login); err != nil {
		return err
	}
	key := LoginKey(login)
	if !containsKey(user.LoginKeys, key) {
		return ErrUnknownLogin
	}
	if err := s.bucket.Remove(ctx, key); err != nil {
		s.logError(opRemoveLogin, "association_remove_failed", err,
			zap.String("user_id", user.ID),
			zap.String("login_key", key))
		return err
	}
	remaining := user.LoginKeys[:0]
	for _, existing := range user.LoginKeys {
		if existing != key {
			remaining = append(remaining, existing)
		}
	}
	user.LoginKeys = remaining
	return s.Update(ctx, user)
}

// GetLogins loads every association referenced by the user. Dangling keys are skipped.
func (s *UserStore) GetLogins(ctx context.Context, user *User) ([]LoginInfo, error) {
	if user == nil {
		return nil, ErrInvalidUser
	}
	if len(user.LoginKeys) == 0 {
		return []LoginInfo{}, nil
	}
	lookups, err := bucket.GetAll[LoginAssociation](ctx, s.bucket, user.LoginKeys)
	if err == nil {
		err = bucket.FirstError(lookups)
	}
	if err != nil {
		s.logError(opGetLogins, "association_load_failed", err, zap.String("user_id", user.ID))
		return nil, err
	}
	logins := make([]LoginInfo, 0, len(lookups))
	for _, lookup := range lookups {
		if !lookup.Found {
			continue
		}
		logins = append(logins, LoginInfo{
			LoginProvider: lookup.Value.LoginProvider,
			ProviderKey:   lookup.Value.ProviderKey,
		})
	}
	return logins, nil
}

// FindByLogin resolves the association document and loads the linked user.
func (s *UserStore) FindByLogin(ctx context.Context, login LoginInfo) (*User, error) {
	if err := validateLogin(login); err != nil {
		return nil, err
	}
	var association LoginAssociation
	found, err := s.bucket.GetTyped(ctx, LoginKey(login), documentTypeLogin, &association)
	if err != nil {
		return nil, err
	}
	if !found || normalize(association.UserID) == "" {
		return nil, nil
	}
	return s.FindByID(ctx, association.UserID)
}

func validateLogin(login LoginInfo) error {
	if normalize(login.LoginProvider) == "" || normalize(login.ProviderKey) == "" {
		return fmt.Errorf("%w: login provider and key are required", ErrInvalidKey)
	}
	return nil
}
