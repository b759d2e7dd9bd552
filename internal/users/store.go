package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"go.uber.org/zap"
)

var (
	// ErrInvalidUser indicates that a nil user was supplied.
	ErrInvalidUser = errors.New("users: user is required")
	// ErrInvalidKey indicates that an id, name, email or login was blank.
	ErrInvalidKey = errors.New("users: key is required")
	// ErrUnknownLogin indicates that the user holds no association for the login.
	ErrUnknownLogin = errors.New("users: login not associated with user")

	errMissingBucket     = errors.New("users: bucket is required")
	errMissingIDProvider = errors.New("users: id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opCreate      = "users.create"
	opUpdate      = "users.update"
	opDelete      = "users.delete"
	opFindByID    = "users.find_by_id"
	opAddLogin    = "users.add_login"
	opRemoveLogin = "users.remove_login"
	opGetLogins   = "users.get_logins"
)

// UserStoreConfig describes the dependencies of a UserStore.
type UserStoreConfig struct {
	Bucket     *bucket.ThrowableBucket
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
	// RefreshMirrorKeys makes Update rewrite the username and email keys when those
	// fields changed. When false, Update only replaces the id key and stale mirrors stay.
	RefreshMirrorKeys bool
}

// UserStore persists users under their id and mirrors the username and email keys
// to the id.
type UserStore struct {
	bucket            *bucket.ThrowableBucket
	idProvider        IDProvider
	clock             func() time.Time
	logger            *zap.Logger
	refreshMirrorKeys bool
}

// NewUserStore constructs a UserStore over a wrapped bucket.
func NewUserStore(cfg UserStoreConfig) (*UserStore, error) {
	if cfg.Bucket == nil {
		return nil, errMissingBucket
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &UserStore{
		bucket:            cfg.Bucket,
		idProvider:        cfg.IDProvider,
		clock:             clock,
		logger:            logger,
		refreshMirrorKeys: cfg.RefreshMirrorKeys,
	}, nil
}

// Create assigns an id when missing and writes the id, email and username keys in
// parallel. Keys written before a sibling write failed are left in place.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if user == nil {
		return ErrInvalidUser
	}
	if normalize(user.UserName) == "" {
		return fmt.Errorf("%w: empty user name", ErrInvalidKey)
	}
	if normalize(user.ID) == "" {
		id, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err)
			return err
		}
		user.ID = id
	}
	user.ID = normalize(user.ID)
	user.Type = documentTypeUser

	steps := []bucket.Step{{
		Key: user.ID,
		Run: func(ctx context.Context) error {
			return s.bucket.Create(ctx, user.ID, user)
		},
	}}
	for _, mirror := range user.mirrorKeys() {
		steps = append(steps, bucket.Step{
			Key: mirror,
			Run: func(ctx context.Context) error {
				return s.bucket.Create(ctx, mirror, user.ID)
			},
		})
	}

	applied, err := s.bucket.Parallel(ctx, steps...)
	if err != nil {
		s.logError(opCreate, "key_write_failed", err,
			zap.String("user_id", user.ID),
			zap.Strings("applied_keys", applied))
		return err
	}
	return nil
}

// Update replaces the document stored under the user id.
func (s *UserStore) Update(ctx context.Context, user *User) error {
	if user == nil {
		return ErrInvalidUser
	}
	if normalize(user.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidKey)
	}
	user.Type = documentTypeUser

	if !s.refreshMirrorKeys {
		if err := s.bucket.Update(ctx, user.ID, user); err != nil {
			s.logError(opUpdate, "replace_failed", err, zap.String("user_id", user.ID))
			return err
		}
		return nil
	}

	var stored User
	found, err := s.bucket.GetTyped(ctx, user.ID, documentTypeUser, &stored)
	if err != nil {
		s.logError(opUpdate, "load_failed", err, zap.String("user_id", user.ID))
		return err
	}
	if !found {
		return &bucket.StoreError{Status: bucket.StatusKeyNotFound, Key: user.ID}
	}
	if err := s.bucket.Update(ctx, user.ID, user); err != nil {
		s.logError(opUpdate, "replace_failed", err, zap.String("user_id", user.ID))
		return err
	}
	return s.refreshMirrors(ctx, &stored, user)
}

// refreshMirrors creates indirection keys that the updated user gained and removes the
// ones it lost.
func (s *UserStore) refreshMirrors(ctx context.Context, stored, updated *User) error {
	previous := stored.mirrorKeys()
	current := updated.mirrorKeys()

	steps := make([]bucket.Step, 0, len(previous)+len(current))
	for _, key := range current {
		if containsKey(previous, key) {
			continue
		}
		steps = append(steps, bucket.Step{
			Key: key,
			Run: func(ctx context.Context) error {
				return s.bucket.Create(ctx, key, updated.ID)
			},
		})
	}
	for _, key := range previous {
		if containsKey(current, key) {
			continue
		}
		steps = append(steps, bucket.Step{
			Key: key,
			Run: func(ctx context.Context) error {
				return s.bucket.Remove(ctx, key)
			},
		})
	}
	if len(steps) == 0 {
		return nil
	}

	applied, err := s.bucket.Parallel(ctx, steps...)
	if err != nil {
		s.logError(opUpdate, "mirror_refresh_failed", err,
			zap.String("user_id", updated.ID),
			zap.Strings("applied_keys", applied))
		return err
	}
	return nil
}

// Delete removes the username, email and id keys in parallel. Keys removed before a
// sibling removal failed stay removed.
func (s *UserStore) Delete(ctx context.Context, user *User) error {
	if user == nil {
		return ErrInvalidUser
	}
	if normalize(user.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidKey)
	}

	keys := user.mirrorKeys()
	if id := normalize(user.ID); !containsKey(keys, id) {
		keys = append(keys, id)
	}
	steps := make([]bucket.Step, 0, len(keys))
	for _, key := range keys {
		steps = append(steps, bucket.Step{
			Key: key,
			Run: func(ctx context.Context) error {
				return s.bucket.Remove(ctx, key)
			},
		})
	}

	applied, err := s.bucket.Parallel(ctx, steps...)
	if err != nil {
		s.logError(opDelete, "key_remove_failed", err,
			zap.String("user_id", user.ID),
			zap.Strings("removed_keys", applied))
		return err
	}
	return nil
}

// FindByID loads the user stored under id. A missing key, or a key holding anything
// other than a user document, yields nil without error.
func (s *UserStore) FindByID(ctx context.Context, id string) (*User, error) {
	id = normalize(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidKey)
	}
	var user User
	found, err := s.bucket.GetTyped(ctx, id, documentTypeUser, &user)
	if err != nil {
		s.logError(opFindByID, "load_failed", err, zap.String("user_id", id))
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// FindByName resolves the username key to an id and loads that user.
func (s *UserStore) FindByName(ctx context.Context, userName string) (*User, error) {
	return s.findByMirror(ctx, userName)
}

// findByMirror follows an indirection key. An absent key, a key that does not hold a
// plain id string, or a blank id ends the lookup without reading the id key.
func (s *UserStore) findByMirror(ctx context.Context, key string) (*User, error) {
	key = normalize(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty lookup key", ErrInvalidKey)
	}
	raw, found, err := s.bucket.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var id string
	if json.Unmarshal(raw, &id) != nil || normalize(id) == "" {
		return nil, nil
	}
	return s.FindByID(ctx, id)
}

func (s *UserStore) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *UserStore) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("user store error", attrs...)
}
