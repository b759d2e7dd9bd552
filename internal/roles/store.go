package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"go.uber.org/zap"
)

var (
	// ErrInvalidRole indicates that a nil role or blank id was supplied.
	ErrInvalidRole = errors.New("roles: role with id is required")
	// ErrInvalidName indicates that a blank role name was supplied.
	ErrInvalidName = errors.New("roles: role name is required")

	errMissingBucket = errors.New("roles: bucket is required")
)

const (
	opCreate     = "roles.create"
	opUpdate     = "roles.update"
	opDelete     = "roles.delete"
	opFindByName = "roles.find_by_name"
)

// RoleStoreConfig describes the dependencies of a RoleStore.
type RoleStoreConfig struct {
	Bucket *bucket.ThrowableBucket
	Logger *zap.Logger
}

// RoleStore persists roles under their id and finds them by name through a query.
type RoleStore struct {
	bucket *bucket.ThrowableBucket
	logger *zap.Logger
}

// NewRoleStore constructs a RoleStore over a wrapped bucket.
func NewRoleStore(cfg RoleStoreConfig) (*RoleStore, error) {
	if cfg.Bucket == nil {
		return nil, errMissingBucket
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleStore{bucket: cfg.Bucket, logger: logger}, nil
}

func (s *RoleStore) Create(ctx context.Context, role *Role) error {
	if err := validateRole(role); err != nil {
		return err
	}
	role.Type = documentTypeRole
	if err := s.bucket.Create(ctx, role.ID, role); err != nil {
		s.logError(opCreate, err, role.ID)
		return err
	}
	return nil
}

func (s *RoleStore) Update(ctx context.Context, role *Role) error {
	if err := validateRole(role); err != nil {
		return err
	}
	role.Type = documentTypeRole
	if err := s.bucket.Update(ctx, role.ID, role); err != nil {
		s.logError(opUpdate, err, role.ID)
		return err
	}
	return nil
}

func (s *RoleStore) Delete(ctx context.Context, role *Role) error {
	if role == nil || strings.TrimSpace(role.ID) == "" {
		return ErrInvalidRole
	}
	if err := s.bucket.Remove(ctx, role.ID); err != nil {
		s.logError(opDelete, err, role.ID)
		return err
	}
	return nil
}

// FindByID loads the role stored under id. A missing key, or one holding anything other
// than a role document, is a KeyNotFound StoreError.
func (s *RoleStore) FindByID(ctx context.Context, id string) (*Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidRole
	}
	var role Role
	found, err := s.bucket.GetTyped(ctx, id, documentTypeRole, &role)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &bucket.StoreError{Status: bucket.StatusKeyNotFound, Key: id}
	}
	return &role, nil
}

// FindByName returns the first role whose name matches exactly.
func (s *RoleStore) FindByName(ctx context.Context, name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	request := bucket.NewQuery().
		Where("type", documentTypeRole).
		Where("name", name).
		WithLimit(1)
	rows, err := s.bucket.Query(ctx, request)
	if err != nil {
		s.logError(opFindByName, err, name)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &bucket.StoreError{Status: bucket.StatusKeyNotFound, Key: name, Message: "no role with that name"}
	}
	var role Role
	if err := json.Unmarshal(rows[0], &role); err != nil {
		return nil, fmt.Errorf("roles: decode %q: %w", name, err)
	}
	return &role, nil
}

func validateRole(role *Role) error {
	if role == nil || strings.TrimSpace(role.ID) == "" {
		return ErrInvalidRole
	}
	if strings.TrimSpace(role.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

func (s *RoleStore) logError(operation string, err error, key string) {
	s.logger.Error("role store error",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Error(err))
}
