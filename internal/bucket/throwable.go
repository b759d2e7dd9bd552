package bucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const defaultFanoutLimit = 16

var (
	errMissingBucket = errors.New("bucket: store handle is required")
	noOpLogger       = zap.NewNop()
)

// Config describes the dependencies of a ThrowableBucket.
type Config struct {
	Bucket      Bucket
	FanoutLimit int
	Logger      *zap.Logger
}

// ThrowableBucket turns store responses into values or errors.
//
// Reads collapse KeyNotFound into an absent value. Writes treat every non-success
// status as a *StoreError. Transport faults are returned unchanged.
type ThrowableBucket struct {
	bucket      Bucket
	fanoutLimit int
	logger      *zap.Logger
}

// NewThrowableBucket wraps the provided store handle.
func NewThrowableBucket(cfg Config) (*ThrowableBucket, error) {
	if cfg.Bucket == nil {
		return nil, errMissingBucket
	}
	limit := cfg.FanoutLimit
	if limit <= 0 {
		limit = defaultFanoutLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &ThrowableBucket{
		bucket:      cfg.Bucket,
		fanoutLimit: limit,
		logger:      logger,
	}, nil
}

// Name returns the wrapped bucket name.
func (t *ThrowableBucket) Name() string {
	return t.bucket.Name()
}

// Get returns the raw document stored under key. It reports false with a nil error
// when the key does not exist.
func (t *ThrowableBucket) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	result, err := t.bucket.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	switch result.Status {
	case StatusSuccess:
		return result.Value, true, nil
	case StatusKeyNotFound:
		return nil, false, nil
	default:
		t.logger.Debug("bucket get failed",
			zap.String("bucket", t.bucket.Name()),
			zap.String("key", key),
			zap.Stringer("status", result.Status))
		return nil, false, newStoreError(result, key)
	}
}

// GetInto loads key and decodes it into out.
func (t *ThrowableBucket) GetInto(ctx context.Context, key string, out any) (bool, error) {
	raw, found, err := t.Get(ctx, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("bucket: decode %q: %w", key, err)
	}
	return true, nil
}

// GetTyped loads key into out only when it holds a JSON object whose "type" field equals
// documentType. Any other document under key reports false with a nil error.
func (t *ThrowableBucket) GetTyped(ctx context.Context, key, documentType string, out any) (bool, error) {
	raw, found, err := t.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	var header struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(raw, &header) != nil || header.Type != documentType {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("bucket: decode %q: %w", key, err)
	}
	return true, nil
}

// Create inserts value under key. An existing key is an error.
func (t *ThrowableBucket) Create(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("bucket: encode %q: %w", key, err)
	}
	result, err := t.bucket.Insert(ctx, key, payload)
	if err != nil {
		return err
	}
	if !result.Success() {
		return newStoreError(result, key)
	}
	return nil
}

// Update replaces the value stored under an existing key.
func (t *ThrowableBucket) Update(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("bucket: encode %q: %w", key, err)
	}
	result, err := t.bucket.Replace(ctx, key, payload)
	if err != nil {
		return err
	}
	if !result.Success() {
		return newStoreError(result, key)
	}
	return nil
}

// Remove deletes key. A missing key is an error.
func (t *ThrowableBucket) Remove(ctx context.Context, key string) error {
	result, err := t.bucket.Remove(ctx, key)
	if err != nil {
		return err
	}
	if !result.Success() {
		return newStoreError(result, key)
	}
	return nil
}

// Query runs request and returns the matching rows.
func (t *ThrowableBucket) Query(ctx context.Context, request QueryRequest) ([]json.RawMessage, error) {
	result, err := t.bucket.Query(ctx, request)
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, &StoreError{Status: result.Status, Key: queryKey(request), Message: result.Message}
	}
	return result.Rows, nil
}

func queryKey(request QueryRequest) string {
	values := make([]string, 0, len(request.Predicates))
	for _, predicate := range request.Predicates {
		values = append(values, predicate.Value)
	}
	return strings.Join(values, ",")
}
