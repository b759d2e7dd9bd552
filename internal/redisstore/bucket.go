package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const scanBatchSize = 256

var errMissingClient = errors.New("redisstore: redis client required")

// Config describes the dependencies of a Bucket.
type Config struct {
	Client    *redis.Client
	Name      string
	KeyPrefix string
	Logger    *zap.Logger
}

// Bucket is a bucket.Bucket backed by plain redis string keys holding JSON documents.
type Bucket struct {
	client    *redis.Client
	name      string
	keyPrefix string
	logger    *zap.Logger
}

var _ bucket.Bucket = (*Bucket)(nil)

// New builds a redis bucket. Keys are namespaced as <prefix><name>:<key>.
func New(cfg Config) (*Bucket, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "default"
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ids:"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bucket{
		client:    cfg.Client,
		name:      name,
		keyPrefix: prefix,
		logger:    logger,
	}, nil
}

func (b *Bucket) namespace() string {
	return b.keyPrefix + b.name + ":"
}

func (b *Bucket) documentKey(key string) string {
	return b.namespace() + key
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Get loads the document stored under key.
func (b *Bucket) Get(ctx context.Context, key string) (bucket.Result, error) {
	if key == "" {
		return invalidKey(), nil
	}
	value, err := b.client.Get(ctx, b.documentKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return bucket.Result{Status: bucket.StatusKeyNotFound}, nil
	}
	if err != nil {
		return bucket.Result{}, fmt.Errorf("redis: failed to get %s: %w", key, err)
	}
	return bucket.Result{Status: bucket.StatusSuccess, Value: json.RawMessage(value)}, nil
}

// Insert stores value under a key that must not exist yet.
func (b *Bucket) Insert(ctx context.Context, key string, value []byte) (bucket.Result, error) {
	if result, ok := checkWrite(key, value); !ok {
		return result, nil
	}
	stored, err := b.client.SetNX(ctx, b.documentKey(key), value, 0).Result()
	if err != nil {
		return bucket.Result{}, fmt.Errorf("redis: failed to insert %s: %w", key, err)
	}
	if !stored {
		return bucket.Result{Status: bucket.StatusKeyExists}, nil
	}
	return bucket.Result{Status: bucket.StatusSuccess}, nil
}

// Replace overwrites the document stored under an existing key.
func (b *Bucket) Replace(ctx context.Context, key string, value []byte) (bucket.Result, error) {
	if result, ok := checkWrite(key, value); !ok {
		return result, nil
	}
	stored, err := b.client.SetXX(ctx, b.documentKey(key), value, 0).Result()
	if err != nil {
		return bucket.Result{}, fmt.Errorf("redis: failed to replace %s: %w", key, err)
	}
	if !stored {
		return bucket.Result{Status: bucket.StatusKeyNotFound}, nil
	}
	return bucket.Result{Status: bucket.StatusSuccess}, nil
}

// Remove deletes the document stored under key.
func (b *Bucket) Remove(ctx context.Context, key string) (bucket.Result, error) {
	if key == "" {
		return invalidKey(), nil
	}
	removed, err := b.client.Del(ctx, b.documentKey(key)).Result()
	if err != nil {
		return bucket.Result{}, fmt.Errorf("redis: failed to remove %s: %w", key, err)
	}
	if removed == 0 {
		return bucket.Result{Status: bucket.StatusKeyNotFound}, nil
	}
	return bucket.Result{Status: bucket.StatusSuccess}, nil
}

// Query scans the bucket namespace and returns JSON object documents whose top level
// fields equal every predicate value. Rows are ordered by key.
func (b *Bucket) Query(ctx context.Context, request bucket.QueryRequest) (bucket.QueryResult, error) {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return bucket.QueryResult{}, err
	}
	sort.Strings(keys)

	rows := make([]json.RawMessage, 0)
	for start := 0; start < len(keys); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		values, err := b.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return bucket.QueryResult{}, fmt.Errorf("redis: failed to load query candidates: %w", err)
		}
		for _, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}
			if matches(raw, request.Predicates) {
				rows = append(rows, json.RawMessage(raw))
				if request.Limit > 0 && len(rows) >= request.Limit {
					return bucket.QueryResult{Status: bucket.StatusSuccess, Rows: rows}, nil
				}
			}
		}
	}
	return bucket.QueryResult{Status: bucket.StatusSuccess, Rows: rows}, nil
}

func (b *Bucket) scanKeys(ctx context.Context) ([]string, error) {
	var cursor uint64
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	pattern := b.namespace() + "*"
	for {
		batch, next, err := b.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			b.logger.Warn("redis scan failed", zap.String("pattern", pattern), zap.Error(err))
			return nil, fmt.Errorf("redis: failed to scan %s: %w", pattern, err)
		}
		// SCAN may return a key more than once.
		for _, key := range batch {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func matches(raw string, predicates []bucket.Predicate) bool {
	var document map[string]any
	if err := json.Unmarshal([]byte(raw), &document); err != nil {
		return false
	}
	for _, predicate := range predicates {
		value, ok := document[predicate.Field].(string)
		if !ok || value != predicate.Value {
			return false
		}
	}
	return true
}

func invalidKey() bucket.Result {
	return bucket.Result{Status: bucket.StatusInvalidArguments, Message: "key must not be empty"}
}

func checkWrite(key string, value []byte) (bucket.Result, bool) {
	if key == "" {
		return invalidKey(), false
	}
	if !json.Valid(value) {
		return bucket.Result{Status: bucket.StatusInvalidArguments, Message: "value is not valid JSON"}, false
	}
	return bucket.Result{}, true
}
