package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxKeyLength     = 250
	queryBucketKey   = "bucket = ? AND doc_key = ?"
	queryBucket      = "bucket = ?"
	queryJSONField   = "json_extract(body, ?) = ?"
	orderDocKeyAsc   = "doc_key ASC"
	columnBody       = "body"
	columnUpdatedAtS = "updated_at_s"
)

var (
	errMissingDatabase   = errors.New("database: connection required")
	errMissingBucketName = errors.New("database: bucket name required")
	fieldNamePattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Document is one JSON document addressed by bucket and key.
type Document struct {
	Bucket           string `gorm:"column:bucket;primaryKey;size:100;not null"`
	Key              string `gorm:"column:doc_key;primaryKey;size:250;not null"`
	Body             string `gorm:"column:body;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Document) TableName() string {
	return "documents"
}

// DocumentBucketConfig describes the dependencies of a DocumentBucket.
type DocumentBucketConfig struct {
	Database *gorm.DB
	Name     string
	Clock    func() time.Time
	Logger   *zap.Logger
}

// DocumentBucket is a bucket.Bucket backed by the SQLite documents table.
type DocumentBucket struct {
	db     *gorm.DB
	name   string
	clock  func() time.Time
	logger *zap.Logger
}

var _ bucket.Bucket = (*DocumentBucket)(nil)

// NewDocumentBucket binds a named bucket to the documents table.
func NewDocumentBucket(cfg DocumentBucketConfig) (*DocumentBucket, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, errMissingBucketName
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentBucket{
		db:     cfg.Database,
		name:   name,
		clock:  clock,
		logger: logger,
	}, nil
}

// Name returns the bucket name.
func (b *DocumentBucket) Name() string {
	return b.name
}

// Get loads the document stored under key.
func (b *DocumentBucket) Get(ctx context.Context, key string) (bucket.Result, error) {
	if result, ok := checkKey(key); !ok {
		return result, nil
	}
	var document Document
	err := b.db.WithContext(ctx).
		Where(queryBucketKey, b.name, key).
		Take(&document).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return bucket.Result{Status: bucket.StatusKeyNotFound}, nil
	}
	if err != nil {
		return bucket.Result{}, err
	}
	return bucket.Result{Status: bucket.StatusSuccess, Value: json.RawMessage(document.Body)}, nil
}

// Insert stores value under a key that must not exist yet.
func (b *DocumentBucket) Insert(ctx context.Context, key string, value []byte) (bucket.Result, error) {
	if result, ok := checkWrite(key, value); !ok {
		return result, nil
	}
	document := Document{
		Bucket:           b.name,
		Key:              key,
		Body:             string(value),
		UpdatedAtSeconds: b.clock().UTC().Unix(),
	}
	created := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&document)
	if created.Error != nil {
		return bucket.Result{}, created.Error
	}
	if created.RowsAffected == 0 {
		return bucket.Result{Status: bucket.StatusKeyExists}, nil
	}
	return bucket.Result{Status: bucket.StatusSuccess}, nil
}

// Replace overwrites the document stored under an existing key.
func (b *DocumentBucket) Replace(ctx context.Context, key string, value []byte) (bucket.Result, error) {
	if result, ok := checkWrite(key, value); !ok {
		return result, nil
	}
	updated := b.db.WithContext(ctx).
		Model(&Document{}).
		Where(queryBucketKey, b.name, key).
		Updates(map[string]interface{}{
			columnBody:       string(value),
			columnUpdatedAtS: b.clock().UTC().Unix(),
		})
	if updated.Error != nil {
		return bucket.Result{}, updated.Error
	}
	if updated.RowsAffected == 0 {
		return bucket.Result{Status: bucket.StatusKeyNotFound}, nil
	}
	return bucket.Result{Status: bucket.StatusSuccess}, nil
}

// Remove deletes the document stored under key.
func (b *DocumentBucket) Remove(ctx context.Context, key string) (bucket.Result, error) {
	if result, ok := checkKey(key); !ok {
		return result, nil
	}
	deleted := b.db.WithContext(ctx).
		Where(queryBucketKey, b.name, key).
		Delete(&Document{})
	if deleted.Error != nil {
		return bucket.Result{}, deleted.Error
	}
	if deleted.RowsAffected == 0 {
		return bucket.Result{Status: bucket.StatusKeyNotFound}, nil
	}
	return bucket.Result{Status: bucket.StatusSuccess}, nil
}

// Query returns documents whose top level fields equal every predicate value.
func (b *DocumentBucket) Query(ctx context.Context, request bucket.QueryRequest) (bucket.QueryResult, error) {
	statement := b.db.WithContext(ctx).
		Model(&Document{}).
		Where(queryBucket, b.name)
	for _, predicate := range request.Predicates {
		if !fieldNamePattern.MatchString(predicate.Field) {
			return bucket.QueryResult{
				Status:  bucket.StatusInvalidArguments,
				Message: fmt.Sprintf("invalid field %q", predicate.Field),
			}, nil
		}
		statement = statement.Where(queryJSONField, "$."+predicate.Field, predicate.Value)
	}
	if request.Limit > 0 {
		statement = statement.Limit(request.Limit)
	}

	var documents []Document
	if err := statement.Order(orderDocKeyAsc).Find(&documents).Error; err != nil {
		b.logger.Warn("document query failed", zap.String("bucket", b.name), zap.Error(err))
		return bucket.QueryResult{}, err
	}

	rows := make([]json.RawMessage, 0, len(documents))
	for _, document := range documents {
		rows = append(rows, json.RawMessage(document.Body))
	}
	return bucket.QueryResult{Status: bucket.StatusSuccess, Rows: rows}, nil
}

func checkKey(key string) (bucket.Result, bool) {
	if key == "" || len(key) > maxKeyLength {
		return bucket.Result{
			Status:  bucket.StatusInvalidArguments,
			Message: fmt.Sprintf("key must be 1..%d bytes", maxKeyLength),
		}, false
	}
	return bucket.Result{}, true
}

func checkWrite(key string, value []byte) (bucket.Result, bool) {
	if result, ok := checkKey(key); !ok {
		return result, false
	}
	if !json.Valid(value) {
		return bucket.Result{Status: bucket.StatusInvalidArguments, Message: "value is not valid JSON"}, false
	}
	return bucket.Result{}, true
}
