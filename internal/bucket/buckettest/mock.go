// Package buckettest provides a testify mock of bucket.Bucket.
package buckettest

import (
	"context"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/stretchr/testify/mock"
)

// MockBucket records calls made against the store boundary.
type MockBucket struct {
	mock.Mock
}

var _ bucket.Bucket = (*MockBucket)(nil)

func (m *MockBucket) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBucket) Get(ctx context.Context, key string) (bucket.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(bucket.Result), args.Error(1)
}

func (m *MockBucket) Insert(ctx context.Context, key string, value []byte) (bucket.Result, error) {
	args := m.Called(ctx, key, value)
	return args.Get(0).(bucket.Result), args.Error(1)
}

func (m *MockBucket) Replace(ctx context.Context, key string, value []byte) (bucket.Result, error) {
	args := m.Called(ctx, key, value)
	return args.Get(0).(bucket.Result), args.Error(1)
}

func (m *MockBucket) Remove(ctx context.Context, key string) (bucket.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(bucket.Result), args.Error(1)
}

func (m *MockBucket) Query(ctx context.Context, request bucket.QueryRequest) (bucket.QueryResult, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(bucket.QueryResult), args.Error(1)
}

// Success is a successful write result.
func Success() bucket.Result {
	return bucket.Result{Status: bucket.StatusSuccess}
}

// Document is a successful read result carrying raw.
func Document(raw string) bucket.Result {
	return bucket.Result{Status: bucket.StatusSuccess, Value: []byte(raw)}
}

// Status is a result carrying only status.
func Status(status bucket.Status) bucket.Result {
	return bucket.Result{Status: status}
}
