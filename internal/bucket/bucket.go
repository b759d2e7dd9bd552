package bucket

import (
	"context"
	"encoding/json"
)

// Status is the response status reported by a document store for a single operation.
type Status int

const (
	// StatusSuccess reports a completed operation.
	StatusSuccess Status = iota
	// StatusKeyNotFound reports that the key does not exist.
	StatusKeyNotFound
	// StatusKeyExists reports that an insert targeted an existing key.
	StatusKeyExists
	// StatusInvalidArguments reports a request the store refused to execute.
	StatusInvalidArguments
	// StatusTemporaryFailure reports a transient store-side condition.
	StatusTemporaryFailure
	// StatusInternalError reports any other store-side failure.
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusKeyNotFound:
		return "KeyNotFound"
	case StatusKeyExists:
		return "KeyExists"
	case StatusInvalidArguments:
		return "InvalidArguments"
	case StatusTemporaryFailure:
		return "TemporaryFailure"
	case StatusInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Result is the store response for a key operation.
type Result struct {
	Status  Status
	Value   json.RawMessage
	Message string
}

// Success reports whether the operation completed.
func (r Result) Success() bool {
	return r.Status == StatusSuccess
}

// QueryResult is the store response for a query.
type QueryResult struct {
	Status  Status
	Rows    []json.RawMessage
	Message string
}

// Success reports whether the query completed.
func (r QueryResult) Success() bool {
	return r.Status == StatusSuccess
}

// Predicate matches documents whose top level field equals Value.
type Predicate struct {
	Field string
	Value string
}

// QueryRequest selects documents matching every predicate.
type QueryRequest struct {
	Predicates []Predicate
	Limit      int
}

// NewQuery starts an empty query.
func NewQuery() QueryRequest {
	return QueryRequest{}
}

// Where returns a copy of the request with an extra equality predicate.
func (q QueryRequest) Where(field, value string) QueryRequest {
	predicates := make([]Predicate, 0, len(q.Predicates)+1)
	predicates = append(predicates, q.Predicates...)
	predicates = append(predicates, Predicate{Field: field, Value: value})
	q.Predicates = predicates
	return q
}

// WithLimit caps the number of rows returned. Zero means unlimited.
func (q QueryRequest) WithLimit(limit int) QueryRequest {
	q.Limit = limit
	return q
}

// Bucket is the document key-value store handle consumed by the identity stores.
//
// A non-nil error is a transport or client fault. A store-side refusal is reported
// through the Status of the returned result with a nil error.
type Bucket interface {
	Name() string
	Get(ctx context.Context, key string) (Result, error)
	Insert(ctx context.Context, key string, value []byte) (Result, error)
	Replace(ctx context.Context, key string, value []byte) (Result, error)
	Remove(ctx context.Context, key string) (Result, error)
	Query(ctx context.Context, request QueryRequest) (QueryResult, error)
}
