package bucket

import (
	"errors"
	"fmt"
)

// StoreError reports a non-success store response for a key or query.
type StoreError struct {
	Status  Status
	Key     string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("bucket: %s for key %q", e.Status, e.Key)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func newStoreError(result Result, key string) error {
	return &StoreError{Status: result.Status, Key: key, Message: result.Message}
}

// StatusOf extracts the store status carried by err. The second value is false when
// err is not a StoreError.
func StatusOf(err error) (Status, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Status, true
	}
	return StatusSuccess, false
}

// IsKeyNotFound reports whether err is a StoreError for a missing key.
func IsKeyNotFound(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == StatusKeyNotFound
}

// IsKeyExists reports whether err is a StoreError for an already existing key.
func IsKeyExists(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == StatusKeyExists
}
