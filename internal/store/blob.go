// Package store persists per-symbol bar series as CSV objects in a blob store.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no object exists for a key.
var ErrNotFound = errors.New("store: object not found")

// StoreError wraps a backend or codec failure for one key.
type StoreError struct {
	Op  string // "get", "put", "exists", "decode", "encode"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Blob is a minimal key/value object store.
type Blob interface {
	// Get returns the object bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put overwrites the object. Readers see either the old or the new content.
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Name() string
}
