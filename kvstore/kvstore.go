// Package kvstore provides a string-keyed, string-valued persistent storage
// abstraction with pluggable backends. The backend is selected once at
// process start; callers never branch on backend identity.
package kvstore

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by all operations after Close.
var ErrStoreClosed = errors.New("store is closed")

// Store is the uniform key-value contract. All operations take a context and
// must not panic on backend failure; errors are returned for the caller to
// log or degrade on.
type Store interface {
	// Set writes value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Get returns the value for key. found is false if the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// MultiRemove deletes all given keys in one best-effort batch.
	MultiRemove(ctx context.Context, keys []string) error

	// Close releases backend resources.
	Close() error
}
