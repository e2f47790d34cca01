// Package kvstore abstracts the key-value cache used by the pairing service.
// The engine holds no process-wide state of its own; everything cached or
// queued goes through this interface so tests can run against the in-memory
// implementation.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("key not found")

// Store is the injected key-value interface
type Store interface {
	// Get returns the value for a key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with an optional TTL (zero means no expiry)
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Expire sets a TTL on an existing key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// ListPush appends a value to a list
	ListPush(ctx context.Context, key, value string) error

	// ListPop removes and returns the first value of a list, or ErrNotFound
	// when the list is empty
	ListPop(ctx context.Context, key string) (string, error)

	// Close releases the store's resources
	Close() error
}
