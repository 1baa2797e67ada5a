// Package store provides counter storage for rate limit enforcement.
package store

import (
	"context"
	"time"
)

// Store is a counter store with expiring keys.
type Store interface {
	// Get retrieves the counter for the key.
	Get(ctx context.Context, key string) (int64, error)

	// Set stores a counter with an expiration.
	Set(ctx context.Context, key string, value int64, expiration time.Duration) error

	// IncrementWithExpiry increments the counter, setting the
	// expiration when the key is created by this call.
	IncrementWithExpiry(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error)

	// Delete removes the key.
	Delete(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

// ErrKeyNotFound is returned when a key is not present.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Key
}

// IsKeyNotFound reports whether the error is a key-not-found error.
func IsKeyNotFound(err error) bool {
	_, ok := err.(*ErrKeyNotFound)
	return ok
}
