// Package kv provides the durable key-value store backing session
// persistence, the learning log, and the stats high-water marks. Values
// are JSON documents; callers own the serialization.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
// Readers treat it as "use the documented default", never as a failure.
var ErrNotFound = errors.New("kv: key not found")

// Store is the durable key-value collaborator. Implementations must
// tolerate concurrent use from a single logical thread of control;
// no cross-goroutine guarantees are required by the engine.
type Store interface {
	// Get returns the stored value, or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
