// Package cache stores computed layouts and rendered artifacts.
//
// All backends implement [Cache], a byte-oriented key/value store with
// per-entry TTLs. Keys are built by a [Keyer] from content hashes, so an
// edited catalog or a changed option never hits a stale entry.
//
// Backends:
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the server
package cache

import (
	"context"
	"time"
)

// Default TTLs for cached entries.
const (
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)

// Cache is a key/value store for serialized pipeline results.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
