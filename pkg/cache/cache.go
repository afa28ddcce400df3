// Package cache provides byte caches for persisted layout state.
//
// The pipeline and the session API persist measured item sizes (size-cache
// snapshots) and finished layouts so that a later run over the same feed
// starts from exact sizes instead of estimates. Values are opaque bytes;
// callers own the encoding.
//
// # Backends
//
//   - [FileCache]: one JSON file per key under a directory (CLI default)
//   - [RedisCache]: shared cache with native TTLs
//   - [MongoCache]: durable documents with a TTL index
//   - [NullCache]: caching disabled
//   - [Tiered]: layered lookup with read-through backfill
//
// [Open] builds a backend from [Options], and [Instrument] reports hits,
// misses and writes to the observability hooks.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key.
type Cache interface {
	// Get returns the value for key. A missing or expired key is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Pruner is implemented by caches that expire entries lazily and can sweep
// them on demand. Redis and MongoDB expire entries themselves.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}
