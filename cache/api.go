package cache

import (
	"context"
	"time"

	"github.com/IvanBrykalov/sievecache/sieve"
)

// Cache is a sharded, in-memory key/value cache backed by a single SIEVE
// eviction engine. All methods are safe for concurrent use by multiple
// goroutines.
//
// Typical complexity is amortized O(1): a map lookup under a shard lock
// plus, on the read path, one atomic flag store on the entry's node. The
// read path never touches the eviction list's mutex; eviction work is
// batched by the engine's sweeper.
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present.
	// It uses the cache's DefaultTTL (if any).
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Set inserts or updates k→v.
	// It uses the cache's DefaultTTL (if any). An update replaces the
	// entry's node in place in the eviction list, keeping its position.
	Set(k K, v V)

	// Get returns the value for k and a boolean flag indicating presence.
	// On hit the entry is marked accessed, which grants it a second
	// chance at the sweeper's next visit.
	Get(k K) (V, bool)

	// Remove deletes k if present and returns true on success.
	Remove(k K) bool

	// Len returns the total number of resident entries across all shards.
	Len() int

	// Close stops background workers (if any) and marks the cache closed.
	// Current implementation is a soft close and returns nil.
	Close() error

	// SetWithTTL inserts or updates k→v with a per-key TTL (relative duration).
	// A non-positive ttl disables expiration for this entry.
	SetWithTTL(k K, v V, ttl time.Duration)

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// EngineStats returns a snapshot of the eviction engine's counters
	// (sweeps, staged candidates, second chances).
	EngineStats() sieve.StatsSnapshot
}
