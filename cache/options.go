package cache

import (
	"context"
	"time"

	"github.com/IvanBrykalov/sievecache/sieve"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — selected by the SIEVE sweeper to satisfy the entry limit.
	EvictPolicy EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access).
	EvictTTL
	// EvictCapacity — removed to satisfy the cost limit.
	EvictCapacity
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, cost int64)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - nil Metrics  => NoopMetrics
//   - Shards <= 0  => auto (rounded up to power of two)
//   - zero Engine  => SIEVE variant, default buffer
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit.
	Capacity int

	// Shards defines the number of key-map shards. If 0, an automatic
	// value is chosen (≈ 2*GOMAXPROCS) and rounded to the next power of
	// two. Shards partition only the lookup maps; the eviction list is
	// global and mostly lock-free.
	Shards int

	// Engine configures the SIEVE engine (buffer capacity and shape,
	// SIEVE/CLOCK variant, sweep turn limit).
	Engine sieve.Options

	// DefaultTTL applies to Add/Set when per-key TTL is not provided (0 = no TTL).
	DefaultTTL time.Duration

	// Cost-based limiting (e.g., bytes). If Cost is non-nil and MaxCost > 0,
	// the cache evicts until both entry count and total cost limits are satisfied.
	Cost    func(v V) int // nil = all entries have equal cost (0)
	MaxCost int64         // total cost limit; 0 disables cost limiting

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// Observability
	// OnEvict is called after the entry left the maps; keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}
