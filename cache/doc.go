// Package cache provides a fast, generic, sharded in-memory cache whose
// eviction decisions are made by a buffered SIEVE engine, with per-entry
// TTL, optional singleflight loading, lightweight metrics hooks, and
// cost-based capacity.
//
// Design
//
//   - Concurrency: the key map is split into shards, each protected by an
//     RWMutex. The default shard count is chosen by a heuristic
//     (ReasonableShardCount) and is a power of two. Unlike move-to-front
//     caches, the shard lock covers only the map: reads mark an atomic
//     accessed flag and never touch list structure.
//
//   - Eviction: a single sieve.List orders all entries. Inserts use its
//     lock-free head path; victims come in batches from the engine's
//     staging buffer via GetEvictionCandidate. The SIEVE second chance
//     replaces LRU promotion — a touched entry survives the sweeper's
//     next visit.
//
//   - Updates: entries are immutable once published. Set on an existing
//     key builds a fresh node and swaps it into the list (keeping the
//     old node's position) and the shard map, so readers never observe a
//     torn value.
//
//   - TTL: entries can have per-item deadlines (UnixNano). Expiration is
//     lazy on read.
//
//   - Cost/MaxCost: besides entry count (Capacity), you may account a
//     user-defined "cost" per value (Options.Cost) and enforce a global
//     MaxCost.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export
//     metrics. EngineStats exposes the sweeper's own counters.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every
//     eviction (reason is one of EvictPolicy, EvictTTL, EvictCapacity).
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With TTL
//
//	c := cache.New[string, string](cache.Options[string, string]{Capacity: 1024})
//	c.SetWithTTL("tmp", "v", 200*time.Millisecond)
//	time.Sleep(300*time.Millisecond)
//	_, ok := c.Get("tmp") // ok == false (expired)
//
// With GetOrLoad (singleflight)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Using the CLOCK variant or the queue-shaped staging buffer
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 50_000,
//	    Engine: sieve.Options{
//	        Variant:        sieve.VariantClock,
//	        Buffer:         sieve.BufferQueue,
//	        BufferCapacity: 64,
//	    },
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Typical operation cost
// is O(1) expected time: one map access plus a constant amount of atomic
// work. Eviction is amortised: one sweep stages a whole batch of victims.
package cache
