package cache

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/sievecache/internal/singleflight"
	"github.com/IvanBrykalov/sievecache/internal/util"
	"github.com/IvanBrykalov/sievecache/sieve"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("cache: no Loader provided")

// cache is a sharded in-memory KV store whose eviction decisions are made
// by a single shared SIEVE engine. Shard locks guard only the key maps;
// inserts hit the engine's lock-free head path and reads touch no list
// state at all beyond the entry's accessed flag.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	engine *sieve.List[entry[K, V]]
	hash   func(K) uint64
	closed atomic.Bool

	capacity int
	maxCost  int64

	opt Options[K, V]

	// ---- hot counters ----
	// resident counts map entries. It intentionally differs from
	// engine.Len(): a victim staged in the engine's buffer is already
	// unlinked but still resident until a consumer finishes its eviction.
	_        util.CacheLinePad
	resident util.PaddedAtomicInt64
	cost     util.PaddedAtomicInt64
	evicts   util.PaddedAtomicUint64

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - Shards <= 0  -> auto, rounded up to the next power of two
//   - zero Engine  -> SIEVE variant with the default staging buffer
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		panic("Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	cs := make([]*shard[K, V], sh)
	perShardCap := (opt.Capacity + sh - 1) / sh // size the maps evenly (ceil)
	for i := range cs {
		cs[i] = newShard[K, V](perShardCap)
	}

	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return &cache[K, V]{
		shards:   cs,
		engine:   sieve.New[entry[K, V]](opt.Engine),
		hash:     util.Fnv64a[K], // fast non-crypto hash for sharding
		capacity: opt.Capacity,
		maxCost:  opt.MaxCost,
		opt:      opt,
	}
}

// ---- Cache[K,V] implementation ----

// Add inserts k→v only if absent, using DefaultTTL if set.
// Returns false if the key already exists (no update is performed).
func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	n := c.newEntryNode(k, v, c.defaultDeadline())
	s := c.getShard(k)

	s.mu.Lock()
	if _, exists := s.m[k]; exists {
		s.mu.Unlock()
		return false
	}
	s.m[k] = n
	// Linking under the shard lock closes the window where a concurrent
	// update could replace a node that is not in the list yet.
	c.engine.LinkAtHead(n)
	s.mu.Unlock()

	c.resident.Add(1)
	c.cost.Add(int64(n.Value.cost))
	c.enforceLimits()
	return true
}

// Set inserts or updates k→v, using DefaultTTL if set.
func (c *cache[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	c.set(k, v, c.defaultDeadline())
}

// SetWithTTL inserts or updates k→v with a per-key TTL (relative duration).
// A non-positive ttl disables expiration for this entry.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	c.set(k, v, c.deadline(ttl))
}

// set publishes a fresh node for k. Updates keep the entry's list
// position via Replace; if the sweeper detached the old node in the
// meantime, the new one is linked at the head like a fresh insert.
func (c *cache[K, V]) set(k K, v V, exp int64) {
	n := c.newEntryNode(k, v, exp)
	s := c.getShard(k)

	s.mu.Lock()
	old, exists := s.m[k]
	s.m[k] = n
	if exists {
		if !c.engine.Replace(old, n) {
			c.engine.LinkAtHead(n)
		}
		s.mu.Unlock()
		c.cost.Add(int64(n.Value.cost) - int64(old.Value.cost))
	} else {
		c.engine.LinkAtHead(n)
		s.mu.Unlock()
		c.resident.Add(1)
		c.cost.Add(int64(n.Value.cost))
	}

	c.enforceLimits()
}

// Get returns the value for k and marks the entry accessed.
// TTL: if expired, the entry is evicted and a miss is returned.
func (c *cache[K, V]) Get(k K) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}
	s := c.getShard(k)

	n, ok := s.lookup(k)
	if !ok {
		s.misses.Add(1)
		c.opt.Metrics.Miss()
		return zero, false
	}

	e := &n.Value
	if e.exp != 0 && c.now() > e.exp {
		c.evictExpired(s, k, n)
		s.misses.Add(1)
		c.opt.Metrics.Miss()
		return zero, false
	}

	n.MarkAccessed() // the SIEVE touch: no lock, one atomic store
	s.hits.Add(1)
	c.opt.Metrics.Hit()
	return e.val, true
}

// Remove deletes an entry by key. Returns true if the entry existed.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	s := c.getShard(k)

	s.mu.Lock()
	n, ok := s.m[k]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.m, k)
	s.mu.Unlock()

	// Idempotent against the sweeper: a node already staged for eviction
	// is simply left for its consumer, who will fail the identity check.
	c.engine.Remove(n)
	c.resident.Add(-1)
	c.cost.Add(-int64(n.Value.cost))
	return true
}

// Len returns the total number of resident entries across all shards.
// Entries staged for eviction but not yet claimed still count.
func (c *cache[K, V]) Len() int {
	return int(c.resident.Load())
}

// Close marks the cache as closed. Future operations are ignored.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Set(k, v)
		}
		return v, err
	})
}

// EngineStats returns a snapshot of the eviction engine's counters.
func (c *cache[K, V]) EngineStats() sieve.StatsSnapshot {
	return c.engine.Stats()
}

// ---- eviction ----

// enforceLimits asks the engine for victims until both the entry count
// and the cost limit are satisfied. A nil candidate means the engine
// could not make progress (heavy churn); back off instead of spinning.
func (c *cache[K, V]) enforceLimits() {
	for {
		overCount := int(c.resident.Load()) > c.capacity
		overCost := c.maxCost > 0 && c.cost.Load() > c.maxCost
		if !overCount && !overCost {
			break
		}
		n := c.engine.GetEvictionCandidate()
		if n == nil {
			break
		}
		reason := EvictPolicy
		if !overCount {
			reason = EvictCapacity
		}
		c.finishEviction(n, reason)
	}
	c.opt.Metrics.Size(int(c.resident.Load()), c.cost.Load())
}

// finishEviction releases a claimed candidate: map delete (identity
// checked), accounting, metrics, callback.
func (c *cache[K, V]) finishEviction(n *sieve.Node[entry[K, V]], reason EvictReason) {
	k := n.Value.key
	s := c.getShard(k)
	if !s.deleteIf(k, n) {
		// The key was removed or replaced while the node sat in the
		// staging buffer; its accounting was settled by that operation.
		return
	}
	c.resident.Add(-1)
	c.cost.Add(-int64(n.Value.cost))
	c.evicts.Add(1)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(k, n.Value.val, reason)
	}
}

// evictExpired removes an entry whose deadline has passed.
func (c *cache[K, V]) evictExpired(s *shard[K, V], k K, n *sieve.Node[entry[K, V]]) {
	if !s.deleteIf(k, n) {
		return
	}
	c.engine.Remove(n)
	c.resident.Add(-1)
	c.cost.Add(-int64(n.Value.cost))
	c.evicts.Add(1)
	c.opt.Metrics.Evict(EvictTTL)
	if cb := c.opt.OnEvict; cb != nil {
		cb(k, n.Value.val, EvictTTL)
	}
}

// ---- helpers ----

func (c *cache[K, V]) newEntryNode(k K, v V, exp int64) *sieve.Node[entry[K, V]] {
	return sieve.NewNode(entry[K, V]{key: k, val: v, exp: exp, cost: c.costOf(v)})
}

// getShard picks a shard by hashing the key.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

// defaultDeadline returns an absolute deadline based on DefaultTTL.
func (c *cache[K, V]) defaultDeadline() int64 {
	if c.opt.DefaultTTL <= 0 {
		return 0
	}
	return c.deadline(c.opt.DefaultTTL)
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *cache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.now() + int64(ttl)
}

func (c *cache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// costOf computes the per-entry cost (clamped to int32 range).
func (c *cache[K, V]) costOf(v V) int32 {
	if c.opt.Cost == nil {
		return 0
	}
	iv := c.opt.Cost(v)
	if iv < 0 {
		iv = 0
	}
	// clamp to int32 to avoid overflow
	if iv > math.MaxInt32 {
		iv = math.MaxInt32
	}
	return int32(iv)
}
