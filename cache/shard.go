package cache

import (
	"sync"

	"github.com/IvanBrykalov/sievecache/internal/util"
	"github.com/IvanBrykalov/sievecache/sieve"
)

// shard is one partition of the key map. A shard guards only its map and
// the identity of the node a key resolves to; list structure is entirely
// the engine's concern, which is what keeps Get off every mutex but the
// shard's RLock.
type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*sieve.Node[entry[K, V]]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

func newShard[K comparable, V any](capacity int) *shard[K, V] {
	return &shard[K, V]{m: make(map[K]*sieve.Node[entry[K, V]], capacity)}
}

// lookup returns the node for k without write-locking.
func (s *shard[K, V]) lookup(k K) (*sieve.Node[entry[K, V]], bool) {
	s.mu.RLock()
	n, ok := s.m[k]
	s.mu.RUnlock()
	return n, ok
}

// deleteIf removes k only while it still resolves to n. Identity matters:
// the key may have been re-inserted with a fresh node after n was staged
// for eviction, and that newer entry must survive.
func (s *shard[K, V]) deleteIf(k K, n *sieve.Node[entry[K, V]]) bool {
	s.mu.Lock()
	cur, ok := s.m[k]
	if !ok || cur != n {
		s.mu.Unlock()
		return false
	}
	delete(s.m, k)
	s.mu.Unlock()
	return true
}
