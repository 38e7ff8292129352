package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

// Uses a fake clock to avoid timing flakiness.
// Ensures that per-entry TTL is respected.
func TestCache_TTL_FakeClock(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c := New[string, string](Options[string, string]{Capacity: 4, Clock: clk})
	t.Cleanup(func() { _ = c.Close() })

	c.SetWithTTL("x", "v", 100*time.Millisecond)
	if _, ok := c.Get("x"); !ok {
		t.Fatal("fresh miss")
	}
	clk.add(200 * time.Millisecond)
	if _, ok := c.Get("x"); ok {
		t.Fatal("expired hit")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry must be gone, Len=%d", c.Len())
	}
}

// Basic Add/Set/Get/Remove semantics.
// Add inserts only if key is absent; Set updates; Remove deletes.
func TestCache_BasicAddSetGetRemove(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 8})
	t.Cleanup(func() { _ = c.Close() })

	if !c.Add("a", 1) {
		t.Fatal("Add a=1 must be true")
	}
	if c.Add("a", 2) {
		t.Fatal("Add duplicate must be false")
	}

	c.Set("a", 11)
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}

	if !c.Remove("a") {
		t.Fatal("Remove a must be true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
	if c.Remove("a") {
		t.Fatal("second Remove must be false")
	}
}

// Deterministic SIEVE eviction: small capacity, single shard.
// Touching "a" sets its accessed flag; inserting "c" makes the sweeper
// give "a" its second chance and detach "b" instead.
func TestCache_EvictionSecondChance(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{
		Capacity: 2,
		Shards:   1,
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", 1)
	c.Set("b", 2)

	if _, ok := c.Get("a"); !ok { // mark a accessed
		t.Fatal("expect hit for a")
	}
	c.Set("c", 3) // overflow -> sweep clears a, evicts b

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (second chance)")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

// Untouched entries leave in insertion order: SIEVE degrades to FIFO.
func TestCache_EvictionFIFOWhenUntouched(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := New[string, int](Options[string, int]{
		Capacity: 3,
		Shards:   1,
		OnEvict:  func(k string, _ int, _ EvictReason) { evicted = append(evicted, k) },
	})
	t.Cleanup(func() { _ = c.Close() })

	for i, k := range []string{"a", "b", "c", "d", "e"} {
		c.Set(k, i)
	}
	if len(evicted) != 2 || evicted[0] != "a" || evicted[1] != "b" {
		t.Fatalf("want [a b], got %v", evicted)
	}
	if c.Len() != 3 {
		t.Fatalf("Len=%d", c.Len())
	}
}

// Cost-based limiting: the cache evicts until the cost budget holds, even
// while the entry count is under capacity.
func TestCache_MaxCost(t *testing.T) {
	t.Parallel()

	var reasons []EvictReason
	c := New[string, []byte](Options[string, []byte]{
		Capacity: 100,
		Shards:   1,
		Cost:     func(v []byte) int { return len(v) },
		MaxCost:  64,
		OnEvict:  func(_ string, _ []byte, r EvictReason) { reasons = append(reasons, r) },
	})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), make([]byte, 20)) // 100 bytes total
	}

	if got := c.Len(); got > 3 { // 3*20 = 60 <= 64
		t.Fatalf("cost limit not enforced, Len=%d", got)
	}
	for _, r := range reasons {
		if r != EvictCapacity {
			t.Fatalf("cost evictions must report EvictCapacity, got %v", r)
		}
	}
}

// An update must not lose the entry or duplicate it in the eviction list.
func TestCache_UpdateKeepsSingleResident(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 4, Shards: 1})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", 1)
	for i := 2; i <= 20; i++ {
		c.Set("a", i)
	}
	if v, ok := c.Get("a"); !ok || v != 20 {
		t.Fatalf("Get a want 20, got %v ok=%v", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("updates must not duplicate entries, Len=%d", c.Len())
	}
}

// Singleflight test: concurrent GetOrLoad calls for the same key
// should trigger the Loader at most once; subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := New[string, string](Options[string, string]{
		Capacity: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Capacity: 4})
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.GetOrLoad(context.Background(), "k"); err != ErrNoLoader {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}

func TestCache_EngineStats(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 8, Shards: 1})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 32; i++ {
		c.Set(i, i)
	}
	st := c.EngineStats()
	if st.Sweeps == 0 || st.Claimed == 0 {
		t.Fatalf("eviction pressure must run sweeps, got %+v", st)
	}
}
