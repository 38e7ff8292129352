package sieve

import (
	"runtime"
	"sync/atomic"

	"github.com/IvanBrykalov/sievecache/internal/util"
)

// evictionBuffer stages detached nodes between the sweeper (single
// producer, under the list mutex) and consumers (lock-free).
//
// Both shapes guarantee that every staged node is returned to exactly one
// consumer and that a staged node is never linked.
type evictionBuffer[T any] interface {
	// take claims one staged node, or nil when the buffer is out of stock.
	// Consumer side; never blocks.
	take() *Node[T]
	// low reports whether a consumer should trigger a refill sweep.
	low() bool
	// full reports whether a refill sweep would be redundant. Called
	// under the list mutex as the sweep's early-exit guard.
	full() bool
	// room returns how many candidates the next batch may stage.
	room() int
	// stage hands one node to the buffer. Called under the list mutex.
	// A false return means the node could not be staged and must stay
	// linked.
	stage(n *Node[T]) bool
	// seal publishes the batch staged since the last seal. Called under
	// the list mutex.
	seal()
}

// ---- slot array ----

// slotBuffer is the default shape: a fixed array of slots written by the
// sweeper and claimed by consumers through a fetch-add counter. Before
// overwriting a slot the sweeper waits for the slow consumer that claimed
// it in the previous batch to drain it.
type slotBuffer[T any] struct {
	slots []atomic.Pointer[Node[T]]

	_           util.CacheLinePad
	bufIdx      util.PaddedAtomicUint64 // consumer claim counter
	nCandidates atomic.Uint64           // staged count of the published batch

	fill int // batch write cursor; touched only under the list mutex
}

func newSlotBuffer[T any](capacity int) *slotBuffer[T] {
	return &slotBuffer[T]{slots: make([]atomic.Pointer[Node[T]], capacity)}
}

func (b *slotBuffer[T]) take() *Node[T] {
	idx := b.bufIdx.Add(1) - 1
	if idx >= b.nCandidates.Load() {
		return nil
	}
	return b.slots[idx].Swap(nil)
}

func (b *slotBuffer[T]) low() bool {
	return b.bufIdx.Load() >= b.nCandidates.Load()
}

// full holds while consumers have not drained the previous batch; a sweep
// entering then would clobber unclaimed slots.
func (b *slotBuffer[T]) full() bool {
	return b.bufIdx.Load() < b.nCandidates.Load()
}

func (b *slotBuffer[T]) room() int { return len(b.slots) }

func (b *slotBuffer[T]) stage(n *Node[T]) bool {
	slot := &b.slots[b.fill]
	for slot.Load() != nil {
		// A consumer claimed this slot in the previous batch but has not
		// taken the node yet. full() guarantees the claim exists, so the
		// wait is bounded by that consumer's next step.
		runtime.Gosched()
	}
	slot.Store(n)
	b.fill++
	return true
}

func (b *slotBuffer[T]) seal() {
	b.nCandidates.Store(uint64(b.fill))
	b.bufIdx.Store(0)
	b.fill = 0
}

// ---- bounded queue ----

// queueBuffer stages candidates in a buffered channel: the stdlib's
// bounded MPMC queue. stage never blocks; a full queue rejects the node
// so the sweeper leaves it linked.
type queueBuffer[T any] struct {
	ch chan *Node[T]
}

func newQueueBuffer[T any](capacity int) *queueBuffer[T] {
	return &queueBuffer[T]{ch: make(chan *Node[T], capacity)}
}

func (b *queueBuffer[T]) take() *Node[T] {
	select {
	case n := <-b.ch:
		return n
	default:
		return nil
	}
}

func (b *queueBuffer[T]) low() bool { return len(b.ch) < cap(b.ch)/4 }

func (b *queueBuffer[T]) full() bool { return len(b.ch) > cap(b.ch)/4*3 }

func (b *queueBuffer[T]) room() int { return cap(b.ch) - len(b.ch) }

func (b *queueBuffer[T]) stage(n *Node[T]) bool {
	select {
	case b.ch <- n:
		return true
	default:
		return false
	}
}

func (b *queueBuffer[T]) seal() {}
