// Package sieve implements a buffered SIEVE eviction engine: an intrusive
// doubly linked list of externally owned nodes, a sweeping "hand" that
// selects eviction candidates in bulk, and a staging buffer that hands the
// candidates to consumers without further locking.
//
// Design
//
//   - Insertion: LinkAtHead is lock-free. Many goroutines may insert
//     concurrently; the head pointer is advanced with a CAS loop and the
//     back-pointer of the displaced head is patched afterwards. Readers must
//     tolerate the transient window where head.next.prev does not yet point
//     back at the head.
//
//   - Touch: marking a node accessed is a single atomic store on the node.
//     The read path never takes the list mutex; this is the property that
//     makes SIEVE attractive over move-to-front policies.
//
//   - Structural mutation: Remove, Replace, MoveToHead, and the sweep all
//     serialize on one mutex. The sweep walks from the tail toward a
//     snapshot of the head, clears accessed flags (the "second chance"),
//     detaches un-accessed nodes, and stages them in the buffer.
//
//   - Consumption: GetEvictionCandidate claims staged nodes with atomics
//     only. When the buffer runs low it triggers a refill sweep. Every
//     staged node is returned to exactly one consumer, and a staged node is
//     never linked.
//
//   - Variants: the same sweep skeleton supports SIEVE (clear the flag,
//     leave the node in place; the default) and CLOCK (move accessed nodes
//     back to the head).
//
//   - Buffers: two shapes are provided. The slot array stages a batch into
//     fixed slots claimed by a fetch-add counter; the queue shape uses a
//     bounded channel with non-blocking send/receive.
//
// Ownership
//
// The list does not own nodes. The caller allocates them, keeps them
// addressable while linked, and takes them back when GetEvictionCandidate
// or Remove returns them to the external lifecycle.
//
// Basic usage
//
//	l := sieve.New[string](sieve.Options{BufferCapacity: 16})
//	n := sieve.NewNode("payload")
//	l.LinkAtHead(n)
//	n.MarkAccessed() // survives the next sweep visit
//	if victim := l.GetEvictionCandidate(); victim != nil {
//	    _ = victim.Value // hand back to the allocator
//	}
//
// Errors at this layer are invariant violations: linking a node twice,
// unlinking without the mutex, or observing a corrupt link structure all
// panic with a diagnostic dump. Recoverable states (empty list, transiently
// empty buffer) are encoded as nil returns.
package sieve
