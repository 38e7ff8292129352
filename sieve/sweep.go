package sieve

// GetEvictionCandidate returns a node detached from the list and suitable
// for eviction, or nil when the list is empty or a sweep could not make
// progress (heavy churn; the caller should back off and retry). Safe for
// concurrent callers; the returned node belongs to exactly this caller.
func (l *List[T]) GetEvictionCandidate() *Node[T] {
	if l.buf.low() && l.size.Load() > 0 {
		l.prepareEvictionCandidates()
	}

	for {
		if n := l.buf.take(); n != nil {
			l.stats.claimed.Add(1)
			return n
		}
		if l.size.Load() == 0 {
			return nil
		}
		if staged, swept := l.prepareEvictionCandidates(); swept && staged == 0 {
			return nil
		}
	}
}

// candidateTarget sizes the next batch: enough to amortise the mutex, but
// at most half the list (and at least one node) so a list of two or more
// nodes is not drained wholesale. The buffer's free room caps it as well.
func (l *List[T]) candidateTarget() int {
	n := int(l.size.Load()) / 2
	if n < 1 {
		n = 1
	}
	if room := l.buf.room(); n > room {
		n = room
	}
	return n
}

// prepareEvictionCandidates runs one sweep under the list mutex, refilling
// the staging buffer. Returns the number of nodes staged and whether a
// sweep actually ran (false means the early-exit guard fired because the
// buffer still had stock).
//
// The sweep walks from the hand toward the head using prev links, clearing
// accessed flags and detaching un-accessed nodes. It turns around at a
// snapshot of the head taken on entry: the head is the lock-free insertion
// point, and chasing it live would race with inserters. Wrapping more than
// turnLimit times means the list is too small or too churned to satisfy
// the request; the sweep then publishes whatever it has.
func (l *List[T]) prepareEvictionCandidates() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.full() {
		return 0, false
	}

	target := l.candidateTarget()
	staged := 0
	produced := 0
	turns := 0

	// Hard bound on sweep work. The turn counter alone cannot catch the
	// CLOCK pathology where every node is accessed: moved nodes keep the
	// cursor from ever reaching the boundary.
	visits := 0
	maxVisits := l.turnLimit * (int(l.size.Load()) + 1)

	curr := l.hand.Load()
	headSnapshot := l.head.Load()

	for produced < target {
		visits++
		if visits > maxVisits {
			l.stats.turnAborts.Add(1)
			break
		}
		boundary := headSnapshot
		if l.variant == VariantClock {
			// CLOCK keeps pushing accessed nodes to the head, so it
			// must chase the live head rather than the snapshot.
			boundary = l.head.Load()
		}
		if curr == boundary || curr == nil {
			curr = l.tail.Load()
			turns++
			l.stats.turnResets.Add(1)
			if turns > l.turnLimit {
				l.stats.turnAborts.Add(1)
				break
			}
			if curr == nil {
				break // the list emptied beneath the sweep
			}
		}

		if curr.accessed.Load() {
			if l.variant == VariantClock {
				next := curr.prev.Load()
				l.moveToHeadLocked(curr)
				curr = next
			} else {
				curr.accessed.Store(false)
				l.stats.secondChances.Add(1)
				curr = curr.prev.Load()
			}
		} else {
			produced++
			next := curr.prev.Load()
			if l.buf.stage(curr) {
				l.unlink(curr)
				curr.next.Store(nil)
				curr.prev.Store(nil)
				staged++
			}
			curr = next
		}

		if curr == nil {
			// The just-unlinked node was the tail, or head moved under
			// an in-flight insert whose back-pointer is not patched yet.
			curr = l.tail.Load()
		}
	}

	l.hand.Store(curr)
	l.buf.seal()
	l.stats.sweeps.Add(1)
	l.stats.candidates.Add(uint64(staged))
	return staged, true
}
