package sieve

import "github.com/IvanBrykalov/sievecache/internal/util"

// listStats are hot counters kept on separate cache lines; the sweeper and
// many consumers update them concurrently.
type listStats struct {
	sweeps        util.PaddedAtomicUint64
	candidates    util.PaddedAtomicUint64
	claimed       util.PaddedAtomicUint64
	secondChances util.PaddedAtomicUint64
	turnResets    util.PaddedAtomicUint64
	turnAborts    util.PaddedAtomicUint64
}

// StatsSnapshot is a point-in-time copy of the engine counters.
type StatsSnapshot struct {
	// Sweeps is the number of completed refill sweeps.
	Sweeps uint64
	// Candidates is the total number of nodes staged by sweeps.
	Candidates uint64
	// Claimed is the total number of candidates handed to consumers.
	Claimed uint64
	// SecondChances counts accessed flags cleared by the sweeper.
	SecondChances uint64
	// TurnResets counts sweep wraps from the head snapshot back to the tail.
	TurnResets uint64
	// TurnAborts counts sweeps that gave up after exceeding the turn limit.
	TurnAborts uint64
}

// Stats returns a snapshot of the engine counters. The fields are read
// individually and may be mutually inconsistent under load; use for
// monitoring, not for invariant checks.
func (l *List[T]) Stats() StatsSnapshot {
	return StatsSnapshot{
		Sweeps:        l.stats.sweeps.Load(),
		Candidates:    l.stats.candidates.Load(),
		Claimed:       l.stats.claimed.Load(),
		SecondChances: l.stats.secondChances.Load(),
		TurnResets:    l.stats.turnResets.Load(),
		TurnAborts:    l.stats.turnAborts.Load(),
	}
}
