package cache

// entry is the payload stored in each eviction-list node. Entries are
// immutable once published: an update builds a fresh node and swaps it
// into the list and the shard map, so the lock-free read path never sees
// a torn value.
type entry[K comparable, V any] struct {
	key K
	val V

	// Absolute expiration deadline in UnixNano. Zero means "no TTL".
	exp int64

	// Logical "cost" used when MaxCost is enabled.
	cost int32
}
