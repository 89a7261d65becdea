package waitmap

// Entry is one key-value pair observed during iteration.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Range calls fn for every key currently holding a value. The callback
// returns false to stop early.
//
// Each shard's lock is held only while that shard's entries are copied out,
// never during the callback, so fn may itself operate on the map. The view
// is point-in-time per shard, not a consistent snapshot of the whole map: a
// value inserted into an already-visited shard during iteration is not
// observed. Pending keys are skipped entirely.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, shard := range m.shards {
		shard.RLock()
		entries := make([]Entry[K, V], 0, len(shard.slots))
		for k, sl := range shard.slots {
			if sl.filled {
				entries = append(entries, Entry[K, V]{Key: k, Value: sl.value})
			}
		}
		shard.RUnlock()

		for _, e := range entries {
			if !fn(e.Key, e.Value) {
				return
			}
		}
	}
}

// Keys returns the keys of all occupied entries.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns the values of all occupied entries.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Len())
	m.Range(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

// Items returns all occupied entries as a slice, with the same weak
// consistency as Range.
func (m *Map[K, V]) Items() []Entry[K, V] {
	items := make([]Entry[K, V], 0, m.Len())
	m.Range(func(key K, value V) bool {
		items = append(items, Entry[K, V]{Key: key, Value: value})
		return true
	})
	return items
}

// ShardStats describes the load of a single shard.
type ShardStats struct {
	Index   int
	Entries int
	Waiters int
}

// Stats returns per-shard occupancy and pending-waiter counts, useful for
// checking key distribution when tuning NumShards.
func (m *Map[K, V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, shard := range m.shards {
		shard.RLock()
		entries, waiters := 0, 0
		for _, sl := range shard.slots {
			if sl.filled {
				entries++
			}
			waiters += len(sl.waiters)
		}
		shard.RUnlock()
		stats[i] = ShardStats{Index: i, Entries: entries, Waiters: waiters}
	}
	return stats
}
