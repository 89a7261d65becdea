// Package waitmap provides a sharded concurrent map whose entries can be
// awaited: a goroutine can suspend until some other goroutine publishes a
// value under a key, or until that wait is cancelled.
//
// It generalizes a locked map with a per-key future protocol. A key is
// either vacant, occupied by a value, or pending with one or more registered
// waiters; Insert resolves every waiter at once (broadcast, not a queue pop,
// since a published value is valid for all readers), Cancel resolves them
// with the no-value outcome, and Get stays a non-blocking fast path that
// never observes waiters.
package waitmap

import (
	"fmt"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

type Config struct {

	// NumShards describes the number of shards for the map, more shards means less contention
	// between operations on different keys, at the price of a little memory overhead per shard
	// it is rounded up to the next power of 2
	NumShards uint64

	// InitialCapacity is a per-shard pre-sizing hint for the underlying maps
	// a good hint reduces rehash churn while the map warms up, it does not bound the map
	InitialCapacity int
}

func DefaultConfig() Config {
	return Config{
		NumShards:       256, // the number of shards for the map
		InitialCapacity: 0,
	}
}

func (c *Config) Validate() error {
	if c.NumShards <= 0 {
		return fmt.Errorf("NumShards must be greater than 0")
	}

	if c.InitialCapacity < 0 {
		return fmt.Errorf("InitialCapacity must not be negative")
	}

	return nil
}

// Map is a concurrent map of K to V that supports Insert, Get, Remove, Wait
// and Cancel operations. All operations are safe for concurrent use; each
// one runs as a single critical section on the shard owning its key, and no
// operation ever holds a shard lock while blocked.
type Map[K comparable, V any] struct {
	conf Config

	shards    []*shard[K, V]
	shardMask uint64

	seed maphash.Seed
}

// New creates a new map with the given configuration.
func New[K comparable, V any](conf Config) (*Map[K, V], error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	numShards := nextPowerOfTwo(conf.NumShards)

	m := &Map[K, V]{
		conf:      conf,
		shards:    make([]*shard[K, V], numShards),
		shardMask: numShards - 1,
		seed:      maphash.MakeSeed(),
	}

	for i := range m.shards {
		m.shards[i] = newShard[K, V](conf.InitialCapacity)
	}

	return m, nil
}

// hash routes a key to its shard. String keys use XXH64, which is fast and
// well distributed - see https://github.com/cespare/xxhash. Every other
// comparable key type goes through hash/maphash with a per-map seed.
func (m *Map[K, V]) hash(key K) uint64 {
	if s, ok := any(key).(string); ok {
		return xxhash.Sum64String(s)
	}
	return maphash.Comparable(m.seed, key)
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[m.hash(key)&m.shardMask]
}

// Insert commits a value under key and returns the previous value, if any.
// Every goroutine currently waiting on key is woken with the new value.
// Overwriting an existing value is silent; an occupied key cannot have
// waiters, so there is nobody to notify.
func (m *Map[K, V]) Insert(key K, value V) (V, bool) {
	return m.shardFor(key).insert(key, value)
}

// Get returns the value under key if one is present. It never blocks: a key
// that is merely being waited on reports the same result as an absent one.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.shardFor(key).get(key)
}

// Has checks if a value is present under key.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove deletes the value under key and returns it. It never blocks and
// does not disturb waiters: a pending key stays pending.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	return m.shardFor(key).remove(key)
}

// Cancel wakes every goroutine currently waiting on key with the no-value
// outcome and reports whether any wait was pending. It is idempotent, a
// no-op on absent or occupied keys, and does not affect later waits: a wait
// started after Cancel returns begins a fresh pending cycle.
func (m *Map[K, V]) Cancel(key K) bool {
	return m.shardFor(key).cancel(key)
}

// CancelAll cancels every pending wait in the map, taking one shard lock at
// a time, and returns the number of keys that had waiters.
func (m *Map[K, V]) CancelAll() int {
	n := 0
	for _, shard := range m.shards {
		n += shard.cancelAll()
	}
	return n
}

// Clear removes every value and cancels every pending wait.
func (m *Map[K, V]) Clear() {
	for _, shard := range m.shards {
		shard.clear()
	}
}

// Len returns the number of keys holding a value. Keys that are only being
// waited on do not count.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, shard := range m.shards {
		n += shard.len()
	}
	return n
}

// Waiting returns the number of wait registrations currently pending across
// the whole map.
func (m *Map[K, V]) Waiting() int {
	n := 0
	for _, shard := range m.shards {
		n += shard.waiting()
	}
	return n
}

// ShardCount returns the number of shards, after rounding.
func (m *Map[K, V]) ShardCount() int {
	return len(m.shards)
}
