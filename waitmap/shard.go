package waitmap

import (
	"sync"
)

// slot is the state of a single key within a shard.
//
// A slot is always in exactly one of two states:
//   - occupied: filled is true, value holds the committed value, waiters is empty
//   - pending:  filled is false and waiters is non-empty
//
// A slot that is neither occupied nor pending is deleted from the shard map
// immediately, so absence from the map is the only representation of a vacant
// key. Every transition happens under the owning shard's lock.
type slot[V any] struct {
	value   V
	filled  bool
	waiters []*waiter[V]
}

// shard owns one partition of the key space: a map of keys to slots guarded
// by a single lock. All slot mutation, including waiter registration and
// wakeups, happens inside the shard's critical section, which is what rules
// out lost wakeups between "saw no value" and "registered to be woken".
type shard[K comparable, V any] struct {
	sync.RWMutex
	slots map[K]*slot[V]
}

func newShard[K comparable, V any](capacity int) *shard[K, V] {
	return &shard[K, V]{
		slots: make(map[K]*slot[V], capacity),
	}
}

// insert commits a value for key and returns the previous value if the slot
// was occupied. A pending slot transitions to occupied and every registered
// waiter is woken with the new value; the broadcast is deliberate, a
// committed value is valid for all waiters at once.
func (s *shard[K, V]) insert(key K, value V) (V, bool) {
	s.Lock()
	defer s.Unlock()

	sl, ok := s.slots[key]
	if !ok {
		s.slots[key] = &slot[V]{value: value, filled: true}
		return zeroValue[V](), false
	}

	if sl.filled {
		// Silent overwrite: no waiters can coexist with an occupied slot.
		prev := sl.value
		sl.value = value
		return prev, true
	}

	sl.value = value
	sl.filled = true

	woken := sl.waiters
	sl.waiters = nil

	taken := false
	for _, w := range woken {
		w.resolve(value, true)
		if w.take {
			taken = true
		}
	}
	if taken {
		// At least one waiter asked to consume the value on arrival.
		delete(s.slots, key)
	}
	return zeroValue[V](), false
}

// get is the non-blocking fast path. It never observes waiters: a pending
// slot reports the same result as a vacant one.
func (s *shard[K, V]) get(key K) (V, bool) {
	s.RLock()
	defer s.RUnlock()

	sl, ok := s.slots[key]
	if !ok || !sl.filled {
		return zeroValue[V](), false
	}
	return sl.value, true
}

// remove deletes an occupied slot and returns its value. A pending slot is
// left untouched; the registered waiters keep waiting for a future insert.
func (s *shard[K, V]) remove(key K) (V, bool) {
	s.Lock()
	defer s.Unlock()

	sl, ok := s.slots[key]
	if !ok || !sl.filled {
		return zeroValue[V](), false
	}

	delete(s.slots, key)
	return sl.value, true
}

// wait either resolves w immediately against an occupied slot or registers it
// in the slot's waiter set, creating a pending slot if the key is vacant.
// The occupancy check and the registration share one critical section.
// It reports whether w was resolved immediately.
func (s *shard[K, V]) wait(key K, w *waiter[V]) bool {
	s.Lock()
	defer s.Unlock()

	sl, ok := s.slots[key]
	if !ok {
		sl = &slot[V]{}
		s.slots[key] = sl
	}

	if sl.filled {
		w.resolve(sl.value, true)
		if w.take {
			delete(s.slots, key)
		}
		return true
	}

	sl.waiters = append(sl.waiters, w)
	return false
}

// unregister removes the waiter identified by id from key's waiter set and
// resolves it with the no-value outcome. A pending slot whose last waiter
// leaves collapses back to vacant. It reports whether the waiter was still
// registered; a waiter that was already woken is not found and nothing
// changes, which is what makes abandonment safe to race with insert/cancel.
func (s *shard[K, V]) unregister(key K, id uint64) bool {
	s.Lock()
	defer s.Unlock()

	sl, ok := s.slots[key]
	if !ok || sl.filled {
		return false
	}

	for i, w := range sl.waiters {
		if w.id != id {
			continue
		}
		sl.waiters = append(sl.waiters[:i], sl.waiters[i+1:]...)
		w.resolve(zeroValue[V](), false)
		if len(sl.waiters) == 0 {
			delete(s.slots, key)
		}
		return true
	}
	return false
}

// cancel wakes every waiter on a pending slot with the no-value outcome and
// collapses the slot to vacant. Occupied and vacant slots are untouched, so
// cancellation is a point-in-time signal, not a tombstone: a later wait on
// the same key starts a fresh pending cycle.
func (s *shard[K, V]) cancel(key K) bool {
	s.Lock()
	defer s.Unlock()

	sl, ok := s.slots[key]
	if !ok || sl.filled {
		return false
	}

	for _, w := range sl.waiters {
		w.resolve(zeroValue[V](), false)
	}
	delete(s.slots, key)
	return true
}

// cancelAll cancels every pending slot in this shard.
func (s *shard[K, V]) cancelAll() int {
	s.Lock()
	defer s.Unlock()

	n := 0
	for key, sl := range s.slots {
		if sl.filled {
			continue
		}
		for _, w := range sl.waiters {
			w.resolve(zeroValue[V](), false)
		}
		delete(s.slots, key)
		n++
	}
	return n
}

// clear drops every occupied entry and wakes every waiter with the no-value
// outcome, then reinitializes the shard map and lets GC reclaim the old one.
func (s *shard[K, V]) clear() {
	s.Lock()
	defer s.Unlock()

	for _, sl := range s.slots {
		for _, w := range sl.waiters {
			w.resolve(zeroValue[V](), false)
		}
	}
	s.slots = make(map[K]*slot[V])
}

// len counts occupied slots only; pending slots are invisible.
func (s *shard[K, V]) len() int {
	s.RLock()
	defer s.RUnlock()

	n := 0
	for _, sl := range s.slots {
		if sl.filled {
			n++
		}
	}
	return n
}

// waiting counts waiters registered across all pending slots.
func (s *shard[K, V]) waiting() int {
	s.RLock()
	defer s.RUnlock()

	n := 0
	for _, sl := range s.slots {
		n += len(sl.waiters)
	}
	return n
}
