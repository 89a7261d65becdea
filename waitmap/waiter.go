package waitmap

import (
	"context"
	"sync/atomic"
)

// waiterID issues identities that are unique per Wait call, not per key, so
// one goroutine can wait on the same key several times and each registration
// is tracked and removable on its own.
var waiterID atomic.Uint64

// waiter is a single registration in a slot's waiter set. Its outcome fields
// are written exactly once, under the owning shard's lock, before done is
// closed; the channel close publishes them to the waiting goroutine.
type waiter[V any] struct {
	id   uint64
	take bool

	val  V
	ok   bool
	done chan struct{}
}

func newWaiter[V any](take bool) *waiter[V] {
	return &waiter[V]{
		id:   waiterID.Add(1),
		take: take,
		done: make(chan struct{}),
	}
}

// resolve records the outcome and wakes the waiting goroutine. It must be
// called under the shard lock and at most once per waiter; a waiter is
// always removed from its slot's waiter set in the same critical section.
func (w *waiter[V]) resolve(value V, ok bool) {
	w.val = value
	w.ok = ok
	close(w.done)
}

// Waiter is a pending wait on a single key, returned by Map.Wait.
//
// A Waiter resolves with a value once one is inserted under its key, or with
// the no-value outcome once the key is cancelled. A Waiter that is abandoned
// before resolution must be released with Stop, which removes its
// registration from the map's internal bookkeeping; otherwise repeatedly
// started and dropped waits would accumulate stale registrations.
type Waiter[K comparable, V any] struct {
	m   *Map[K, V]
	key K
	w   *waiter[V]
}

// Done returns a channel that is closed once the wait has resolved, whether
// with a value, by cancellation, or by Stop. It is intended for use in
// select statements alongside timeouts or other events.
func (wt *Waiter[K, V]) Done() <-chan struct{} {
	return wt.w.done
}

// Value blocks until the wait resolves. It returns the inserted value and
// true, or the zero value and false if the wait was cancelled or stopped.
func (wt *Waiter[K, V]) Value() (V, bool) {
	<-wt.w.done
	return wt.w.val, wt.w.ok
}

// TryValue reports the outcome without blocking. The third return value is
// false while the wait is still pending.
func (wt *Waiter[K, V]) TryValue() (V, bool, bool) {
	select {
	case <-wt.w.done:
		return wt.w.val, wt.w.ok, true
	default:
		return zeroValue[V](), false, false
	}
}

// Stop abandons the wait: the registration is removed from the key's waiter
// set and, if it was the last one, the key collapses back to vacant. A wait
// that already resolved is unaffected. Stop is idempotent and safe to call
// concurrently with Insert and Cancel; whichever resolves the waiter first
// under the shard lock wins.
func (wt *Waiter[K, V]) Stop() {
	wt.m.shardFor(wt.key).unregister(wt.key, wt.w.id)
}

// Key returns the key this wait is registered on.
func (wt *Waiter[K, V]) Key() K {
	return wt.key
}

// Wait returns a Waiter for key. If the key already holds a value the Waiter
// is resolved before Wait returns; otherwise the calling goroutine is
// registered to be woken by a later Insert or Cancel. The check for an
// existing value and the registration happen in one shard critical section,
// so no interleaved Insert or Cancel can slip between them.
func (m *Map[K, V]) Wait(key K) *Waiter[K, V] {
	w := newWaiter[V](false)
	m.shardFor(key).wait(key, w)
	return &Waiter[K, V]{m: m, key: key, w: w}
}

// WaitContext blocks until a value is inserted under key, the key is
// cancelled, or ctx is done. It returns the value and true, the zero value
// and false on cancellation, or the zero value, false and ctx.Err() if the
// context won; in that case the registration is removed before returning.
func (m *Map[K, V]) WaitContext(ctx context.Context, key K) (V, bool, error) {
	wt := m.Wait(key)
	select {
	case <-wt.Done():
		v, ok := wt.Value()
		return v, ok, nil
	case <-ctx.Done():
		wt.Stop()
		// Stop races with a concurrent wake; if the wake won, prefer its
		// outcome over the context error.
		if v, ok := wt.Value(); ok {
			return v, true, nil
		}
		return zeroValue[V](), false, ctx.Err()
	}
}

// WaitRemove blocks like WaitContext but consumes the value: once a value is
// inserted under key it is removed from the map and returned. Plain waiters
// registered on the same key still receive the value; the slot is deleted
// after the broadcast. If several WaitRemove calls race on one key they all
// receive the value and the key ends up absent.
func (m *Map[K, V]) WaitRemove(ctx context.Context, key K) (V, bool, error) {
	w := newWaiter[V](true)
	m.shardFor(key).wait(key, w)
	wt := &Waiter[K, V]{m: m, key: key, w: w}
	select {
	case <-wt.Done():
		v, ok := wt.Value()
		return v, ok, nil
	case <-ctx.Done():
		wt.Stop()
		if v, ok := wt.Value(); ok {
			return v, true, nil
		}
		return zeroValue[V](), false, ctx.Err()
	}
}
