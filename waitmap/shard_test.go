package waitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved[V any](w *waiter[V]) bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func TestShard_InsertStates(t *testing.T) {
	t.Run("insert on vacant slot occupies it", func(t *testing.T) {
		s := newShard[string, int](0)

		prev, had := s.insert("key1", 1)
		assert.False(t, had)
		assert.Equal(t, 0, prev)

		v, ok := s.get("key1")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("insert on occupied slot replaces silently", func(t *testing.T) {
		s := newShard[string, int](0)
		s.insert("key1", 1)

		prev, had := s.insert("key1", 2)
		assert.True(t, had)
		assert.Equal(t, 1, prev)
	})

	t.Run("insert on pending slot wakes every waiter", func(t *testing.T) {
		s := newShard[string, int](0)

		w1 := newWaiter[int](false)
		w2 := newWaiter[int](false)
		require.False(t, s.wait("key1", w1))
		require.False(t, s.wait("key1", w2))
		assert.False(t, resolved(w1))

		s.insert("key1", 7)

		require.True(t, resolved(w1))
		require.True(t, resolved(w2))
		assert.Equal(t, 7, w1.val)
		assert.True(t, w1.ok)
		assert.Equal(t, 7, w2.val)
		assert.True(t, w2.ok)

		// Slot is now occupied with an empty waiter set.
		sl := s.slots["key1"]
		require.NotNil(t, sl)
		assert.True(t, sl.filled)
		assert.Empty(t, sl.waiters)
	})
}

func TestShard_WaitStates(t *testing.T) {
	t.Run("wait on occupied slot resolves immediately", func(t *testing.T) {
		s := newShard[string, int](0)
		s.insert("key1", 1)

		w := newWaiter[int](false)
		assert.True(t, s.wait("key1", w))
		assert.True(t, resolved(w))
		assert.Equal(t, 1, w.val)
		assert.True(t, w.ok)
	})

	t.Run("wait on vacant slot creates a pending slot", func(t *testing.T) {
		s := newShard[string, int](0)

		w := newWaiter[int](false)
		assert.False(t, s.wait("key1", w))
		assert.False(t, resolved(w))

		sl := s.slots["key1"]
		require.NotNil(t, sl)
		assert.False(t, sl.filled)
		assert.Len(t, sl.waiters, 1)

		// get must not observe the pending slot as a value.
		_, ok := s.get("key1")
		assert.False(t, ok)
	})

	t.Run("take waiter consumes the value on wake", func(t *testing.T) {
		s := newShard[string, int](0)

		w := newWaiter[int](true)
		require.False(t, s.wait("key1", w))

		s.insert("key1", 9)

		require.True(t, resolved(w))
		assert.Equal(t, 9, w.val)
		_, present := s.slots["key1"]
		assert.False(t, present, "slot should be deleted after a take wake")
	})

	t.Run("take waiter consumes an already present value", func(t *testing.T) {
		s := newShard[string, int](0)
		s.insert("key1", 3)

		w := newWaiter[int](true)
		require.True(t, s.wait("key1", w))
		assert.Equal(t, 3, w.val)
		_, present := s.slots["key1"]
		assert.False(t, present)
	})
}

func TestShard_RemoveLeavesPendingAlone(t *testing.T) {
	s := newShard[string, int](0)

	w := newWaiter[int](false)
	require.False(t, s.wait("key1", w))

	v, ok := s.remove("key1")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.False(t, resolved(w))

	sl := s.slots["key1"]
	require.NotNil(t, sl)
	assert.Len(t, sl.waiters, 1)
}

func TestShard_Unregister(t *testing.T) {
	t.Run("last waiter leaving collapses the slot to vacant", func(t *testing.T) {
		s := newShard[string, int](0)

		w1 := newWaiter[int](false)
		w2 := newWaiter[int](false)
		require.False(t, s.wait("key1", w1))
		require.False(t, s.wait("key1", w2))

		assert.True(t, s.unregister("key1", w1.id))
		assert.True(t, resolved(w1))
		assert.False(t, w1.ok)

		sl := s.slots["key1"]
		require.NotNil(t, sl)
		assert.Len(t, sl.waiters, 1)

		assert.True(t, s.unregister("key1", w2.id))
		_, present := s.slots["key1"]
		assert.False(t, present, "slot must not dangle with zero waiters")
	})

	t.Run("unregister after wake finds nothing", func(t *testing.T) {
		s := newShard[string, int](0)

		w := newWaiter[int](false)
		require.False(t, s.wait("key1", w))
		s.insert("key1", 1)

		assert.False(t, s.unregister("key1", w.id))
		assert.True(t, w.ok, "outcome from the wake must be preserved")
	})

	t.Run("unregister on occupied or vacant slot is a no-op", func(t *testing.T) {
		s := newShard[string, int](0)
		assert.False(t, s.unregister("missing", 42))

		s.insert("key1", 1)
		assert.False(t, s.unregister("key1", 42))
	})
}

func TestShard_Cancel(t *testing.T) {
	t.Run("cancel wakes waiters with no value and collapses the slot", func(t *testing.T) {
		s := newShard[string, int](0)

		w1 := newWaiter[int](false)
		w2 := newWaiter[int](false)
		require.False(t, s.wait("key1", w1))
		require.False(t, s.wait("key1", w2))

		assert.True(t, s.cancel("key1"))

		require.True(t, resolved(w1))
		require.True(t, resolved(w2))
		assert.False(t, w1.ok)
		assert.False(t, w2.ok)

		_, present := s.slots["key1"]
		assert.False(t, present)
	})

	t.Run("cancel on vacant or occupied slot is a no-op", func(t *testing.T) {
		s := newShard[string, int](0)
		assert.False(t, s.cancel("missing"))

		s.insert("key1", 1)
		assert.False(t, s.cancel("key1"))

		v, ok := s.get("key1")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("cancel twice has the same effect as once", func(t *testing.T) {
		s := newShard[string, int](0)

		w := newWaiter[int](false)
		require.False(t, s.wait("key1", w))

		assert.True(t, s.cancel("key1"))
		assert.False(t, s.cancel("key1"))

		// The key is not poisoned: a later insert works normally.
		s.insert("key1", 5)
		v, ok := s.get("key1")
		assert.True(t, ok)
		assert.Equal(t, 5, v)
	})
}

func TestShard_Counters(t *testing.T) {
	s := newShard[string, int](0)

	s.insert("a", 1)
	s.insert("b", 2)
	w := newWaiter[int](false)
	s.wait("c", w)

	assert.Equal(t, 2, s.len())
	assert.Equal(t, 1, s.waiting())

	assert.Equal(t, 1, s.cancelAll())
	assert.Equal(t, 2, s.len())
	assert.Equal(t, 0, s.waiting())

	s.clear()
	assert.Equal(t, 0, s.len())
}
