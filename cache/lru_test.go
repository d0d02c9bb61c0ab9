package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetPut(t *testing.T) {
	c := New[[]string](3)

	_, ok := c.Get("fever")
	assert.False(t, ok, "absent key")

	c.Put("fever", []string{"HP:0001945"})
	c.Put("nothing", nil)

	v, ok := c.Get("fever")
	require.True(t, ok)
	assert.Equal(t, []string{"HP:0001945"}, v)

	v, ok = c.Get("nothing")
	assert.True(t, ok, "empty value is distinguished from absent key")
	assert.Nil(t, v)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// touch a so b becomes the oldest
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRU_PutExistingUpdatesAndTouches(t *testing.T) {
	c := New[int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)
	c.Put("c", 3)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_LastAccessMonotonic(t *testing.T) {
	c := New[int](4)
	c.Put("a", 1)
	c.Put("b", 2)
	first := c.LastAccess("a")

	_, _ = c.Get("a")
	assert.Greater(t, c.LastAccess("a"), first)
	assert.Greater(t, c.LastAccess("a"), c.LastAccess("b"))
	assert.Zero(t, c.LastAccess("missing"))
}

func TestLRU_StatsAndClear(t *testing.T) {
	c := New[int](0)
	c.Put("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("z")

	s := c.Stats()
	assert.Equal(t, DefaultCapacity, s.Capacity)
	assert.Equal(t, 1, s.Len)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)

	c.Clear()
	assert.Zero(t, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
