package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestLRU_BasicGetPut(t *testing.T) {
	c := New[string](3, 0, nil)

	c.Put("a", "A")
	c.Put("b", "B")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRU_Eviction(t *testing.T) {
	c := New[string](2, 0, nil)

	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("c", "C") // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_AccessPromotesEntry(t *testing.T) {
	c := New[string](2, 0, nil)

	c.Put("a", "A")
	c.Put("b", "B")

	c.Get("a")

	// "b" is now least recently used.
	c.Put("c", "C")

	_, ok := c.Get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := New[string](2, 0, nil)

	c.Put("a", "A1")
	c.Put("a", "A2")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Delete(t *testing.T) {
	c := New[int](2, 0, nil)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Delete("a")
	c.Delete("missing")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	// The list must stay consistent after deleting the head.
	c.Put("c", 3)
	c.Put("d", 4)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_TTL(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New[int](10, time.Minute, clock)

	c.Put("a", 1)
	clock.Advance(59 * time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(time.Second)

	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire at its ttl")
	assert.Equal(t, 0, c.Len())
}

func TestLRU_PutResetsTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int](10, time.Minute, clock)

	c.Put("a", 1)
	clock.Advance(50 * time.Second)
	c.Put("a", 2)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
