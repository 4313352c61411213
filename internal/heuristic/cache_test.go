package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 2, c.Size())
}

func TestCache_ZeroSizeDisabled(t *testing.T) {
	c := NewCache(0)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}
