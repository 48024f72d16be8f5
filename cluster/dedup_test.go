package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupSet(t *testing.T) {
	d := NewDedupSet()

	assert.False(t, d.Seen(1, 1))
	d.Mark(1, 1)
	assert.True(t, d.Seen(1, 1))

	// Same seq from a different source is a different unit.
	assert.False(t, d.Seen(2, 1))
	// Same source, next seq.
	assert.False(t, d.Seen(1, 2))

	d.Mark(1, 1) // idempotent
	assert.Equal(t, 1, d.Len())
}

func TestRouteCache(t *testing.T) {
	c := NewRouteCache()

	_, ok := c.Lookup(9)
	assert.False(t, ok)

	c.Learn(9, 4)
	gw, ok := c.Lookup(9)
	assert.True(t, ok)
	assert.Equal(t, NodeID(4), gw)

	// Fresher observation replaces the hint.
	c.Learn(9, 6)
	gw, _ = c.Lookup(9)
	assert.Equal(t, NodeID(6), gw)

	c.Evict(9)
	_, ok = c.Lookup(9)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
