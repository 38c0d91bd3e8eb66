package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeIndex_Coalesce(t *testing.T) {
	ix := newFreeIndex()
	for _, s := range []span{{32, 8}, {0, 8}, {8, 8}, {48, 16}, {16, 8}, {40, 8}} {
		ix.insert(s)
	}
	require.Equal(t, 56, ix.bytes)

	merged := ix.coalesce()

	assert.Equal(t, 4, merged)
	assert.Equal(t, []span{{0, 24}, {32, 32}}, ix.spans())
	assert.Equal(t, 56, ix.bytes)
	assert.Zero(t, ix.coalesce(), "a second pass finds nothing to merge")
}

func TestFreeIndex_FirstFit(t *testing.T) {
	ix := newFreeIndex()
	ix.insert(span{0, 8})
	ix.insert(span{16, 32})
	ix.insert(span{64, 16})

	off, ok := ix.firstFit(16)
	require.True(t, ok)
	assert.Equal(t, 16, off, "lowest region that fits wins")
	assert.Equal(t, []span{{0, 8}, {32, 16}, {64, 16}}, ix.spans())

	off, ok = ix.firstFit(16)
	require.True(t, ok)
	assert.Equal(t, 32, off, "exact fit removes the region")
	assert.Equal(t, []span{{0, 8}, {64, 16}}, ix.spans())

	_, ok = ix.firstFit(32)
	assert.False(t, ok)
	assert.Equal(t, 24, ix.bytes)

	last, ok := ix.last()
	require.True(t, ok)
	assert.Equal(t, span{64, 16}, last)

	ix.reset()
	assert.Zero(t, ix.len())
	assert.Zero(t, ix.bytes)
	_, ok = ix.last()
	assert.False(t, ok)
}

func TestFreeIndex_InsertReplaces(t *testing.T) {
	ix := newFreeIndex()
	ix.insert(span{8, 8})
	ix.insert(span{8, 24})

	assert.Equal(t, 1, ix.len())
	assert.Equal(t, 24, ix.bytes)
}

func TestLiveSet(t *testing.T) {
	l := newLiveSet(8)

	require.NoError(t, l.add(0, 32))
	assert.Equal(t, 32, l.bytes())
	assert.True(t, l.overlaps(24, 16))
	assert.False(t, l.overlaps(32, 8))

	require.NoError(t, l.remove(8, 8))
	assert.ErrorIs(t, l.remove(0, 16), ErrInvalidFree)
	assert.ErrorIs(t, l.remove(3, 8), ErrInvalidFree)
	assert.Equal(t, 24, l.bytes())

	l.reset()
	assert.Zero(t, l.bytes())
}
