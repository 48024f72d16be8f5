package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighborTableUpsertOverwrites(t *testing.T) {
	tbl := NewNeighborTable()

	tbl.Upsert(NeighborRecord{ID: 3, Color: 1, LastHeard: 1.0})
	tbl.Upsert(NeighborRecord{ID: 3, Color: 2, LastHeard: 2.0})

	rec, ok := tbl.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, Color(2), rec.Color)
	assert.Equal(t, 2.0, rec.LastHeard)
	assert.Equal(t, 1, tbl.Len())
}

func TestNeighborTableByAddr(t *testing.T) {
	tbl := NewNeighborTable()
	tbl.Upsert(NeighborRecord{ID: 1, Addr: "node-1"})
	tbl.Upsert(NeighborRecord{ID: 2, Addr: "node-2"})

	rec, ok := tbl.ByAddr("node-2")
	require.True(t, ok)
	assert.Equal(t, NodeID(2), rec.ID)

	_, ok = tbl.ByAddr("node-9")
	assert.False(t, ok)
}

func TestNeighborTablePruneStale(t *testing.T) {
	tbl := NewNeighborTable()
	tbl.Upsert(NeighborRecord{ID: 1, LastHeard: 0.0})
	tbl.Upsert(NeighborRecord{ID: 2, LastHeard: 5.0})
	tbl.Upsert(NeighborRecord{ID: 3, LastHeard: 9.0})

	evicted := tbl.PruneStale(10.0, 3.5)

	assert.Equal(t, []NodeID{1, 2}, evicted, "evicted ids come back sorted")
	assert.Equal(t, 1, tbl.Len())
	_, ok := tbl.Lookup(3)
	assert.True(t, ok)
}

// An entry heard exactly timeout ago is still fresh; eviction needs
// strictly older.
func TestNeighborTablePruneBoundary(t *testing.T) {
	tbl := NewNeighborTable()
	tbl.Upsert(NeighborRecord{ID: 1, LastHeard: 6.5})

	assert.Empty(t, tbl.PruneStale(10.0, 3.5))
	assert.Equal(t, 1, tbl.Len())
}

func TestNeighborTableSnapshotSortedByID(t *testing.T) {
	tbl := NewNeighborTable()
	for _, id := range []NodeID{9, 2, 7, 1, 5} {
		tbl.Upsert(NeighborRecord{ID: id})
	}

	snap := tbl.Snapshot()
	require.Len(t, snap, 5)
	want := []NodeID{1, 2, 5, 7, 9}
	for i, rec := range snap {
		assert.Equal(t, want[i], rec.ID)
	}
}

func TestNeighborTableSnapshotIsACopy(t *testing.T) {
	tbl := NewNeighborTable()
	tbl.Upsert(NeighborRecord{ID: 1, Color: 1})

	snap := tbl.Snapshot()
	snap[0].Color = 9

	rec, _ := tbl.Lookup(1)
	assert.Equal(t, Color(1), rec.Color)
}
