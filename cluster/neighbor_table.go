package cluster

import (
	"sort"

	"github.com/meshlab/meshcluster/transport"
)

// NeighborTable is a node's view of its 1-hop radio neighborhood,
// keyed by neighbor id. It is owned exclusively by the node's handlers
// and carries no lock of its own.
type NeighborTable struct {
	entries map[NodeID]NeighborRecord
}

func NewNeighborTable() *NeighborTable {
	return &NeighborTable{entries: make(map[NodeID]NeighborRecord)}
}

// Upsert overwrites the entry for rec.ID with the freshest observation.
func (t *NeighborTable) Upsert(rec NeighborRecord) {
	t.entries[rec.ID] = rec
}

func (t *NeighborTable) Lookup(id NodeID) (NeighborRecord, bool) {
	rec, ok := t.entries[id]
	return rec, ok
}

// ByAddr finds the neighbor contactable at addr. Linear scan; the
// table is a 1-hop neighborhood, not a routing table.
func (t *NeighborTable) ByAddr(addr transport.Address) (NeighborRecord, bool) {
	for _, rec := range t.entries {
		if rec.Addr == addr {
			return rec, true
		}
	}
	return NeighborRecord{}, false
}

// PruneStale evicts every entry with now-LastHeard > timeout and
// returns the evicted ids.
func (t *NeighborTable) PruneStale(now, timeout float64) []NodeID {
	var stale []NodeID
	for id, rec := range t.entries {
		if now-rec.LastHeard > timeout {
			stale = append(stale, id)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	for _, id := range stale {
		delete(t.entries, id)
	}
	return stale
}

// Snapshot returns the current entries sorted by id. Every algorithm
// that scans the neighborhood iterates this view, so "smallest id"
// decisions are reproducible regardless of map iteration order.
func (t *NeighborTable) Snapshot() []NeighborRecord {
	out := make([]NeighborRecord, 0, len(t.entries))
	for _, rec := range t.entries {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *NeighborTable) Len() int {
	return len(t.entries)
}
