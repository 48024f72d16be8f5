package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func attached(id NodeID, color Color, cluster NodeID) NeighborRecord {
	return NeighborRecord{ID: id, Color: color, Cluster: cluster}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		color     Color
		self      NodeID
		neighbors []NeighborRecord
		want      Resolution
	}{
		{
			name:  "unassigned color means undecided",
			color: ColorNone,
			self:  5,
			want:  Resolution{Color: ColorNone, Role: RoleUndecided, Cluster: NodeNone},
		},
		{
			name:      "head color means cluster head of own cluster",
			color:     0,
			self:      5,
			neighbors: []NeighborRecord{attached(3, 1, 5)},
			want:      Resolution{Color: 0, Role: RoleClusterHead, Cluster: 5},
		},
		{
			name:  "isolated head stays head",
			color: 0,
			self:  5,
			want:  Resolution{Color: 0, Role: RoleClusterHead, Cluster: 5},
		},
		{
			name:      "member attaches to the only head",
			color:     1,
			self:      5,
			neighbors: []NeighborRecord{attached(3, 0, 3)},
			want:      Resolution{Color: 1, Role: RoleMember, Cluster: 3},
		},
		{
			name:  "member attaches to smallest-id head",
			color: 1,
			self:  5,
			neighbors: []NeighborRecord{
				attached(2, 0, 2),
				attached(7, 0, 7),
			},
			want: Resolution{Color: 1, Role: RoleMember, Cluster: 2},
		},
		{
			name:      "colored node without a head demotes to undecided",
			color:     2,
			self:      5,
			neighbors: []NeighborRecord{attached(3, 1, 2), attached(4, 2, 2)},
			want:      Resolution{Color: ColorNone, Role: RoleUndecided, Cluster: NodeNone},
		},
		{
			name:  "foreign-cluster neighbor makes a gateway",
			color: 1,
			self:  5,
			neighbors: []NeighborRecord{
				attached(2, 0, 2),
				attached(8, 1, 9),
			},
			want: Resolution{Color: 1, Role: RoleGateway, Cluster: 2},
		},
		{
			name:  "unattached neighbors do not make a gateway",
			color: 1,
			self:  5,
			neighbors: []NeighborRecord{
				attached(2, 0, 2),
				attached(8, ColorNone, NodeNone),
			},
			want: Resolution{Color: 1, Role: RoleMember, Cluster: 2},
		},
		{
			name:  "same-cluster neighbors stay member",
			color: 1,
			self:  5,
			neighbors: []NeighborRecord{
				attached(2, 0, 2),
				attached(8, 2, 2),
				attached(9, 3, 2),
			},
			want: Resolution{Color: 1, Role: RoleMember, Cluster: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.color, tt.self, tt.neighbors)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Resolving twice from the same inputs never changes the answer.
func TestResolveIdempotent(t *testing.T) {
	neighbors := []NeighborRecord{
		attached(2, 0, 2),
		attached(8, 1, 9),
	}
	first := Resolve(1, 5, neighbors)
	second := Resolve(first.Color, 5, neighbors)
	assert.Equal(t, first, second)
}

// A head losing color 0 through Resolve is impossible: Resolve keys
// purely off the color it is given.
func TestResolveHeadIgnoresNeighborClusters(t *testing.T) {
	got := Resolve(0, 5, []NeighborRecord{
		attached(2, 0, 2),
		attached(8, 1, 9),
	})
	assert.Equal(t, Resolution{Color: 0, Role: RoleClusterHead, Cluster: 5}, got)
}
