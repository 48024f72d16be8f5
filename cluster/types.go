package cluster

import "github.com/meshlab/meshcluster/transport"

// NodeID is a node's stable integer identifier, immutable for the
// node's lifetime and unique network-wide.
type NodeID int

// NodeNone marks an absent node reference (no cluster head, no
// explicit next hop).
const NodeNone NodeID = -1

// Color is a node's graph color. Color 0 is reserved for cluster
// heads; ColorNone means not yet assigned.
type Color int

const (
	ColorNone Color = -1
	ColorHead Color = 0
)

// Role is a node's place in the cluster hierarchy.
type Role uint8

const (
	RoleUndecided Role = iota
	RoleClusterHead
	RoleMember
	RoleGateway
)

func (r Role) String() string {
	switch r {
	case RoleUndecided:
		return "undecided"
	case RoleClusterHead:
		return "cluster-head"
	case RoleMember:
		return "member"
	case RoleGateway:
		return "gateway"
	}
	return "invalid"
}

func validRole(v uint64) bool {
	return v <= uint64(RoleGateway)
}

// Advertisement is the periodic multicast beacon carrying a node's
// locally computed state to its radio neighbors.
type Advertisement struct {
	Sender  NodeID
	Color   Color
	Role    Role
	Cluster NodeID
}

// DataUnit is one application data unit moving through the role
// hierarchy. NextHop set to NodeNone means the unit is unaddressed
// (flooded); any other value makes every node except that one discard
// the unit on arrival.
type DataUnit struct {
	Source  NodeID
	Seq     uint32
	TTL     int
	Dest    NodeID
	NextHop NodeID
	Created float64
}

// NeighborRecord is the last advertised state of one radio neighbor
// plus the freshness timestamp used for staleness eviction.
type NeighborRecord struct {
	ID        NodeID
	Addr      transport.Address
	Color     Color
	Role      Role
	Cluster   NodeID
	LastHeard float64
}
