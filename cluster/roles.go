package cluster

// Resolution is the role resolver's output. Color is part of it
// because the Undecided demotion resets a previously assigned color:
// a node that colored itself before any cluster head became visible
// falls back to ColorNone and recolors on the next pass.
type Resolution struct {
	Color   Color
	Role    Role
	Cluster NodeID
}

// Resolve derives role and cluster attachment from the node's color
// and an id-sorted neighbor snapshot. Idempotent: unchanged inputs
// yield an unchanged Resolution.
//
// Attachment is strictly single-hop: the cluster head is the
// smallest-id neighbor holding color 0, never anything further away.
func Resolve(color Color, self NodeID, neighbors []NeighborRecord) Resolution {
	if color == ColorNone {
		return Resolution{Color: ColorNone, Role: RoleUndecided, Cluster: NodeNone}
	}
	if color == ColorHead {
		return Resolution{Color: color, Role: RoleClusterHead, Cluster: self}
	}

	// Snapshot is sorted by id, so the first color-0 neighbor is the
	// smallest-id candidate.
	head := NodeNone
	for _, n := range neighbors {
		if n.Color == ColorHead {
			head = n.ID
			break
		}
	}
	if head == NodeNone {
		// Undecided demotion: colored, but no cluster head in sight.
		return Resolution{Color: ColorNone, Role: RoleUndecided, Cluster: NodeNone}
	}

	role := RoleMember
	for _, n := range neighbors {
		if n.Cluster != NodeNone && n.Cluster != head {
			role = RoleGateway
			break
		}
	}
	return Resolution{Color: color, Role: role, Cluster: head}
}
