package cluster

/*
Greedy self-healing graph coloring under 1-hop visibility.

Every node periodically recomputes its own color from nothing but its
id, its current color and the neighbor table. No randomness, no global
view: identical inputs always produce the identical output, and ties
between neighbors claiming the same color are broken by numeric id
(smaller id keeps the color, the larger one moves).

The rules, in priority order:

 1. Conflict: a neighbor with a smaller id holds our color. We lost
    the tie-break and must recolor.
 2. (Re)coloring: uncolored or conflicted, take the smallest
    non-negative color no neighbor uses.
 3. Cluster-head recovery: validly colored, nobody around holds color
    0 and we don't either, claim color 0. Two simultaneous claimants
    resolve through rule 1 on a later pass.
 4. Compaction: colored above 0, move down to the smallest free color
    >= 1 if that is lower than what we hold. Never move up. This
    reclaims the holes departed neighbors leave behind and keeps the
    color space compact. Color 0 stays reserved for cluster heads.
*/

// NextColor computes the node's next color from an id-sorted neighbor
// snapshot. It returns the current color unchanged when no rule fires.
func NextColor(current Color, self NodeID, neighbors []NeighborRecord) Color {
	if current == ColorNone || hasConflict(current, self, neighbors) {
		return smallestFree(neighbors, 0)
	}
	if current != ColorHead && !colorInUse(neighbors, ColorHead) {
		return ColorHead
	}
	if current > ColorHead {
		if c := smallestFree(neighbors, 1); c < current {
			return c
		}
	}
	return current
}

// hasConflict reports whether a smaller-id neighbor holds color c.
func hasConflict(c Color, self NodeID, neighbors []NeighborRecord) bool {
	for _, n := range neighbors {
		if n.Color == c && n.ID < self {
			return true
		}
	}
	return false
}

func colorInUse(neighbors []NeighborRecord, c Color) bool {
	for _, n := range neighbors {
		if n.Color == c {
			return true
		}
	}
	return false
}

// smallestFree returns the smallest color >= floor not held by any
// neighbor.
func smallestFree(neighbors []NeighborRecord, floor Color) Color {
	used := make(map[Color]bool, len(neighbors))
	for _, n := range neighbors {
		if n.Color >= 0 {
			used[n.Color] = true
		}
	}
	candidate := floor
	for used[candidate] {
		candidate++
	}
	return candidate
}
