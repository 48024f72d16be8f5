package cluster

type dedupKey struct {
	source NodeID
	seq    uint32
}

// DedupSet records (source, seq) pairs already processed so flooded
// duplicates are suppressed. Append-only and unbounded; bounding or
// aging it is a deliberate simplification left to deployments that
// need it.
type DedupSet struct {
	seen map[dedupKey]struct{}
}

func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[dedupKey]struct{})}
}

func (d *DedupSet) Seen(source NodeID, seq uint32) bool {
	_, ok := d.seen[dedupKey{source, seq}]
	return ok
}

func (d *DedupSet) Mark(source NodeID, seq uint32) {
	d.seen[dedupKey{source, seq}] = struct{}{}
}

func (d *DedupSet) Len() int {
	return len(d.seen)
}
