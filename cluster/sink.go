package cluster

import "sync"

// DropReason classifies why the router discarded a data unit. Most of
// these are normal suppression paths, not errors.
type DropReason string

const (
	DropAddrMiss     DropReason = "addr-miss"     // explicit next hop is someone else
	DropDuplicate    DropReason = "duplicate"     // (source, seq) already processed
	DropNotForwarder DropReason = "not-forwarder" // member/undecided never relays
	DropTTLExpired   DropReason = "ttl-expired"
	DropOrphan       DropReason = "orphan"       // no reachable cluster head
	DropNoGateway    DropReason = "no-gateway"   // nothing to flood to
	DropPeerGone     DropReason = "peer-gone"    // delayed send, target vanished
	DropDecodeError  DropReason = "decode-error" // malformed frame
)

// Sink is the telemetry collaborator: the router reports every
// delivery, forward decision and drop to it.
type Sink interface {
	Delivered(unit DataUnit)
	Forwarded(unit DataUnit)
	Dropped(unit DataUnit, reason DropReason)
}

// Counters is a Sink that just counts, safe for concurrent readers.
type Counters struct {
	mu        sync.Mutex
	delivered int
	forwarded int
	dropped   map[DropReason]int
}

func NewCounters() *Counters {
	return &Counters{dropped: make(map[DropReason]int)}
}

func (c *Counters) Delivered(DataUnit) {
	c.mu.Lock()
	c.delivered++
	c.mu.Unlock()
}

func (c *Counters) Forwarded(DataUnit) {
	c.mu.Lock()
	c.forwarded++
	c.mu.Unlock()
}

func (c *Counters) Dropped(_ DataUnit, reason DropReason) {
	c.mu.Lock()
	c.dropped[reason]++
	c.mu.Unlock()
}

// CounterSnapshot is a point-in-time copy of the counters.
type CounterSnapshot struct {
	Delivered int                `json:"delivered"`
	Forwarded int                `json:"forwarded"`
	Dropped   map[DropReason]int `json:"dropped"`
}

func (c *Counters) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := make(map[DropReason]int, len(c.dropped))
	for k, v := range c.dropped {
		dropped[k] = v
	}
	return CounterSnapshot{Delivered: c.delivered, Forwarded: c.forwarded, Dropped: dropped}
}

// nopSink is the default when the caller does not care.
type nopSink struct{}

func (nopSink) Delivered(DataUnit)           {}
func (nopSink) Forwarded(DataUnit)           {}
func (nopSink) Dropped(DataUnit, DropReason) {}
