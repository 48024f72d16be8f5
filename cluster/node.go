// Package cluster implements a self-stabilizing, fully distributed
// clustering protocol for multi-hop wireless networks.
//
// Each node periodically advertises its local state to whoever can
// hear it, greedily computes a graph color from its 1-hop view,
// derives a role from the coloring (cluster head / member / gateway /
// undecided), and routes best-effort data traffic across the role
// hierarchy: members uplink to their cluster head, heads relay along
// a backbone of gateways, gateways bridge clusters. There is no
// central coordinator and no global clock; the protocol converges
// whenever the topology holds still long enough relative to the
// maintenance interval.
//
// A Node is a single-threaded reactive actor. It never blocks: every
// delayed action is a callback scheduled on the injected
// sched.Scheduler, and every handler runs serialized against the
// node's own state. The network is the injected transport.Transport.
// All randomness lives in scheduling jitter; the coloring and role
// decisions themselves are deterministic.
package cluster

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/meshlab/meshcluster/sched"
	"github.com/meshlab/meshcluster/transport"
)

// TimerKind names the node's periodic activities.
type TimerKind int

const (
	TimerHello TimerKind = iota
	TimerColoring
	TimerMaintenance
	TimerData
)

func (k TimerKind) String() string {
	switch k {
	case TimerHello:
		return "hello"
	case TimerColoring:
		return "coloring"
	case TimerMaintenance:
		return "maintenance"
	case TimerData:
		return "data"
	}
	return "unknown"
}

// LogFunc receives the node's log lines.
type LogFunc func(format string, args ...interface{})

// Node is one protocol participant.
type Node struct {
	mu sync.Mutex

	cfg     Config
	id      NodeID
	color   Color
	role    Role
	cluster NodeID
	seq     uint32

	neighbors *NeighborTable
	dedup     *DedupSet
	routes    *RouteCache

	// known accumulates every node id ever observed (neighbors and
	// data sources); the synthetic traffic generator picks
	// destinations from it.
	known map[NodeID]struct{}

	scheduler sched.Scheduler
	tr        transport.Transport
	rng       *rand.Rand
	sink      Sink
	logf      LogFunc

	running     bool
	nextTimerID int
	pending     map[int]sched.Timer
}

// NewNode validates cfg and builds a node. rng feeds scheduling
// jitter only. A nil sink or logf is replaced by a no-op.
func NewNode(id NodeID, cfg Config, s sched.Scheduler, tr transport.Transport, rng *rand.Rand, sink Sink, logf LogFunc) (*Node, error) {
	if id < 0 {
		return nil, ErrInvalidNodeID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if sink == nil {
		sink = nopSink{}
	}
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Node{
		cfg:       cfg,
		id:        id,
		color:     ColorNone,
		role:      RoleUndecided,
		cluster:   NodeNone,
		neighbors: NewNeighborTable(),
		dedup:     NewDedupSet(),
		routes:    NewRouteCache(),
		known:     make(map[NodeID]struct{}),
		scheduler: s,
		tr:        tr,
		rng:       rng,
		sink:      sink,
		logf:      logf,
	}, nil
}

// Start schedules the periodic timers. The first advertisement is
// spread over one hello interval so colocated nodes do not beacon in
// lockstep from time zero.
func (n *Node) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.running = true

	n.scheduleLocked(n.uniform(n.cfg.HelloInterval), func() { n.onTimerLocked(TimerHello) })
	n.scheduleLocked(n.cfg.ColoringInterval+n.uniform(n.cfg.ColoringJitter), func() { n.onTimerLocked(TimerColoring) })
	n.scheduleLocked(n.cfg.MaintenanceInterval, func() { n.onTimerLocked(TimerMaintenance) })
	if n.cfg.DataInterval > 0 {
		n.scheduleLocked(n.cfg.DataInterval+n.uniform(n.cfg.DataJitter), func() { n.onTimerLocked(TimerData) })
	}
}

// Stop cancels every pending timer, including jittered delayed
// forwards still in flight.
func (n *Node) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	n.running = false
	for id, t := range n.pending {
		t.Cancel()
		delete(n.pending, id)
	}
}

// OnMessage is the transport's inbound callback.
func (n *Node) OnMessage(payload []byte, from transport.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	kind, body, err := DecodeFrame(payload)
	if err != nil {
		n.logf("dropping malformed frame from %s: %v", from, err)
		return
	}
	switch kind {
	case FrameAdvertisement:
		adv, err := DecodeAdvertisement(body)
		if err != nil {
			n.logf("dropping malformed advertisement from %s: %v", from, err)
			return
		}
		n.onAdvertisementLocked(adv, from)
	case FrameData:
		unit, err := DecodeDataUnit(body)
		if err != nil {
			n.logf("dropping malformed data unit from %s: %v", from, err)
			n.sink.Dropped(DataUnit{}, DropDecodeError)
			return
		}
		n.onDataLocked(unit, from)
	}
}

// onTimerLocked dispatches a fired timer and reschedules the periodic
// ones. The legacy initial-coloring timer fires once; recoloring
// afterwards rides the maintenance cycle.
func (n *Node) onTimerLocked(kind TimerKind) {
	switch kind {
	case TimerHello:
		n.sendHelloLocked()
		n.scheduleLocked(n.cfg.HelloInterval+n.uniform(n.cfg.HelloJitter), func() { n.onTimerLocked(TimerHello) })
	case TimerColoring:
		n.recolorLocked()
	case TimerMaintenance:
		n.maintainLocked()
		n.scheduleLocked(n.cfg.MaintenanceInterval, func() { n.onTimerLocked(TimerMaintenance) })
	case TimerData:
		n.generateDataLocked()
		n.scheduleLocked(n.cfg.DataInterval+n.uniform(n.cfg.DataJitter), func() { n.onTimerLocked(TimerData) })
	}
}

func (n *Node) sendHelloLocked() {
	adv := Advertisement{Sender: n.id, Color: n.color, Role: n.role, Cluster: n.cluster}
	if err := n.tr.SendMulticast(EncodeAdvertisement(adv)); err != nil {
		n.logf("failed to send advertisement: %v", err)
	}
}

func (n *Node) onAdvertisementLocked(adv Advertisement, from transport.Address) {
	if adv.Sender == n.id {
		return // our own multicast echoed back
	}
	n.neighbors.Upsert(NeighborRecord{
		ID:        adv.Sender,
		Addr:      from,
		Color:     adv.Color,
		Role:      adv.Role,
		Cluster:   adv.Cluster,
		LastHeard: n.scheduler.Now(),
	})
	n.known[adv.Sender] = struct{}{}

	// Neighbor state changed; roles may change with it. Coloring
	// itself waits for the next maintenance pass.
	n.resolveRoleLocked()
}

// maintainLocked is the periodic prune + recolor + role cycle.
func (n *Node) maintainLocked() {
	now := n.scheduler.Now()
	if stale := n.neighbors.PruneStale(now, n.cfg.NeighborTimeout); len(stale) > 0 {
		n.logf("evicted stale neighbors %v", stale)
	}
	n.recolorLocked()
}

// recolorLocked recomputes color, then role, from the same snapshot.
func (n *Node) recolorLocked() {
	snap := n.neighbors.Snapshot()
	if next := NextColor(n.color, n.id, snap); next != n.color {
		n.logf("color %d -> %d", n.color, next)
		n.color = next
	}
	n.resolveRoleLocked()
}

func (n *Node) resolveRoleLocked() {
	res := Resolve(n.color, n.id, n.neighbors.Snapshot())
	if res.Color != n.color {
		n.logf("color %d -> unassigned (no cluster head visible)", n.color)
	}
	if res.Role != n.role {
		n.logf("role %s -> %s (color=%d cluster=%d)", n.role, res.Role, res.Color, res.Cluster)
	}
	n.color = res.Color
	n.role = res.Role
	n.cluster = res.Cluster
}

// generateDataLocked originates one synthetic unit toward a uniformly
// random known destination.
func (n *Node) generateDataLocked() {
	if len(n.known) == 0 {
		return
	}
	ids := make([]NodeID, 0, len(n.known))
	for id := range n.known {
		if id != n.id {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	dest := ids[n.rng.Intn(len(ids))]
	n.originateLocked(dest)
}

// scheduleLocked registers a callback d seconds out. The wrapper
// reacquires the node lock, so every handler runs serialized; a timer
// firing after Stop is a no-op.
func (n *Node) scheduleLocked(d float64, fn func()) {
	if n.pending == nil {
		n.pending = make(map[int]sched.Timer)
	}
	id := n.nextTimerID
	n.nextTimerID++
	t := n.scheduler.ScheduleAt(n.scheduler.Now()+d, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.pending, id)
		if !n.running {
			return
		}
		fn()
	})
	n.pending[id] = t
}

// uniform draws from [0, max). Jitter only; never part of a protocol
// decision.
func (n *Node) uniform(max float64) float64 {
	if max <= 0 {
		return 0
	}
	return n.rng.Float64() * max
}

// ID returns the node's identifier.
func (n *Node) ID() NodeID { return n.id }

// NodeSnapshot is a point-in-time copy of a node's externally visible
// state, for the TUI and the websocket viz.
type NodeSnapshot struct {
	ID        NodeID   `json:"id"`
	Color     Color    `json:"color"`
	Role      string   `json:"role"`
	Cluster   NodeID   `json:"cluster"`
	Neighbors []NodeID `json:"neighbors"`
	Routes    int      `json:"routes"`
	Seq       uint32   `json:"seq"`
}

// Snapshot copies the node's current state.
func (n *Node) Snapshot() NodeSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	snap := n.neighbors.Snapshot()
	ids := make([]NodeID, len(snap))
	for i, rec := range snap {
		ids[i] = rec.ID
	}
	return NodeSnapshot{
		ID:        n.id,
		Color:     n.color,
		Role:      n.role.String(),
		Cluster:   n.cluster,
		Neighbors: ids,
		Routes:    n.routes.Len(),
		Seq:       n.seq,
	}
}

// Color returns the node's current color.
func (n *Node) Color() Color {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.color
}

// Role returns the node's current role.
func (n *Node) Role() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

// Cluster returns the id of the node's cluster head, or NodeNone.
func (n *Node) Cluster() NodeID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cluster
}
