package node

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/meshlab/meshcluster/cluster"
	"github.com/meshlab/meshcluster/logger"
	"github.com/meshlab/meshcluster/sched"
	"github.com/meshlab/meshcluster/transport"
)

// Runner binds one protocol node to a transport and a scheduler and
// manages its lifecycle. The protocol core stays free of transport
// construction and global logging; the runner supplies both.
type Runner struct {
	id       cluster.NodeID
	cfg      cluster.Config
	tr       transport.Transport
	node     *cluster.Node
	counters *cluster.Counters

	mu      sync.Mutex
	started bool
}

// NewRunner validates everything up front and wires the node. seed
// feeds the node's jitter RNG; runs with the same seed, scheduler and
// topology replay identically.
func NewRunner(id cluster.NodeID, cfg cluster.Config, s sched.Scheduler, tr transport.Transport, seed int64) (*Runner, error) {
	if s == nil {
		return nil, ErrSchedulerRequired
	}
	if tr == nil {
		return nil, ErrTransportRequired
	}

	counters := cluster.NewCounters()
	logf := func(format string, args ...interface{}) {
		logger.Printf("[node-%d] %s", int(id), fmt.Sprintf(format, args...))
	}
	n, err := cluster.NewNode(id, cfg, s, tr, rand.New(rand.NewSource(seed)), counters, logf)
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	return &Runner{id: id, cfg: cfg, tr: tr, node: n, counters: counters}, nil
}

// Start begins inbound delivery and schedules the node's timers.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	if err := r.tr.Start(r.node.OnMessage); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	r.node.Start()
	r.started = true
	logger.Printf("[node-%d] started on %s", int(r.id), r.tr.Addr())
	return nil
}

// Stop cancels the node's timers and closes the transport.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	r.node.Stop()
	if err := r.tr.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	logger.Printf("[node-%d] stopped", int(r.id))
	return nil
}

// ID returns the runner's node id.
func (r *Runner) ID() cluster.NodeID { return r.id }

// Addr returns the transport address the node answers on.
func (r *Runner) Addr() transport.Address { return r.tr.Addr() }

// Node exposes the protocol node for direct interaction (origination,
// snapshots).
func (r *Runner) Node() *cluster.Node { return r.node }

// Counters returns the node's telemetry counters.
func (r *Runner) Counters() cluster.CounterSnapshot { return r.counters.Snapshot() }
