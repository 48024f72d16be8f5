package node

import (
	"fmt"
	"sync"

	"github.com/meshlab/meshcluster/cluster"
	"github.com/meshlab/meshcluster/sched"
	"github.com/meshlab/meshcluster/transport"
)

// Manager runs multiple nodes in one process over a shared in-memory
// radio medium. New nodes are linked to every existing node by
// default (a single dense neighborhood); Link/Unlink shape the
// topology afterwards.
type Manager struct {
	nodes   []*Runner      // maintain order with slice
	nodeMap map[int]int    // node id -> index for quick lookup
	mu      sync.RWMutex
	nextID  int // monotonically increasing counter for unique node ids

	scheduler sched.Scheduler
	medium    *transport.Medium
	cfg       cluster.Config
	seed      int64
}

// NewManager creates a manager over its own medium on s.
func NewManager(s sched.Scheduler, cfg cluster.Config, seed int64) *Manager {
	return &Manager{
		nodes:     make([]*Runner, 0),
		nodeMap:   make(map[int]int),
		scheduler: s,
		medium:    transport.NewMedium(s),
		cfg:       cfg,
		seed:      seed,
	}
}

// CreateNode creates, links and starts a new node.
func (m *Manager) CreateNode() (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := cluster.NodeID(m.nextID)
	m.nextID++

	addr := transport.Address(fmt.Sprintf("node-%d", int(id)))
	port, err := m.medium.Attach(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to attach node: %w", err)
	}
	m.medium.LinkAll(addr)

	runner, err := NewRunner(id, m.cfg, m.scheduler, port, m.seed+int64(id))
	if err != nil {
		m.medium.Detach(addr)
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	if err := runner.Start(); err != nil {
		m.medium.Detach(addr)
		return nil, fmt.Errorf("failed to start node: %w", err)
	}

	m.nodes = append(m.nodes, runner)
	m.nodeMap[int(id)] = len(m.nodes) - 1
	return runner, nil
}

// DeleteNode stops and removes a node by its index in the list. The
// medium drops its links, so former neighbors see it go silent and
// evict it on their next maintenance pass.
func (m *Manager) DeleteNode(index int) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.nodes) {
		m.mu.Unlock()
		return fmt.Errorf("invalid node index: %d", index)
	}

	runner := m.nodes[index]
	m.nodes = append(m.nodes[:index], m.nodes[index+1:]...)
	delete(m.nodeMap, int(runner.ID()))
	for i, r := range m.nodes {
		m.nodeMap[int(r.ID())] = i
	}
	m.mu.Unlock()

	if err := runner.Stop(); err != nil {
		return fmt.Errorf("failed to stop node %d: %w", int(runner.ID()), err)
	}
	return nil
}

// Unlink severs the radio link between two nodes by id.
func (m *Manager) Unlink(a, b cluster.NodeID) {
	m.medium.Unlink(
		transport.Address(fmt.Sprintf("node-%d", int(a))),
		transport.Address(fmt.Sprintf("node-%d", int(b))),
	)
}

// GetNodes returns all runners in creation order.
func (m *Manager) GetNodes() []*Runner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]*Runner, len(m.nodes))
	copy(nodes, m.nodes)
	return nodes
}

// Snapshots copies every node's externally visible state.
func (m *Manager) Snapshots() []cluster.NodeSnapshot {
	runners := m.GetNodes()
	out := make([]cluster.NodeSnapshot, len(runners))
	for i, r := range runners {
		out[i] = r.Node().Snapshot()
	}
	return out
}

// StopAll stops every node.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	nodes := make([]*Runner, len(m.nodes))
	copy(nodes, m.nodes)
	m.nodes = m.nodes[:0]
	m.nodeMap = make(map[int]int)
	m.mu.Unlock()

	var errs []error
	for _, r := range nodes {
		if err := r.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors stopping nodes: %v", errs)
	}
	return nil
}
