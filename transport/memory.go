package transport

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/meshlab/meshcluster/sched"
)

// Medium is an in-process radio medium for simulations and tests. Who
// hears whom is an undirected link graph; multicast reaches exactly the
// linked peers. Frames are delivered through the scheduler after a
// small propagation delay, so a virtual-time run stays deterministic
// and no handler ever runs nested inside a sender's handler.
type Medium struct {
	mu          sync.Mutex
	sched       sched.Scheduler
	ports       map[Address]*Port
	links       map[Address]map[Address]bool
	delay       float64
	dropPercent int
	rng         *rand.Rand
}

// MediumOption configures a Medium.
type MediumOption func(*Medium)

// WithDelay sets the per-frame propagation delay in seconds.
func WithDelay(d float64) MediumOption {
	return func(m *Medium) { m.delay = d }
}

// WithDrop makes the medium drop roughly pct percent of deliveries,
// decided per receiver under the seeded RNG.
func WithDrop(pct int, seed int64) MediumOption {
	return func(m *Medium) {
		m.dropPercent = pct
		m.rng = rand.New(rand.NewSource(seed))
	}
}

// NewMedium creates an empty medium delivering through s.
func NewMedium(s sched.Scheduler, opts ...MediumOption) *Medium {
	m := &Medium{
		sched: s,
		ports: make(map[Address]*Port),
		links: make(map[Address]map[Address]bool),
		delay: 0.0005,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach creates a port on the medium. The port hears nothing until it
// is linked to other ports.
func (m *Medium) Attach(addr Address) (*Port, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ports[addr]; exists {
		return nil, fmt.Errorf("address already attached: %s", addr)
	}
	p := &Port{medium: m, addr: addr}
	m.ports[addr] = p
	m.links[addr] = make(map[Address]bool)
	return p, nil
}

// Detach removes a port and all its links.
func (m *Medium) Detach(addr Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ports, addr)
	delete(m.links, addr)
	for _, peers := range m.links {
		delete(peers, addr)
	}
}

// Link makes a and b hear each other.
func (m *Medium) Link(a, b Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a == b {
		return
	}
	if m.links[a] != nil {
		m.links[a][b] = true
	}
	if m.links[b] != nil {
		m.links[b][a] = true
	}
}

// Unlink severs the radio link between a and b.
func (m *Medium) Unlink(a, b Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[a] != nil {
		delete(m.links[a], b)
	}
	if m.links[b] != nil {
		delete(m.links[b], a)
	}
}

// LinkAll links addr to every other attached port.
func (m *Medium) LinkAll(addr Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for other := range m.ports {
		if other == addr {
			continue
		}
		if m.links[addr] != nil {
			m.links[addr][other] = true
		}
		if m.links[other] != nil {
			m.links[other][addr] = true
		}
	}
}

// deliver schedules a frame for one receiver, applying the drop rate.
func (m *Medium) deliver(payload []byte, from, to Address) {
	p, ok := m.ports[to]
	if !ok || p.handler == nil {
		return
	}
	if m.dropPercent > 0 && m.rng.Intn(100) < m.dropPercent {
		return
	}
	h := p.handler
	frame := make([]byte, len(payload))
	copy(frame, payload)
	m.sched.ScheduleAt(m.sched.Now()+m.delay, func() {
		h(frame, from)
	})
}

// Port is one node's attachment to the medium.
type Port struct {
	medium  *Medium
	addr    Address
	handler Handler
}

func (p *Port) Addr() Address { return p.addr }

func (p *Port) Start(h Handler) error {
	p.medium.mu.Lock()
	defer p.medium.mu.Unlock()
	if p.handler != nil {
		return fmt.Errorf("port %s already started", p.addr)
	}
	p.handler = h
	return nil
}

func (p *Port) SendUnicast(payload []byte, to Address) error {
	m := p.medium
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.links[p.addr][to] {
		// Out of range: the frame is lost on the air, not an error.
		return nil
	}
	m.deliver(payload, p.addr, to)
	return nil
}

func (p *Port) SendMulticast(payload []byte) error {
	m := p.medium
	m.mu.Lock()
	defer m.mu.Unlock()
	for peer := range m.links[p.addr] {
		m.deliver(payload, p.addr, peer)
	}
	return nil
}

func (p *Port) Close() error {
	p.medium.Detach(p.addr)
	return nil
}
