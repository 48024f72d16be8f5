package transport

import (
	"fmt"
	"net"
	"sync"
)

// DefaultGroup is the fixed multicast group advertisements and backbone
// search floods go to.
const DefaultGroup = "239.42.42.42"

const maxDatagram = 2048

// UDP sends unicast datagrams from a bound local port and multicasts to
// a fixed group. The unicast listener doubles as the send socket, so
// the source address peers see is the address they can reply to.
type UDP struct {
	localPort int
	destPort  int
	group     *net.UDPAddr

	conn  *net.UDPConn // unicast listen + send
	mconn *net.UDPConn // multicast listen

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewUDP binds the unicast listener on localPort and joins the
// multicast group on destPort.
func NewUDP(localPort, destPort int, group string) (*UDP, error) {
	if group == "" {
		group = DefaultGroup
	}
	gip := net.ParseIP(group)
	if gip == nil || !gip.IsMulticast() {
		return nil, fmt.Errorf("invalid multicast group: %q", group)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, fmt.Errorf("failed to bind unicast port %d: %w", localPort, err)
	}
	gaddr := &net.UDPAddr{IP: gip, Port: destPort}
	mconn, err := net.ListenMulticastUDP("udp4", nil, gaddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to join multicast group %s: %w", gaddr, err)
	}

	return &UDP{
		localPort: localPort,
		destPort:  destPort,
		group:     gaddr,
		conn:      conn,
		mconn:     mconn,
	}, nil
}

func (u *UDP) Addr() Address {
	return Address(u.conn.LocalAddr().String())
}

func (u *UDP) Start(h Handler) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started {
		return fmt.Errorf("udp transport already started")
	}
	u.started = true
	go u.readLoop(u.conn, h)
	go u.readLoop(u.mconn, h)
	return nil
}

func (u *UDP) readLoop(conn *net.UDPConn, h Handler) {
	buf := make([]byte, maxDatagram)
	for {
		n, sender, err := conn.ReadFromUDP(buf)
		if err != nil {
			u.mu.Lock()
			closed := u.closed
			u.mu.Unlock()
			if closed {
				return
			}
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		h(frame, Address(sender.String()))
	}
}

func (u *UDP) SendUnicast(payload []byte, to Address) error {
	dst, err := net.ResolveUDPAddr("udp4", string(to))
	if err != nil {
		return fmt.Errorf("bad unicast address %q: %w", to, err)
	}
	_, err = u.conn.WriteToUDP(payload, dst)
	return err
}

func (u *UDP) SendMulticast(payload []byte) error {
	_, err := u.conn.WriteToUDP(payload, u.group)
	return err
}

func (u *UDP) Close() error {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
	u.mconn.Close()
	return u.conn.Close()
}
