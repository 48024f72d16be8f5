// Package wsviz streams cluster state to websocket viewers. It is the
// visualization collaborator: the protocol never knows it exists, a
// poller feeds it snapshots and every connected browser gets them as
// JSON.
package wsviz

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meshlab/meshcluster/cluster"
	"github.com/meshlab/meshcluster/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Update is one frame pushed to viewers.
type Update struct {
	Time     float64                   `json:"time"`
	Nodes    []cluster.NodeSnapshot    `json:"nodes"`
	Counters []cluster.CounterSnapshot `json:"counters,omitempty"`
}

// Hub fans updates out to every connected viewer.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Update
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Update
}

// NewHub creates an idle hub; call Run in a goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Update, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Publish queues an update; slow hubs drop rather than block the
// caller.
func (h *Hub) Publish(u Update) {
	select {
	case h.broadcast <- u:
	default:
		logger.Warnf("wsviz: broadcast channel full, dropping update")
	}
}

// Run owns the client set until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			logger.Infof("wsviz: viewer connected, total %d", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			logger.Infof("wsviz: viewer disconnected, total %d", len(h.clients))

		case u := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- u:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ServeWS upgrades an HTTP request into a viewer connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("wsviz: upgrade failed: %v", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan Update, 64)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// readPump only exists to notice the peer going away.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case u, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			body, err := json.Marshal(u)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
