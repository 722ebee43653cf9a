// Package gateway exposes an operation controller over HTTP and WebSocket:
// JSON endpoints to start and steer jobs, and a duplex channel that streams
// controller events to every connected client.
package gateway

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/joe/dir-sync/internal/syncengine"
)

// Exported constants.
const (
	// SendBufferSize is how many frames may queue for one client before it is
	// considered too slow and dropped.
	SendBufferSize = 256
)

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans controller events out to connected WebSocket clients. It
// implements syncengine.EventEmitter and never blocks the emitter: a client
// whose buffer is full is disconnected.
type Hub struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub with no clients.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Emit implements syncengine.EventEmitter.
func (h *Hub) Emit(event syncengine.Event) {
	data, err := encodeFrame(event)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event.EventName(), "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.enqueue(data) {
			h.logger.Warn("dropping slow client", "remote", c.remote)
			h.removeLocked(c)
		}
	}
}

// sendTo queues an event for one client only.
func (h *Hub) sendTo(c *client, event syncengine.Event) {
	data, err := encodeFrame(event)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event.EventName(), "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	if !c.enqueue(data) {
		h.logger.Warn("dropping slow client", "remote", c.remote)
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	h.logger.Debug("client connected", "remote", c.remote, "clients", len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		h.removeLocked(c)
		h.logger.Debug("client disconnected", "remote", c.remote, "clients", len(h.clients))
	}
}

// removeLocked closes the client's queue; its writer then closes the
// connection.
func (h *Hub) removeLocked(c *client) {
	delete(h.clients, c)
	close(c.send)
}

func encodeFrame(event syncengine.Event) ([]byte, error) {
	data, err := json.Marshal(Frame{Event: event.EventName(), Data: event})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", event.EventName(), err)
	}

	return data, nil
}
