// Package sse streams miner events to HTTP clients as server-sent events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Event is one message on the stream.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// Client is one connected stream. EventChannel is closed when the client
// is unregistered or the hub stops.
type Client struct {
	ID           string
	EventChannel chan Event
	EventFilter  map[string]bool // nil means all events

	dropped atomic.Uint64
}

func (c *Client) wants(eventType string) bool {
	return c.EventFilter == nil || c.EventFilter[eventType]
}

// Dropped is how many events this client missed because its buffer was full.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Hub fans events out to registered clients. Delivery never blocks: a
// client whose buffer is full misses the event.
type Hub struct {
	clock clockwork.Clock
	seq   atomic.Uint64

	mu      sync.RWMutex
	clients map[string]*Client
	open    bool
	stopped bool
}

// NewHub creates a hub. A nil clock means the real clock.
func NewHub(clock clockwork.Clock) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{clock: clock, clients: make(map[string]*Client)}
}

// Start opens the hub for registrations.
func (h *Hub) Start() {
	h.mu.Lock()
	h.open = !h.stopped
	h.mu.Unlock()
}

// Stop closes every client channel and refuses further registrations.
// Later calls do nothing.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped, h.open = true, false
	for id, c := range h.clients {
		close(c.EventChannel)
		delete(h.clients, id)
	}
}

// Register adds a client interested in eventTypes, or in everything when
// eventTypes is empty. It returns nil unless the hub is running.
func (h *Hub) Register(eventTypes []string) *Client {
	c := &Client{
		ID:           uuid.NewString(),
		EventChannel: make(chan Event, ClientEventBuffer),
	}
	if len(eventTypes) > 0 {
		c.EventFilter = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			c.EventFilter[t] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return nil
	}
	h.clients[c.ID] = c
	return c
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		close(c.EventChannel)
		delete(h.clients, clientID)
	}
}

// Broadcast delivers an event to every interested client.
func (h *Hub) Broadcast(eventType string, payload any) {
	evt := h.newEvent(strconv.FormatUint(h.seq.Add(1), 10), eventType, payload)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.wants(eventType) {
			continue
		}
		select {
		case c.EventChannel <- evt:
		default:
			if n := c.dropped.Add(1); n == 1 || n%LagLogInterval == 0 {
				slog.Warn(LogMsgClientLagging, "client_id", c.ID, "dropped", n)
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) newEvent(id, eventType string, payload any) Event {
	return Event{ID: id, Type: eventType, Timestamp: h.clock.Now().Unix(), Payload: payload}
}

// FormatSSEMessage renders an event in the text/event-stream wire format.
func FormatSSEMessage(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %s\nevent: %s\ndata: %s\n\n", evt.ID, evt.Type, data), nil
}
