package sse

import (
	"context"
	"log/slog"

	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub) *Subscriber {
	return &Subscriber{hub: hub}
}

// Register subscribes the hub to every miner event type.
func (s *Subscriber) Register(bus event.Bus) error {
	event.SubscribeAll(bus, s.HandleEvent)
	slog.Info(LogMsgSubscriberReady, "types", len(event.AllTypes))
	return nil
}

// HandleEvent forwards a bus event to the stream. Payloads are already
// JSON-ready domain structs so they pass through unchanged.
func (s *Subscriber) HandleEvent(_ context.Context, evt event.Event) error {
	s.hub.Broadcast(string(evt.Type), evt.Payload)
	slog.Debug(LogMsgEventBroadcast, "event_type", evt.Type)
	return nil
}
