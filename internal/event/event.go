package event

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// MetadataKeySessionID tags an event with the mining session that produced it.
const MetadataKeySessionID = "session_id"

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if m, ok := e.Metadata.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// Miner event types
const (
	PointsEarned          Type = domain.EventTypePointsEarned
	PointsSpent           Type = domain.EventTypePointsSpent
	BonusClaimed          Type = domain.EventTypeBonusClaimed
	StreamOnline          Type = domain.EventTypeStreamOnline
	StreamOffline         Type = domain.EventTypeStreamOffline
	RaidJoined            Type = domain.EventTypeRaidJoined
	BetPlaced             Type = domain.EventTypeBetPlaced
	BetFailed             Type = domain.EventTypeBetFailed
	PredictionResult      Type = domain.EventTypePredictionResult
	ConnectionReconnected Type = domain.EventTypeConnectionReconnected
)

// AllTypes lists every event type published by the miner.
var AllTypes = []Type{
	PointsEarned, PointsSpent, BonusClaimed, StreamOnline, StreamOffline,
	RaidJoined, BetPlaced, BetFailed, PredictionResult, ConnectionReconnected,
}

// Type-safe event constructors

// NewPointsEvent creates a points.earned or points.spent event
func NewPointsEvent(t Type, s domain.StreamerSnapshot, delta int, reason string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    t,
		Payload: domain.PointsPayload{
			ChannelID: s.ChannelID,
			Streamer:  s.Username,
			Delta:     delta,
			Balance:   s.ChannelPoints,
			Reason:    reason,
			Timestamp: time.Now().Unix(),
		},
	}
}

// NewBonusClaimedEvent creates a new bonus claimed event
func NewBonusClaimedEvent(channelID, streamer, claimID string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    BonusClaimed,
		Payload: domain.BonusClaimedPayload{
			ChannelID: channelID,
			Streamer:  streamer,
			ClaimID:   claimID,
			Timestamp: time.Now().Unix(),
		},
	}
}

// NewStreamStatusEvent creates a stream.online or stream.offline event
func NewStreamStatusEvent(channelID, streamer string, online bool) Event {
	t := StreamOffline
	if online {
		t = StreamOnline
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    t,
		Payload: domain.StreamStatusPayload{
			ChannelID: channelID,
			Streamer:  streamer,
			Online:    online,
			Timestamp: time.Now().Unix(),
		},
	}
}

// NewRaidJoinedEvent creates a new raid joined event
func NewRaidJoinedEvent(p domain.RaidPayload) Event {
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().Unix()
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    RaidJoined,
		Payload: p,
	}
}

// NewBetEvent creates a bet.placed event, or bet.failed when failure is set
func NewBetEvent(e domain.PredictionEvent, strategy domain.Strategy, d domain.Decision, failure string) Event {
	t := BetPlaced
	if failure != "" {
		t = BetFailed
	}
	outcomeTitle := d.OutcomeID
	if o, ok := e.OutcomeByID(d.OutcomeID); ok {
		outcomeTitle = o.Title
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    t,
		Payload: domain.BetPayload{
			EventID:      e.EventID,
			ChannelID:    e.ChannelID,
			Streamer:     e.Streamer,
			Title:        e.Title,
			Strategy:     strategy,
			OutcomeID:    d.OutcomeID,
			OutcomeTitle: outcomeTitle,
			Amount:       d.Amount,
			Failure:      failure,
			Timestamp:    time.Now().Unix(),
		},
	}
}

// NewPredictionResultEvent creates a new prediction result event
func NewPredictionResultEvent(e domain.PredictionEvent) Event {
	p := domain.PredictionResultPayload{
		EventID:   e.EventID,
		ChannelID: e.ChannelID,
		Streamer:  e.Streamer,
		Title:     e.Title,
		Timestamp: time.Now().Unix(),
	}
	if e.Result != nil {
		p.Result = e.Result.Type
		p.PointsWon = e.Result.PointsWon
		p.Gained = e.Result.Gained
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    PredictionResult,
		Payload: p,
	}
}

// NewConnectionReconnectedEvent creates a new connection reconnected event
func NewConnectionReconnectedEvent(connectionID, topics, attempts int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    ConnectionReconnected,
		Payload: domain.ConnectionPayload{
			ConnectionID: connectionID,
			Topics:       topics,
			Attempts:     attempts,
			Timestamp:    time.Now().Unix(),
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// Publisher accepts events for asynchronous delivery without ever failing
// the caller.
type Publisher interface {
	PublishWithRetry(ctx context.Context, event Event)
}

// Stamp returns a Publisher that adds md to the metadata of every event
// before passing it to next. Keys already on the event win.
func Stamp(next Publisher, md map[string]any) Publisher {
	return stamped{next: next, md: md}
}

type stamped struct {
	next Publisher
	md   map[string]any
}

func (s stamped) PublishWithRetry(ctx context.Context, evt Event) {
	merged := maps.Clone(s.md)
	if merged == nil {
		merged = make(map[string]any)
	}
	if existing, ok := evt.Metadata.(map[string]any); ok {
		maps.Copy(merged, existing)
	}
	evt.Metadata = merged
	s.next.PublishWithRetry(ctx, evt)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	// Handlers run synchronously; asynchrony comes from ResilientPublisher.
	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll subscribes a handler to every miner event type
func SubscribeAll(b Bus, handler Handler) {
	for _, t := range AllTypes {
		b.Subscribe(t, handler)
	}
}
