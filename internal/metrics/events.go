package metrics

import (
	"context"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// EventMetricsCollector subscribes to events and records metrics
type EventMetricsCollector struct{}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to every miner event
func (e *EventMetricsCollector) Register(bus event.Bus) error {
	event.SubscribeAll(bus, e.HandleEvent)
	return nil
}

// HandleEvent processes events and updates metrics. Payloads that cannot be
// decoded are counted as handler errors and otherwise ignored.
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)

	EventsPublished.WithLabelValues(string(evt.Type)).Inc()

	if err := record(evt); err != nil {
		EventHandlerErrors.WithLabelValues(string(evt.Type)).Inc()
		log.Debug(LogMsgEventPayloadInvalid, "type", evt.Type, "error", err)
		return nil
	}

	log.Debug(LogMsgMetricsRecorded, "type", evt.Type)
	return nil
}

func record(evt event.Event) error {
	switch evt.Type {
	case event.PointsEarned, event.PointsSpent:
		p, err := event.DecodePayload[domain.PointsPayload](evt.Payload)
		if err != nil {
			return err
		}
		ChannelBalance.WithLabelValues(p.Streamer).Set(float64(p.Balance))
		if evt.Type == event.PointsSpent {
			PointsSpent.WithLabelValues(p.Streamer).Add(float64(abs(p.Delta)))
			return nil
		}
		reason := p.Reason
		if reason == "" {
			reason = UnknownReason
		}
		PointsEarned.WithLabelValues(p.Streamer, reason).Add(float64(abs(p.Delta)))

	case event.BonusClaimed:
		p, err := event.DecodePayload[domain.BonusClaimedPayload](evt.Payload)
		if err != nil {
			return err
		}
		BonusesClaimed.WithLabelValues(p.Streamer).Inc()

	case event.StreamOnline, event.StreamOffline:
		p, err := event.DecodePayload[domain.StreamStatusPayload](evt.Payload)
		if err != nil {
			return err
		}
		v := 0.0
		if p.Online {
			v = 1
		}
		StreamerOnline.WithLabelValues(p.Streamer).Set(v)

	case event.RaidJoined:
		p, err := event.DecodePayload[domain.RaidPayload](evt.Payload)
		if err != nil {
			return err
		}
		RaidsJoined.WithLabelValues(p.Streamer).Inc()

	case event.BetPlaced:
		p, err := event.DecodePayload[domain.BetPayload](evt.Payload)
		if err != nil {
			return err
		}
		BetsPlaced.WithLabelValues(p.Streamer, string(p.Strategy)).Inc()
		BetAmount.Observe(float64(p.Amount))

	case event.BetFailed:
		p, err := event.DecodePayload[domain.BetPayload](evt.Payload)
		if err != nil {
			return err
		}
		BetsFailed.WithLabelValues(p.Streamer).Inc()

	case event.PredictionResult:
		p, err := event.DecodePayload[domain.PredictionResultPayload](evt.Payload)
		if err != nil {
			return err
		}
		PredictionResults.WithLabelValues(string(p.Result)).Inc()
		PredictionGained.Add(float64(p.Gained))

	case event.ConnectionReconnected:
		Reconnects.Inc()
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
