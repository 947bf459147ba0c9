// Package handler serves the read-only status API of a mining session.
package handler

import (
	"context"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/miner"
	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
)

// Session is the view of a running miner the handlers read from.
type Session interface {
	SessionID() string
	StartedAt() time.Time
	Running() bool
	Streamers() []domain.Streamer
	Predictions() []domain.PredictionEvent
	Connections() []pubsub.ConnectionInfo
	Gains() []miner.StreamerGain
}

// EventReader lists persisted domain events.
type EventReader interface {
	Recent(ctx context.Context, filter eventlog.EventFilter) ([]eventlog.Event, error)
}

var _ Session = (*miner.Miner)(nil)
