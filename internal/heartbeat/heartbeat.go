// Package heartbeat keeps the account present in every online channel.
package heartbeat

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
	"github.com/osse101/ChannelPointsMiner_Go/internal/streamer"
)

// Presence issues the platform's "watching" call for one streamer.
type Presence interface {
	SendPresence(ctx context.Context, s domain.Streamer) error
}

// Config sets the tick schedule. Zero values take the defaults; a negative
// Jitter disables it.
type Config struct {
	Period time.Duration
	Jitter time.Duration
}

// Sender runs the presence loop. It only reads the online flag; balances
// are never touched here.
type Sender struct {
	registry *streamer.Registry
	api      Presence
	running  *atomic.Bool
	clock    clockwork.Clock
	cfg      Config
	rand     func() float64

	ticks atomic.Int64
}

// Option customizes a Sender.
type Option func(*Sender)

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Sender) { s.clock = c }
}

// WithRand replaces the jitter source; fn returns values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(s *Sender) { s.rand = fn }
}

// New creates a heartbeat sender.
func New(registry *streamer.Registry, api Presence, running *atomic.Bool, cfg Config, opts ...Option) *Sender {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	switch {
	case cfg.Jitter == 0:
		cfg.Jitter = DefaultJitter
	case cfg.Jitter < 0:
		cfg.Jitter = 0
	}
	s := &Sender{
		registry: registry,
		api:      api,
		running:  running,
		clock:    clockwork.NewRealClock(),
		cfg:      cfg,
		rand:     rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled or the session stops running.
func (s *Sender) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info(LogMsgStarted, "period", s.cfg.Period, "jitter", s.cfg.Jitter)
	defer log.Info(LogMsgStopped, "ticks", s.ticks.Load())

	timer := s.clock.NewTimer(s.next())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.Chan():
		}
		if !s.running.Load() {
			return nil
		}
		s.Tick(ctx)
		timer.Reset(s.next())
	}
}

// Tick sends presence for every online streamer and returns how many calls
// succeeded and failed. A failure for one streamer does not stop the rest.
func (s *Sender) Tick(ctx context.Context) (sent, failed int) {
	log := logger.FromContext(ctx)
	defer s.ticks.Add(1)

	online := s.registry.Online()
	if len(online) == 0 {
		log.Debug(LogMsgNoOnlineStreams)
		return 0, 0
	}
	for _, st := range online {
		if ctx.Err() != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, PresenceTimeout)
		err := s.api.SendPresence(callCtx, st)
		cancel()
		if err != nil {
			failed++
			log.Warn(LogMsgPresenceFailed, "streamer", st.Username, "error", err)
			continue
		}
		sent++
	}
	log.Debug(LogMsgTick, "sent", sent, "failed", failed)
	return sent, failed
}

// Ticks reports how many ticks have run.
func (s *Sender) Ticks() int64 {
	return s.ticks.Load()
}

func (s *Sender) next() time.Duration {
	return s.cfg.Period + time.Duration(s.rand()*float64(s.cfg.Jitter))
}
