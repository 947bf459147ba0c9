// Package dispatch routes decoded pub/sub envelopes to the streamer
// registry, the prediction engine and the notification sinks.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
	"github.com/osse101/ChannelPointsMiner_Go/internal/streamer"
)

// PredictionHandler consumes prediction envelopes.
type PredictionHandler interface {
	Handle(ctx context.Context, u pubsub.PredictionUpdate)
	HandleResult(ctx context.Context, r pubsub.PredictionResult)
	HandleMade(ctx context.Context, m pubsub.PredictionMade)
}

// Actions performs the platform calls some events trigger.
type Actions interface {
	ClaimBonus(ctx context.Context, channelID, claimID string) error
	JoinRaid(ctx context.Context, raidID string) error
}

// Config selects optional behaviour.
type Config struct {
	ClaimBonus bool
	FollowRaid bool
	SeenSize   int
}

// Dispatcher routes envelopes by topic family. Dispatch is synchronous;
// bonus claims and raid joins run in the background bounded by
// ActionTimeout.
type Dispatcher struct {
	registry  *streamer.Registry
	engine    PredictionHandler
	actions   Actions
	publisher event.Publisher
	cfg       Config
	seen      *lru.Cache[string, struct{}]
	now       func() time.Time

	wg sync.WaitGroup
}

// New creates a dispatcher. engine may be nil when betting is disabled.
func New(registry *streamer.Registry, engine PredictionHandler, actions Actions, publisher event.Publisher, cfg Config) (*Dispatcher, error) {
	size := cfg.SeenSize
	if size <= 0 {
		size = DefaultSeenCacheSize
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen cache: %w", err)
	}
	return &Dispatcher{
		registry:  registry,
		engine:    engine,
		actions:   actions,
		publisher: publisher,
		cfg:       cfg,
		seen:      seen,
		now:       time.Now,
	}, nil
}

// Dispatch handles one envelope. It matches pubsub.Handler.
func (d *Dispatcher) Dispatch(ctx context.Context, topic domain.Topic, env pubsub.Envelope) {
	log := logger.FromContext(ctx)

	switch e := env.(type) {
	case pubsub.Unrecognized:
		log.Debug(LogMsgUnrecognized, "topic", topic.String(), "type", e.Type, "reason", e.Reason)
	case pubsub.PointsEarned:
		d.pointsEarned(ctx, e)
	case pubsub.PointsSpent:
		d.pointsSpent(ctx, e)
	case pubsub.ClaimAvailable:
		d.claimAvailable(ctx, e)
	case pubsub.StreamUp:
		d.setOnline(ctx, topic.ScopeID, true)
	case pubsub.StreamDown:
		d.setOnline(ctx, topic.ScopeID, false)
	case pubsub.ViewCount:
		if s, ok := d.registry.Get(topic.ScopeID); ok && !s.Online {
			d.setOnline(ctx, topic.ScopeID, true)
		}
	case pubsub.RaidUpdate:
		d.raid(ctx, topic.ScopeID, e)
	case pubsub.PredictionUpdate:
		if e.ChannelID == "" {
			e.ChannelID = topic.ScopeID
		}
		d.prediction(ctx, e.ChannelID, func() { d.engine.Handle(ctx, e) })
	case pubsub.PredictionResult:
		d.prediction(ctx, e.ChannelID, func() { d.engine.HandleResult(ctx, e) })
	case pubsub.PredictionMade:
		d.prediction(ctx, e.ChannelID, func() { d.engine.HandleMade(ctx, e) })
	default:
		log.Debug(LogMsgUnrecognized, "topic", topic.String(), "kind", env.Kind())
	}
}

// Wait blocks until background actions finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// firstSeen records key and reports whether it had not been seen before.
func (d *Dispatcher) firstSeen(key string) bool {
	ok, _ := d.seen.ContainsOrAdd(key, struct{}{})
	return !ok
}

func (d *Dispatcher) pointsEarned(ctx context.Context, e pubsub.PointsEarned) {
	log := logger.FromContext(ctx)
	if _, ok := d.registry.SetBalance(e.ChannelID, e.Balance); !ok {
		log.Debug(LogMsgUnknownStreamer, "channel_id", e.ChannelID)
		return
	}

	key := fmt.Sprintf("earned|%s|%d|%s|%d", e.ChannelID, e.At.UnixNano(), e.Reason, e.Balance)
	if !d.firstSeen(key) {
		log.Debug(LogMsgDuplicate, "kind", e.Kind(), "channel_id", e.ChannelID)
		return
	}

	at := e.At
	if at.IsZero() {
		at = d.now()
	}
	d.registry.AppendHistory(e.ChannelID, domain.HistoryEntry{Delta: e.Gained, Reason: e.Reason, At: at})

	s, _ := d.registry.Get(e.ChannelID)
	log.Info(LogMsgPointsEarned, "streamer", s.Username, "gained", e.Gained, "reason", e.Reason, "balance", e.Balance)
	d.publish(ctx, event.NewPointsEvent(event.PointsEarned, s.Snapshot(), e.Gained, e.Reason))
}

func (d *Dispatcher) pointsSpent(ctx context.Context, e pubsub.PointsSpent) {
	log := logger.FromContext(ctx)
	delta, ok := d.registry.SetBalance(e.ChannelID, e.Balance)
	if !ok {
		log.Debug(LogMsgUnknownStreamer, "channel_id", e.ChannelID)
		return
	}

	key := fmt.Sprintf("spent|%s|%d|%d", e.ChannelID, e.At.UnixNano(), e.Balance)
	if !d.firstSeen(key) || delta == 0 {
		return
	}

	at := e.At
	if at.IsZero() {
		at = d.now()
	}
	d.registry.AppendHistory(e.ChannelID, domain.HistoryEntry{Delta: delta, Reason: ReasonSpent, At: at})

	s, _ := d.registry.Get(e.ChannelID)
	log.Info(LogMsgPointsSpent, "streamer", s.Username, "spent", -delta, "balance", e.Balance)
	d.publish(ctx, event.NewPointsEvent(event.PointsSpent, s.Snapshot(), delta, ReasonSpent))
}

func (d *Dispatcher) claimAvailable(ctx context.Context, e pubsub.ClaimAvailable) {
	s, ok := d.registry.Get(e.ChannelID)
	if !ok || !d.cfg.ClaimBonus || d.actions == nil {
		return
	}
	if !d.firstSeen("claim|" + e.ClaimID) {
		return
	}

	d.background(ctx, func(ctx context.Context) {
		log := logger.FromContext(ctx)
		if err := d.actions.ClaimBonus(ctx, e.ChannelID, e.ClaimID); err != nil {
			log.Warn(LogMsgBonusClaimFailed, "streamer", s.Username, "claim_id", e.ClaimID, "error", err)
			return
		}
		log.Info(LogMsgBonusClaimed, "streamer", s.Username)
		d.publish(ctx, event.NewBonusClaimedEvent(e.ChannelID, s.Username, e.ClaimID))
	})
}

func (d *Dispatcher) setOnline(ctx context.Context, channelID string, online bool) {
	if !d.registry.SetOnline(channelID, online, d.now()) {
		return
	}
	s, _ := d.registry.Get(channelID)
	if online {
		logger.FromContext(ctx).Info(LogMsgStreamOnline, "streamer", s.Username)
	} else {
		logger.FromContext(ctx).Info(LogMsgStreamOffline, "streamer", s.Username)
	}
	d.publish(ctx, event.NewStreamStatusEvent(channelID, s.Username, online))
}

func (d *Dispatcher) raid(ctx context.Context, channelID string, e pubsub.RaidUpdate) {
	s, ok := d.registry.Get(channelID)
	if !ok {
		return
	}
	if !d.firstSeen("raid|" + e.RaidID) {
		return
	}
	if !d.cfg.FollowRaid || d.actions == nil {
		logger.FromContext(ctx).Info(LogMsgRaidIgnored, "streamer", s.Username, "target", e.TargetLogin)
		return
	}

	d.background(ctx, func(ctx context.Context) {
		log := logger.FromContext(ctx)
		if err := d.actions.JoinRaid(ctx, e.RaidID); err != nil {
			log.Warn(LogMsgRaidJoinFailed, "streamer", s.Username, "raid_id", e.RaidID, "error", err)
			return
		}
		log.Info(LogMsgRaidJoined, "streamer", s.Username, "target", e.TargetLogin)
		d.publish(ctx, event.NewRaidJoinedEvent(domain.RaidPayload{
			RaidID:      e.RaidID,
			ChannelID:   channelID,
			Streamer:    s.Username,
			TargetLogin: e.TargetLogin,
			TargetID:    e.TargetID,
			ViewerCount: e.ViewerCount,
		}))
	})
}

func (d *Dispatcher) prediction(ctx context.Context, channelID string, forward func()) {
	if d.engine == nil {
		logger.FromContext(ctx).Debug(LogMsgPredictionSkipped, "channel_id", channelID)
		return
	}
	// account-level results may omit the channel; the engine resolves them by event id
	if channelID != "" {
		if _, ok := d.registry.Get(channelID); !ok {
			logger.FromContext(ctx).Debug(LogMsgUnknownStreamer, "channel_id", channelID)
			return
		}
	}
	forward()
}

func (d *Dispatcher) background(ctx context.Context, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		actx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		fn(actx)
	}()
}

func (d *Dispatcher) publish(ctx context.Context, evt event.Event) {
	if d.publisher != nil {
		d.publisher.PublishWithRetry(ctx, evt)
	}
}
