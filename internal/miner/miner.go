// Package miner wires the registry, the subscription pool, the dispatcher,
// the prediction engine and the heartbeat into one session.
package miner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/osse101/ChannelPointsMiner_Go/internal/dispatch"
	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/heartbeat"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
	"github.com/osse101/ChannelPointsMiner_Go/internal/prediction"
	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
	"github.com/osse101/ChannelPointsMiner_Go/internal/streamer"
	"github.com/osse101/ChannelPointsMiner_Go/internal/twitch"
)

// Publisher is the event sink the session publishes to and flushes on exit.
type Publisher interface {
	event.Publisher
	Shutdown(ctx context.Context) error
}

// Config is the session configuration.
type Config struct {
	Username        string
	AuthToken       string
	Bet             domain.BetSettings
	Overrides       map[string]domain.BetOverride
	MakePredictions bool
	FollowRaid      bool
	ClaimBonus      bool
	Pool            pubsub.Config
	Heartbeat       heartbeat.Config
	BetTimeout      time.Duration
	ShutdownGrace   time.Duration
	LogFile         string
}

// Deps are the external collaborators.
type Deps struct {
	API         twitch.API
	Actuator    prediction.Actuator
	Publisher   Publisher
	Clock       clockwork.Clock
	Out         io.Writer
	PoolOptions []pubsub.Option
}

// Miner is one mining session. Run blocks; Shutdown may be called from any
// goroutine any number of times and performs the teardown once.
type Miner struct {
	cfg       Config
	deps      Deps
	sessionID string
	startedAt time.Time

	running    atomic.Bool
	publisher  event.Publisher
	registry   *streamer.Registry
	engine     *prediction.Engine
	dispatcher *dispatch.Dispatcher
	heartbeat  *heartbeat.Sender

	mu        sync.Mutex
	started   bool
	closed    bool
	endedAt   time.Time
	pool      *pubsub.Pool
	group     *errgroup.Group
	cancel    context.CancelFunc
	fatalErr  error
	snapshots map[string]domain.StreamerSnapshot

	shutdownOnce sync.Once
}

// New builds a session. Nothing runs until Run.
func New(cfg Config, deps Deps) (*Miner, error) {
	if deps.API == nil {
		return nil, errors.New("miner: API collaborator is required")
	}
	if cfg.MakePredictions && deps.Actuator == nil {
		return nil, errors.New("miner: bet actuator is required when predictions are enabled")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}

	m := &Miner{
		cfg:       cfg,
		deps:      deps,
		sessionID: logger.GenerateSessionID(),
		startedAt: deps.Clock.Now(),
		registry:  streamer.NewRegistry(),
		snapshots: make(map[string]domain.StreamerSnapshot),
	}

	if deps.Publisher != nil {
		m.publisher = event.Stamp(deps.Publisher, map[string]any{event.MetadataKeySessionID: m.sessionID})
	}
	m.engine = prediction.NewEngine(m.registry, deps.Actuator, m.publisher, &m.running,
		prediction.Config{Enabled: cfg.MakePredictions, BetTimeout: cfg.BetTimeout},
		prediction.WithClock(deps.Clock),
		prediction.WithFatalHandler(m.fail),
	)

	d, err := dispatch.New(m.registry, m.engine, deps.API, m.publisher, dispatch.Config{
		ClaimBonus: cfg.ClaimBonus,
		FollowRaid: cfg.FollowRaid,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	m.dispatcher = d
	m.heartbeat = heartbeat.New(m.registry, deps.API, &m.running, cfg.Heartbeat, heartbeat.WithClock(deps.Clock))
	return m, nil
}

// SessionID returns the unique id of this run.
func (m *Miner) SessionID() string { return m.sessionID }

// StartedAt returns the session start time.
func (m *Miner) StartedAt() time.Time { return m.startedAt }

// Running reports whether the session is active.
func (m *Miner) Running() bool { return m.running.Load() }

// Registry exposes the streamer registry for read-only consumers.
func (m *Miner) Registry() *streamer.Registry { return m.registry }

// Streamers returns a copy of every tracked streamer.
func (m *Miner) Streamers() []domain.Streamer { return m.registry.All() }

// Predictions returns every tracked prediction in creation order.
func (m *Miner) Predictions() []domain.PredictionEvent { return m.engine.Events() }

// Connections describes the pub/sub connections, empty before Run.
func (m *Miner) Connections() []pubsub.ConnectionInfo {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()
	if pool == nil {
		return nil
	}
	return pool.Connections()
}

// Run resolves the configured streamers, starts every activity and blocks
// until ctx is cancelled or a fatal fault occurs. It then shuts the session
// down and returns the fatal error, if any.
func (m *Miner) Run(ctx context.Context, names []string) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return domain.ErrSessionRunning
	}
	m.started = true
	m.mu.Unlock()

	ctx = logger.WithSessionID(ctx, m.sessionID)
	log := logger.FromContext(ctx)
	log.Info(LogMsgStarting, "username", m.cfg.Username, "streamers", len(names), "predictions", m.cfg.MakePredictions)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	err := m.start(runCtx, names)
	if err == nil {
		log.Info(LogMsgRunning, "streamers", m.registry.Len())
		<-runCtx.Done()
	}

	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownGrace)
	defer done()
	_ = m.Shutdown(shutdownCtx)

	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fatalErr
}

func (m *Miner) start(ctx context.Context, names []string) error {
	accountID, err := m.deps.API.ResolveChannelID(ctx, m.cfg.Username)
	if err != nil {
		return fmt.Errorf("failed to resolve account %s: %w", m.cfg.Username, err)
	}

	m.loadStreamers(ctx, names)
	if m.registry.Len() == 0 {
		return errors.New("no streamer could be resolved")
	}
	snapshots := m.registry.Snapshots()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.snapshots = snapshots
	m.running.Store(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.heartbeat.Run(gctx) })
	m.group = g

	poolCfg := m.cfg.Pool
	poolCfg.AuthToken = m.cfg.AuthToken
	opts := append([]pubsub.Option{
		pubsub.WithClock(m.deps.Clock),
		pubsub.WithExhaustedHandler(m.exhausted),
		pubsub.WithReconnectHandler(m.reconnected(ctx)),
	}, m.deps.PoolOptions...)
	m.pool = pubsub.NewPool(ctx, poolCfg, m.dispatcher.Dispatch, opts...)

	for _, t := range m.topics(accountID) {
		if err := m.pool.Submit(t); err != nil {
			logger.FromContext(ctx).Warn(LogMsgTopicFailed, "topic", t.String(), "error", err)
		}
	}
	return nil
}

// loadStreamers resolves ids and initial state. Unknown or failing names
// are skipped.
func (m *Miner) loadStreamers(ctx context.Context, names []string) {
	log := logger.FromContext(ctx)
	for _, name := range names {
		username := domain.NormalizeUsername(name)
		if username == "" {
			continue
		}
		if _, dup := m.registry.ByUsername(username); dup {
			continue
		}
		id, err := m.deps.API.ResolveChannelID(ctx, username)
		if err != nil {
			log.Warn(LogMsgStreamerSkipped, "streamer", username, "error", err)
			continue
		}

		s := domain.NewStreamer(username, id)
		s.BetSettings = m.cfg.Bet
		if o, ok := m.cfg.Overrides[username]; ok {
			s.BetSettings = m.cfg.Bet.WithOverride(o)
		}
		if balance, err := m.deps.API.LoadChannelPoints(ctx, s); err != nil {
			log.Warn(LogMsgBalanceFailed, "streamer", username, "error", err)
		} else {
			s.ChannelPoints = balance
		}
		online, err := m.deps.API.CheckOnline(ctx, s)
		if err != nil {
			log.Warn(LogMsgOnlineFailed, "streamer", username, "error", err)
		}

		if err := m.registry.Add(s); err != nil {
			log.Warn(LogMsgStreamerSkipped, "streamer", username, "error", err)
			continue
		}
		if online {
			m.registry.SetOnline(id, true, m.deps.Clock.Now())
		}
		log.Info(LogMsgStreamerLoaded,
			"streamer", username,
			"channel_id", id,
			"channel_points", s.ChannelPoints,
			"online", online)
	}
}

// topics lists the subscriptions for the session.
func (m *Miner) topics(accountID string) []domain.Topic {
	topics := []domain.Topic{domain.NewTopic(domain.TopicAccountPoints, accountID)}
	if m.cfg.MakePredictions {
		topics = append(topics, domain.NewTopic(domain.TopicAccountPredictions, accountID))
	}
	for _, id := range m.registry.ChannelIDs() {
		topics = append(topics, domain.NewTopic(domain.TopicChannelVideo, id))
		if m.cfg.FollowRaid {
			topics = append(topics, domain.NewTopic(domain.TopicChannelRaid, id))
		}
		if m.cfg.MakePredictions {
			topics = append(topics, domain.NewTopic(domain.TopicChannelPredictions, id))
		}
	}
	return topics
}

// exhausted escalates when the account balance feed is gone for good.
func (m *Miner) exhausted(topics []domain.Topic) {
	for _, t := range topics {
		if t.Family == domain.TopicAccountPoints {
			m.fail(fmt.Errorf("%w: %s", domain.ErrReconnectExhausted, t))
			return
		}
	}
	slog.Error(LogMsgTopicsLost, "topics", len(topics))
}

func (m *Miner) reconnected(ctx context.Context) func(pubsub.ReconnectInfo) {
	return func(info pubsub.ReconnectInfo) {
		if m.publisher == nil {
			return
		}
		m.publisher.PublishWithRetry(ctx, event.NewConnectionReconnectedEvent(info.ConnectionID, len(info.Topics), info.Attempts))
	}
}

// fail records the first fatal error and stops Run.
func (m *Miner) fail(err error) {
	m.mu.Lock()
	if m.fatalErr == nil {
		m.fatalErr = err
		slog.Error(LogMsgFatal, "error", err)
	}
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown stops the session: running flag off, actuator closed, pool
// ended, report printed, then a bounded wait for background goroutines.
// Every step is best-effort and later calls return immediately.
func (m *Miner) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() { m.shutdown(ctx) })
	return nil
}

func (m *Miner) shutdown(ctx context.Context) {
	log := logger.FromContext(logger.WithSessionID(ctx, m.sessionID))
	log.Info(LogMsgShutdownStart)

	m.running.Store(false)
	m.mu.Lock()
	m.closed = true
	m.endedAt = m.deps.Clock.Now()
	pool, group, cancel := m.pool, m.group, m.cancel
	m.mu.Unlock()

	if m.deps.Actuator != nil {
		if err := m.deps.Actuator.Close(); err != nil {
			log.Error(LogMsgActuatorClose, "error", err)
		}
	}

	if pool != nil {
		if err := pool.End(ctx); err != nil {
			log.Error(LogMsgPoolEnd, "error", err)
		}
	}

	if err := m.Report(m.deps.Out); err != nil {
		log.Error(LogMsgReportFailed, "error", err)
	}

	if err := m.engine.Shutdown(ctx); err != nil {
		log.Warn(LogMsgEngineShutdown, "error", err)
	}
	if err := m.dispatcher.Wait(ctx); err != nil {
		log.Warn(LogMsgDispatchWait, "error", err)
	}
	if cancel != nil {
		cancel()
	}
	if group != nil {
		done := make(chan error, 1)
		go func() { done <- group.Wait() }()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn(LogMsgBackgroundWait, "error", ctx.Err())
		}
	}
	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.Shutdown(ctx); err != nil {
			log.Error(LogMsgPublisherShutdown, "error", err)
		}
	}
	log.Info(LogMsgShutdownDone)
}
