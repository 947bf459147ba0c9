// Package prediction runs one state machine per open prediction and places
// at most one bet per prediction window through an external actuator.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
	"github.com/osse101/ChannelPointsMiner_Go/internal/streamer"
)

// Actuator places bets on the platform on behalf of the account.
type Actuator interface {
	PlaceBet(ctx context.Context, eventID, outcomeID string, amount int) error
	Close() error
}

// Config controls betting.
type Config struct {
	Enabled    bool
	BetTimeout time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithFatalHandler registers the callback used when the actuator is lost
// while a bet is pending.
func WithFatalHandler(fn func(error)) Option {
	return func(e *Engine) { e.onFatal = fn }
}

// WithStrategyResolver overrides how strategy names map to implementations.
func WithStrategyResolver(fn func(domain.Strategy) (Strategy, error)) Option {
	return func(e *Engine) { e.resolve = fn }
}

// pendingBet is a decision reserved under lock and waiting for the actuator.
type pendingBet struct {
	eventID   string
	channelID string
	strategy  domain.Strategy
	decision  domain.Decision
}

// Engine tracks predictions by event id. Lock order is registry then
// engine: streamer state is read through Registry.View and the engine lock
// is taken inside the callback.
type Engine struct {
	registry  *streamer.Registry
	actuator  Actuator
	publisher event.Publisher
	running   *atomic.Bool
	breaker   *gobreaker.CircuitBreaker
	clock     clockwork.Clock
	cfg       Config
	onFatal   func(error)
	resolve   func(domain.Strategy) (Strategy, error)

	mu     sync.Mutex
	events map[string]*domain.PredictionEvent
	order  []string
	timers map[string]clockwork.Timer

	wg sync.WaitGroup
}

// NewEngine creates an engine. running is the session-wide flag; no bet is
// started once it is false.
func NewEngine(registry *streamer.Registry, actuator Actuator, publisher event.Publisher, running *atomic.Bool, cfg Config, opts ...Option) *Engine {
	if cfg.BetTimeout <= 0 {
		cfg.BetTimeout = DefaultBetTimeout
	}
	e := &Engine{
		registry:  registry,
		actuator:  actuator,
		publisher: publisher,
		running:   running,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
		resolve:   StrategyFor,
		events:    make(map[string]*domain.PredictionEvent),
		timers:    make(map[string]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: BreakerHalfOpenRequests,
		Timeout:     BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= BreakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A closed window is the platform answering normally.
			return err == nil || errors.Is(err, domain.ErrWindowClosed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn(LogMsgBreakerState, "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return e
}

// Handle applies a channel prediction update. The first ACTIVE update
// creates the event and, when betting is enabled, reserves or schedules the
// single bet. Later updates only move the state forward.
func (e *Engine) Handle(ctx context.Context, u pubsub.PredictionUpdate) {
	log := logger.FromContext(ctx)
	var pending *pendingBet

	e.withStreamer(u.ChannelID, func(s *domain.Streamer) {
		e.mu.Lock()
		defer e.mu.Unlock()

		ev, ok := e.events[u.EventID]
		if !ok {
			if u.Status != domain.PredictionActive {
				log.Debug(LogMsgEventIgnored, "event_id", u.EventID, "status", u.Status)
				return
			}
			ev = e.create(u, s)
			log.Info(LogMsgEventCreated,
				"event_id", ev.EventID,
				"streamer", ev.Streamer,
				"title", ev.Title,
				"closes_at", ev.ClosesAt)
			pending = e.planLocked(ctx, ev, s)
			return
		}

		ev.UpdateOutcomes(u.Outcomes)
		prev := ev.Status
		if !ev.Advance(u.Status) {
			return
		}
		log.Info(LogMsgEventAdvanced, "event_id", ev.EventID, "from", prev, "to", ev.Status)
		e.closeWindowLocked(ev)
		switch ev.Status {
		case domain.PredictionResolved:
			ev.Resolve(u.WinningOutcomeID)
		case domain.PredictionCanceled:
			ev.Cancel()
		}
	})

	if pending != nil {
		e.launch(ctx, *pending)
	}
}

// HandleResult records the account-level result of a bet.
func (e *Engine) HandleResult(ctx context.Context, r pubsub.PredictionResult) {
	log := logger.FromContext(ctx)

	e.mu.Lock()
	ev, ok := e.events[r.EventID]
	if !ok {
		e.mu.Unlock()
		log.Debug(LogMsgResultApplied, "event_id", r.EventID, "tracked", false)
		return
	}
	ev.ApplyResult(r.Type, r.PointsWon)
	snapshot := ev.Clone()
	e.mu.Unlock()

	log.Info(LogMsgResultApplied,
		"event_id", r.EventID,
		"type", r.Type,
		"points_won", r.PointsWon,
		"gained", snapshot.Result.Gained)
	e.publish(ctx, event.NewPredictionResultEvent(snapshot))
}

// HandleMade records the account's confirmation of a bet. A confirmation
// for a bet the actuator reported as failed wins: the platform is the
// source of truth for what was placed.
func (e *Engine) HandleMade(ctx context.Context, m pubsub.PredictionMade) {
	log := logger.FromContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.events[m.EventID]
	if !ok {
		return
	}
	if ev.PlacedBet == nil {
		ev.PlacedBet = &domain.Bet{OutcomeID: m.OutcomeID, Amount: m.Points, PlacedAt: e.clock.Now()}
		ev.BetAttempted = true
		ev.BetFailure = ""
	}
	log.Info(LogMsgBetConfirmed, "event_id", m.EventID, "outcome_id", m.OutcomeID, "amount", m.Points)
}

// Events returns copies of every tracked event in creation order.
func (e *Engine) Events() []domain.PredictionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.PredictionEvent, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.events[id].Clone())
	}
	return out
}

// Pending reports how many bets are scheduled or waiting on the actuator.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.timers)
	for _, ev := range e.events {
		if ev.BetAttempted && ev.PlacedBet == nil && ev.BetFailure == "" {
			n++
		}
	}
	return n
}

// Shutdown cancels scheduled bets and waits for in-flight actuator calls.
func (e *Engine) Shutdown(ctx context.Context) error {
	slog.Info(LogMsgShutdown)

	e.mu.Lock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
		if ev, ok := e.events[id]; ok && !ev.BetAttempted {
			ev.BetAttempted = true
			ev.BetFailure = FailureNotRunning
		}
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info(LogMsgShutdownDone)
		return nil
	case <-ctx.Done():
		slog.Warn(LogMsgShutdownTimeout)
		return ctx.Err()
	}
}

// withStreamer runs fn under the registry read lock. Untracked channels run
// fn with a nil streamer and no registry lock.
func (e *Engine) withStreamer(channelID string, fn func(s *domain.Streamer)) {
	if channelID != "" && e.registry.View(channelID, fn) {
		return
	}
	fn(nil)
}

func (e *Engine) create(u pubsub.PredictionUpdate, s *domain.Streamer) *domain.PredictionEvent {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = e.clock.Now()
	}
	ev := &domain.PredictionEvent{
		EventID:       u.EventID,
		ChannelID:     u.ChannelID,
		Title:         u.Title,
		Status:        domain.PredictionActive,
		Outcomes:      append([]domain.Outcome(nil), u.Outcomes...),
		CreatedAt:     createdAt,
		WindowSeconds: u.WindowSeconds,
		ClosesAt:      createdAt.Add(time.Duration(u.WindowSeconds * float64(time.Second))),
	}
	if s != nil {
		ev.Streamer = s.Username
	}
	e.events[ev.EventID] = ev
	e.order = append(e.order, ev.EventID)
	return ev
}

// planLocked either reserves the bet now or arms a timer for Delay seconds
// before the window closes. Caller holds the registry read lock (when s is
// non-nil) and e.mu.
func (e *Engine) planLocked(ctx context.Context, ev *domain.PredictionEvent, s *domain.Streamer) *pendingBet {
	if !e.cfg.Enabled || !e.running.Load() {
		return nil
	}
	if s == nil {
		ev.BetAttempted = true
		ev.BetFailure = FailureNoBalance
		return nil
	}

	if delay := s.BetSettings.Delay; delay > 0 {
		at := ev.ClosesAt.Add(-time.Duration(delay * float64(time.Second)))
		if wait := at.Sub(e.clock.Now()); wait > 0 {
			id, channelID := ev.EventID, ev.ChannelID
			e.timers[id] = e.clock.AfterFunc(wait, func() { e.fire(ctx, id, channelID) })
			logger.FromContext(ctx).Info(LogMsgBetScheduled, "event_id", id, "in", wait)
			return nil
		}
	}
	return e.reserveLocked(ctx, ev, s)
}

// reserveLocked runs the strategy and marks the event as attempted so no
// other path can bet on it again.
func (e *Engine) reserveLocked(ctx context.Context, ev *domain.PredictionEvent, s *domain.Streamer) *pendingBet {
	log := logger.FromContext(ctx)
	settings := s.BetSettings
	ev.BetAttempted = true

	strategy, err := e.resolve(settings.Strategy)
	if err != nil {
		ev.BetFailure = err.Error()
		log.Error(LogMsgBetFailed, "event_id", ev.EventID, "error", err)
		return nil
	}
	decision, ok := strategy.Decide(ev.Clone(), s.ChannelPoints, settings)
	if !ok {
		ev.BetFailure = FailureStrategyDeclined
		log.Info(LogMsgBetDeclined,
			"event_id", ev.EventID,
			"strategy", settings.Strategy,
			"balance", s.ChannelPoints)
		return nil
	}
	return &pendingBet{
		eventID:   ev.EventID,
		channelID: ev.ChannelID,
		strategy:  settings.Strategy,
		decision:  decision,
	}
}

// fire is the delayed-bet timer callback.
func (e *Engine) fire(ctx context.Context, eventID, channelID string) {
	var pending *pendingBet
	e.withStreamer(channelID, func(s *domain.Streamer) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, armed := e.timers[eventID]; !armed {
			return
		}
		delete(e.timers, eventID)
		ev := e.events[eventID]
		if ev.BetAttempted || ev.Status != domain.PredictionActive || s == nil {
			return
		}
		if !e.running.Load() {
			ev.BetAttempted = true
			ev.BetFailure = FailureNotRunning
			return
		}
		pending = e.reserveLocked(ctx, ev, s)
	})
	if pending != nil {
		e.launch(ctx, *pending)
	}
}

// closeWindowLocked disarms a scheduled bet once the window has closed.
func (e *Engine) closeWindowLocked(ev *domain.PredictionEvent) {
	t, ok := e.timers[ev.EventID]
	if !ok {
		return
	}
	t.Stop()
	delete(e.timers, ev.EventID)
	if !ev.BetAttempted {
		ev.BetAttempted = true
		ev.BetFailure = FailureWindowClosed
	}
}

func (e *Engine) launch(ctx context.Context, p pendingBet) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(ctx, p)
	}()
}

// execute calls the actuator outside every lock and records the outcome.
// Failures are final for the event.
func (e *Engine) execute(ctx context.Context, p pendingBet) {
	log := logger.FromContext(ctx).With("event_id", p.eventID)

	var err error
	if !e.running.Load() {
		err = errors.New(FailureNotRunning)
	} else {
		log.Info(LogMsgBetPlacing,
			"outcome_id", p.decision.OutcomeID,
			"amount", p.decision.Amount,
			"strategy", p.strategy)
		err = e.place(ctx, p)
	}

	e.mu.Lock()
	ev := e.events[p.eventID]
	failure := ""
	switch {
	case err == nil:
		if ev.PlacedBet == nil {
			ev.PlacedBet = &domain.Bet{
				OutcomeID: p.decision.OutcomeID,
				Amount:    p.decision.Amount,
				PlacedAt:  e.clock.Now(),
			}
		}
	case ev.PlacedBet == nil:
		failure = err.Error()
		ev.BetFailure = failure
	}
	snapshot := ev.Clone()
	e.mu.Unlock()

	if err != nil {
		log.Warn(LogMsgBetFailed, "error", err)
	} else {
		log.Info(LogMsgBetPlaced, "outcome_id", p.decision.OutcomeID, "amount", p.decision.Amount)
	}
	e.publish(ctx, event.NewBetEvent(snapshot, p.strategy, p.decision, failure))

	if !errors.Is(err, domain.ErrActuatorLost) || e.onFatal == nil {
		return
	}
	// the session closes the actuator while stopping
	if !e.running.Load() {
		log.Info(LogMsgActuatorStopped, "error", err)
		return
	}
	log.Error(LogMsgActuatorLost, "error", err)
	e.onFatal(fmt.Errorf("bet on %s: %w", p.eventID, err))
}

func (e *Engine) place(ctx context.Context, p pendingBet) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.BetTimeout)
	defer cancel()

	_, err := e.breaker.Execute(func() (interface{}, error) {
		return nil, e.actuator.PlaceBet(callCtx, p.eventID, p.decision.OutcomeID, p.decision.Amount)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrBreakerOpen, err)
	}
	if err != nil {
		return fmt.Errorf("failed to place bet: %w", err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, evt event.Event) {
	if e.publisher == nil {
		return
	}
	e.publisher.PublishWithRetry(ctx, evt)
}
