package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

var errRetryQueueFull = errors.New("retry queue full")

type retryEntry struct {
	event   Event
	attempt int
	lastErr error
}

// ResilientPublisher delivers events to a Bus from a background worker,
// retrying failures with exponential backoff and dead-lettering events
// that never succeed. Callers are never blocked by slow subscribers.
type ResilientPublisher struct {
	bus        Bus
	retryQueue chan retryEntry
	maxRetries int
	retryDelay time.Duration
	deadLetter *DeadLetterWriter
	shutdown   chan struct{}
	wg         sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	nextID  int
	pending map[int]retryEntry
	timers  map[int]*time.Timer
	once    sync.Once
}

// NewResilientPublisher creates a publisher and starts its worker.
func NewResilientPublisher(bus Bus, maxRetries int, retryDelay time.Duration, deadLetterPath string) (*ResilientPublisher, error) {
	dl, err := NewDeadLetterWriter(deadLetterPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter file: %w", err)
	}

	p := &ResilientPublisher{
		bus:        bus,
		retryQueue: make(chan retryEntry, RetryQueueBufferSize),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		deadLetter: dl,
		shutdown:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.retryWorker()
	return p, nil
}

// PublishWithRetry queues event for delivery.
func (p *ResilientPublisher) PublishWithRetry(ctx context.Context, event Event) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		logger.FromContext(ctx).Warn(LogMsgEventDroppedShutdown, "event_type", event.Type)
		p.writeDeadLetter(retryEntry{event: event, lastErr: errors.New("publisher shut down")})
		return
	}

	select {
	case p.retryQueue <- retryEntry{event: event}:
	default:
		logger.FromContext(ctx).Warn(LogMsgRetryQueueFull, "event_type", event.Type)
		p.writeDeadLetter(retryEntry{event: event, lastErr: errRetryQueueFull})
	}
}

// Publish implements Bus. It never returns an error.
func (p *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	p.PublishWithRetry(ctx, event)
	return nil
}

// Subscribe delegates to the inner bus
func (p *ResilientPublisher) Subscribe(eventType Type, handler Handler) {
	p.bus.Subscribe(eventType, handler)
}

func (p *ResilientPublisher) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case entry := <-p.retryQueue:
			p.process(entry)
		case <-p.shutdown:
			p.drain()
			return
		}
	}
}

func (p *ResilientPublisher) process(entry retryEntry) {
	err := p.bus.Publish(context.Background(), entry.event)
	if err == nil {
		if entry.attempt > 0 {
			logger.FromContext(context.Background()).Info(LogMsgEventRetrySucceeded,
				"event_type", entry.event.Type, "attempt", entry.attempt)
		}
		return
	}

	entry.attempt++
	entry.lastErr = err
	if entry.attempt > p.maxRetries {
		logger.FromContext(context.Background()).Warn(LogMsgEventRetryExhausted,
			"event_type", entry.event.Type, "attempts", entry.attempt, "error", err)
		p.writeDeadLetter(entry)
		return
	}

	delay := CalculateRetryDelay(p.retryDelay, entry.attempt)
	logger.FromContext(context.Background()).Debug(LogMsgEventRetryFailed,
		"event_type", entry.event.Type, "attempt", entry.attempt, "delay", delay, "error", err)
	p.schedule(entry, delay)
}

func (p *ResilientPublisher) schedule(entry retryEntry, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.writeDeadLetter(entry)
		return
	}
	if p.pending == nil {
		p.pending = make(map[int]retryEntry)
		p.timers = make(map[int]*time.Timer)
	}
	p.nextID++
	id := p.nextID
	p.pending[id] = entry
	p.timers[id] = time.AfterFunc(delay, func() { p.fire(id) })
}

func (p *ResilientPublisher) fire(id int) {
	p.mu.Lock()
	entry, ok := p.pending[id]
	delete(p.pending, id)
	delete(p.timers, id)
	p.mu.Unlock()
	if !ok {
		return
	}

	select {
	case p.retryQueue <- entry:
	default:
		entry.lastErr = errRetryQueueFull
		p.writeDeadLetter(entry)
	}
}

// drain gives every queued event one final attempt.
func (p *ResilientPublisher) drain() {
	drained := 0
	for {
		select {
		case entry := <-p.retryQueue:
			drained++
			if err := p.bus.Publish(context.Background(), entry.event); err != nil {
				entry.attempt++
				entry.lastErr = err
				p.writeDeadLetter(entry)
			}
		default:
			if drained > 0 {
				logger.FromContext(context.Background()).Info(LogMsgQueueDrainedShutdown, "events", drained)
			}
			return
		}
	}
}

func (p *ResilientPublisher) writeDeadLetter(entry retryEntry) {
	if p.deadLetter == nil {
		logger.FromContext(context.Background()).Error(LogMsgDeadLetterWriteFailed,
			"event_type", entry.event.Type, "error", "no dead letter writer")
		return
	}
	if err := p.deadLetter.Write(entry.event, entry.attempt, entry.lastErr); err != nil {
		logger.FromContext(context.Background()).Error(LogMsgDeadLetterWriteFailed,
			"event_type", entry.event.Type, "error", err)
	}
}

// Shutdown stops accepting events, gives queued and scheduled retries a
// final attempt and waits for the worker, bounded by ctx.
func (p *ResilientPublisher) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		pending, timers := p.pending, p.timers
		p.pending, p.timers = nil, nil
		p.mu.Unlock()

		for id, t := range timers {
			t.Stop()
			entry := pending[id]
			select {
			case p.retryQueue <- entry:
			default:
				p.writeDeadLetter(entry)
			}
		}

		close(p.shutdown)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			if p.deadLetter != nil {
				if cerr := p.deadLetter.Close(); cerr != nil {
					err = fmt.Errorf("failed to close dead letter file: %w", cerr)
				}
			}
		case <-ctx.Done():
			logger.FromContext(ctx).Warn(LogMsgShutdownTimeout)
			err = ctx.Err()
		}
	})
	return err
}
