// Package pubsub multiplexes topic subscriptions over a small set of
// persistent websocket connections to the platform's pub/sub endpoint.
package pubsub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// Handler receives decoded envelopes. Calls for topics on the same
// connection are made sequentially in receipt order.
type Handler func(ctx context.Context, topic domain.Topic, env Envelope)

// Config configures a Pool.
type Config struct {
	URL                    string
	AuthToken              string
	MaxTopicsPerConnection int
	PingInterval           time.Duration
	PingJitter             time.Duration
	PongTimeout            time.Duration
	Backoff                Backoff
	MaxAttempts            int // consecutive failed reconnects before giving up, <= 0 retries forever

	// StableAfter is how long an acknowledged session without traffic must
	// stay up before its failure no longer counts toward MaxAttempts
	StableAfter time.Duration
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		URL:                    DefaultURL,
		MaxTopicsPerConnection: MaxTopicsPerConnection,
		PingInterval:           DefaultPingInterval,
		PingJitter:             DefaultPingJitter,
		PongTimeout:            DefaultPongTimeout,
		Backoff:                DefaultBackoff(),
		MaxAttempts:            DefaultMaxAttempts,
		StableAfter:            DefaultStableAfter,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.MaxTopicsPerConnection <= 0 || c.MaxTopicsPerConnection > MaxTopicsPerConnection {
		c.MaxTopicsPerConnection = d.MaxTopicsPerConnection
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = d.PongTimeout
	}
	if c.StableAfter <= 0 {
		c.StableAfter = d.StableAfter
	}
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = d.Backoff.Base
	}
	if c.Backoff.Max < c.Backoff.Base {
		c.Backoff.Max = d.Backoff.Max
	}
	return c
}

// ReconnectInfo describes a connection that listened again after a failure.
type ReconnectInfo struct {
	ConnectionID int
	Topics       []domain.Topic
	Attempts     int
}

// ConnectionInfo is a point-in-time view of one connection.
type ConnectionInfo struct {
	ID       int            `json:"id"`
	Topics   []domain.Topic `json:"-"`
	Alive    bool           `json:"alive"`
	Dead     bool           `json:"dead"`
	LastPong time.Time      `json:"last_pong"`
	Attempts int            `json:"attempts"`
}

// Option customizes a Pool.
type Option func(*Pool)

// WithClock replaces the clock used for keepalive and backoff timers.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Pool) { p.clock = clock }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Pool) { p.dialer = d }
}

// WithExhaustedHandler is called with the topic set of a connection that
// gave up reconnecting.
func WithExhaustedHandler(fn func(topics []domain.Topic)) Option {
	return func(p *Pool) { p.onExhausted = fn }
}

// WithReconnectHandler is called each time a connection listens again
// after a failure.
func WithReconnectHandler(fn func(ReconnectInfo)) Option {
	return func(p *Pool) { p.onReconnect = fn }
}

// Pool owns the connections and the topic → connection assignment.
type Pool struct {
	cfg         Config
	handler     Handler
	clock       clockwork.Clock
	dialer      *websocket.Dialer
	onExhausted func(topics []domain.Topic)
	onReconnect func(ReconnectInfo)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	conns  []*connection
	topics map[domain.Topic]*connection
	nextID int

	// deliveries hold gate for reading; End takes it for writing once the
	// ended flag is set so no delivery starts after End returns
	gate  sync.RWMutex
	ended atomic.Bool
}

// NewPool creates a pool. Connections are opened lazily by Submit. ctx
// supplies logging values only; the pool lives until End.
func NewPool(ctx context.Context, cfg Config, handler Handler, opts ...Option) *Pool {
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &Pool{
		cfg:     cfg.withDefaults(),
		handler: handler,
		clock:   clockwork.NewRealClock(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: HandshakeTimeout,
			ReadBufferSize:   ReadBufferSize,
			WriteBufferSize:  WriteBufferSize,
		},
		ctx:    poolCtx,
		cancel: cancel,
		topics: make(map[domain.Topic]*connection),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit subscribes topic. Submitting a topic that is already subscribed
// is a no-op.
func (p *Pool) Submit(topic domain.Topic) error {
	if !topic.Family.Valid() || topic.ScopeID == "" {
		return fmt.Errorf("pubsub: submit %q: %w", topic, domain.ErrInvalidTopic)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return domain.ErrPoolClosed
	}
	if _, ok := p.topics[topic]; ok {
		p.mu.Unlock()
		return nil
	}
	c := p.connectionWithCapacityLocked()
	p.topics[topic] = c
	live := c.add(topic)
	p.mu.Unlock()

	if live != nil {
		if err := c.listen(live, []domain.Topic{topic}); err != nil {
			logger.FromContext(p.ctx).Warn(LogMsgListenFailed, "connection", c.id, "topic", topic.String(), "error", err)
			live.fail(fmt.Errorf("listen: %w", err))
		}
	}
	return nil
}

func (p *Pool) connectionWithCapacityLocked() *connection {
	for _, c := range p.conns {
		if !c.isDead() && c.size() < p.cfg.MaxTopicsPerConnection {
			return c
		}
	}
	p.nextID++
	c := newConnection(p.nextID, p)
	p.conns = append(p.conns, c)
	p.wg.Add(1)
	go c.run(p.ctx)
	return c
}

// Topics returns every subscribed topic sorted by wire name.
func (p *Pool) Topics() []domain.Topic {
	p.mu.Lock()
	out := make([]domain.Topic, 0, len(p.topics))
	for t := range p.topics {
		out = append(out, t)
	}
	p.mu.Unlock()
	sortTopics(out)
	return out
}

// Connections returns a view of every connection opened by the pool.
func (p *Pool) Connections() []ConnectionInfo {
	p.mu.Lock()
	conns := append([]*connection(nil), p.conns...)
	p.mu.Unlock()

	out := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.info())
	}
	return out
}

// End stops accepting topics, closes every connection and waits for their
// goroutines, bounded by ctx. No delivery starts after End returns.
func (p *Pool) End(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	log := logger.FromContext(p.ctx)
	p.ended.Store(true)
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		p.gate.Lock()
		p.gate.Unlock()
		close(done)
	}()

	select {
	case <-done:
		log.Info(LogMsgPoolEnded)
		return nil
	case <-ctx.Done():
		log.Warn(LogMsgEndTimeout, "error", ctx.Err())
		return fmt.Errorf("pubsub: end: %w", ctx.Err())
	}
}

func (p *Pool) deliver(ctx context.Context, topic domain.Topic, env Envelope) {
	p.gate.RLock()
	defer p.gate.RUnlock()
	if p.ended.Load() {
		return
	}
	p.handler(ctx, topic, env)
}

func (p *Pool) reconnected(info ReconnectInfo) {
	if p.onReconnect != nil && !p.ended.Load() {
		p.onReconnect(info)
	}
}

func (p *Pool) exhausted(topics []domain.Topic) {
	if p.onExhausted != nil && !p.ended.Load() {
		p.onExhausted(topics)
	}
}

func sortTopics(topics []domain.Topic) {
	sort.Slice(topics, func(i, j int) bool { return topics[i].String() < topics[j].String() })
}
