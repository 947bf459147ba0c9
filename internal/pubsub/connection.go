package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

var (
	errPongTimeout        = errors.New("pong timeout")
	errReconnectRequested = errors.New("server requested reconnect")
)

// connection holds a bounded topic set and keeps it listened across
// transport failures.
type connection struct {
	id   int
	pool *Pool

	mu       sync.Mutex
	topics   map[domain.Topic]struct{}
	current  *session
	alive    bool
	dead     bool
	lastPong time.Time
	attempts int
}

// session is one websocket transport of a connection.
type session struct {
	ws      *websocket.Conn
	pong    chan struct{}
	writeMu sync.Mutex

	mu      sync.Mutex
	cause   error
	acked   bool
	ackedAt time.Time
	traffic bool
}

func newConnection(id int, p *Pool) *connection {
	return &connection{
		id:     id,
		pool:   p,
		topics: make(map[domain.Topic]struct{}),
	}
}

func (c *connection) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics)
}

func (c *connection) isDead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}

// add records topic and returns the attached session it must be listened
// on, or nil when the next session will pick it up with the full set.
func (c *connection) add(topic domain.Topic) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
	return c.current
}

func (c *connection) topicListLocked() []domain.Topic {
	out := make([]domain.Topic, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	sortTopics(out)
	return out
}

func (c *connection) info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		ID:       c.id,
		Topics:   c.topicListLocked(),
		Alive:    c.alive,
		Dead:     c.dead,
		LastPong: c.lastPong,
		Attempts: c.attempts,
	}
}

func (c *connection) run(ctx context.Context) {
	defer c.pool.wg.Done()
	log := logger.FromContext(ctx).With("connection", c.id)

	failures := 0
	for {
		stable, err := c.serve(ctx, log, failures)
		if ctx.Err() != nil {
			return
		}
		if stable {
			failures = 0
			log.Warn(LogMsgDisconnected, "error", err)
		}
		failures++

		c.mu.Lock()
		c.attempts = failures
		c.mu.Unlock()

		if limit := c.pool.cfg.MaxAttempts; limit > 0 && failures > limit {
			log.Error(LogMsgGivingUp, "attempts", failures-1, "error", err)
			c.mu.Lock()
			c.dead = true
			topics := c.topicListLocked()
			c.mu.Unlock()
			c.pool.exhausted(topics)
			return
		}

		delay := c.pool.cfg.Backoff.Duration(failures)
		if failures <= 3 || failures%10 == 0 {
			log.Warn(LogMsgReconnecting, "attempt", failures, "backoff", delay, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-c.pool.clock.After(delay):
		}
	}
}

// serve runs one transport session until it fails. It reports whether the
// session was stable: the server acknowledged the LISTEN and then either
// sent traffic or kept the session up for StableAfter. Only a stable
// session resets the reconnect backoff.
func (c *connection) serve(ctx context.Context, log *slog.Logger, priorFailures int) (bool, error) {
	log.Debug(LogMsgConnecting, "url", c.pool.cfg.URL)

	ws, resp, err := c.pool.dialer.DialContext(ctx, c.pool.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("failed to connect: %w (status: %s)", err, resp.Status)
		}
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer ws.Close()

	s := &session{ws: ws, pong: make(chan struct{}, 1)}

	sessCtx, stop := context.WithCancel(ctx)
	var kwg sync.WaitGroup
	kwg.Add(1)
	go func() {
		defer kwg.Done()
		c.keepalive(sessCtx, s, log)
	}()
	defer func() {
		stop()
		kwg.Wait()
	}()

	c.mu.Lock()
	c.current = s
	topics := c.topicListLocked()
	c.mu.Unlock()
	defer c.detach(s)

	if len(topics) > 0 {
		if err := c.listen(s, topics); err != nil {
			return false, fmt.Errorf("listen: %w", err)
		}
	}

	c.mu.Lock()
	c.alive = true
	c.lastPong = c.pool.clock.Now()
	c.mu.Unlock()

	announce := func() {
		if priorFailures > 0 {
			log.Info(LogMsgReconnected, "topics", len(topics), "after_failures", priorFailures)
			c.pool.reconnected(ReconnectInfo{ConnectionID: c.id, Topics: topics, Attempts: priorFailures})
			return
		}
		log.Info(LogMsgConnected, "topics", len(topics))
	}
	// nothing to acknowledge without topics
	if len(topics) == 0 && s.ack(c.pool.clock.Now()) {
		announce()
	}

	err = c.readLoop(ctx, s, log, announce)
	if cause := s.failure(); cause != nil {
		err = cause
	}
	return s.stable(c.pool.clock.Now(), c.pool.cfg.StableAfter), err
}

func (c *connection) detach(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == s {
		c.current = nil
		c.alive = false
	}
}

func (c *connection) listen(s *session, topics []domain.Topic) error {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.String()
	}
	return s.write(Request{
		Type:  TypeListen,
		Nonce: uuid.NewString(),
		Data:  &ListenData{Topics: names, AuthToken: c.pool.cfg.AuthToken},
	})
}

func (c *connection) readLoop(ctx context.Context, s *session, log *slog.Logger, onAck func()) error {
	for {
		_, raw, err := s.ws.ReadMessage()
		if err != nil {
			return err
		}

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn(LogMsgMalformed, "error", err)
			continue
		}

		switch f.Type {
		case TypePong:
			s.sawTraffic()
			c.mu.Lock()
			c.lastPong = c.pool.clock.Now()
			c.mu.Unlock()
			select {
			case s.pong <- struct{}{}:
			default:
			}
		case TypeReconnect:
			log.Info(LogMsgReconnectRequest)
			return errReconnectRequested
		case TypeResponse:
			if f.Error == "" {
				if s.ack(c.pool.clock.Now()) {
					onAck()
				}
				continue
			}
			if f.Error == ErrCodeBadAuth {
				return fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, f.Error)
			}
			log.Warn(LogMsgListenError, "error", f.Error, "nonce", f.Nonce)
		case TypeMessage:
			s.sawTraffic()
			c.handleMessage(ctx, f.Data, log)
		default:
			log.Debug(LogMsgUnrecognized, "type", f.Type)
		}
	}
}

func (c *connection) handleMessage(ctx context.Context, data *MessageData, log *slog.Logger) {
	if data == nil {
		log.Warn(LogMsgMalformed, "error", "message frame without data")
		return
	}
	topic, err := domain.ParseTopic(data.Topic)
	if err != nil {
		log.Warn(LogMsgMalformed, "error", err)
		return
	}
	c.pool.deliver(ctx, topic, Decode(topic, []byte(data.Message)))
}

func (c *connection) keepalive(ctx context.Context, s *session, log *slog.Logger) {
	clock := c.pool.clock
	for {
		select {
		case <-ctx.Done():
			s.close()
			return
		case <-clock.After(c.pool.cfg.PingInterval + c.pingJitter()):
		}

		select {
		case <-s.pong:
		default:
		}
		if err := s.write(Request{Type: TypePing}); err != nil {
			s.fail(fmt.Errorf("ping: %w", err))
			return
		}

		select {
		case <-ctx.Done():
			s.close()
			return
		case <-s.pong:
		case <-clock.After(c.pool.cfg.PongTimeout):
			log.Warn(LogMsgPongTimeout, "timeout", c.pool.cfg.PongTimeout)
			s.fail(errPongTimeout)
			return
		}
	}
}

func (c *connection) pingJitter() time.Duration {
	if j := c.pool.cfg.PingJitter; j > 0 {
		return time.Duration(rand.Int64N(int64(j)))
	}
	return 0
}

func (s *session) write(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return s.ws.WriteJSON(v)
}

// fail records the first failure cause and closes the transport so the
// read loop returns.
func (s *session) fail(err error) {
	s.mu.Lock()
	if s.cause == nil {
		s.cause = err
	}
	s.mu.Unlock()
	_ = s.ws.Close()
}

// ack records the first successful LISTEN response and reports whether
// this call was the first.
func (s *session) ack(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acked {
		return false
	}
	s.acked = true
	s.ackedAt = now
	return true
}

func (s *session) sawTraffic() {
	s.mu.Lock()
	s.traffic = true
	s.mu.Unlock()
}

func (s *session) stable(now time.Time, after time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acked {
		return false
	}
	return s.traffic || now.Sub(s.ackedAt) >= after
}

func (s *session) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

func (s *session) close() {
	s.writeMu.Lock()
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	_ = s.ws.Close()
}
