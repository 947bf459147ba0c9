// Package actuator contains the remote bet actuator: a WebSocket RPC client
// for an external browser-automation agent that clicks the bet buttons.
package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// Request is one RPC sent to the agent.
type Request struct {
	Request        string      `json:"request"`
	ID             string      `json:"id"`
	Args           interface{} `json:"args,omitempty"`
	Authentication string      `json:"authentication,omitempty"`
}

// BetArgs are the arguments of a PlaceBet request.
type BetArgs struct {
	EventID   string `json:"event_id"`
	OutcomeID string `json:"outcome_id"`
	Points    int    `json:"points"`
}

// Response is the agent's answer, correlated by ID.
type Response struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AuthChallenge is the optional first message sent by the agent.
type AuthChallenge struct {
	Info struct {
		Authentication struct {
			Challenge string `json:"challenge"`
			Salt      string `json:"salt"`
		} `json:"authentication"`
	} `json:"info"`
}

var errNotConnected = errors.New("not connected to bet agent")

// Remote implements prediction.Actuator over a persistent WebSocket.
type Remote struct {
	url      string
	password string
	conn     *websocket.Conn
	mu       sync.RWMutex
	writeMu  sync.Mutex
	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	connected bool
	dormant   bool // set after too many consecutive failures

	wakeup chan struct{}

	responses map[string]chan *Response
	respMu    sync.Mutex
}

// NewRemote creates a remote actuator. Call Start to connect.
func NewRemote(url, password string) *Remote {
	if url == "" {
		url = DefaultURL
	}
	return &Remote{
		url:       url,
		password:  password,
		shutdown:  make(chan struct{}),
		wakeup:    make(chan struct{}, 1),
		responses: make(map[string]chan *Response),
	}
}

// Start begins the connection loop with auto-reconnect.
func (r *Remote) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.connectLoop(ctx)
}

// Close stops the connection loop. Later bets fail with
// domain.ErrActuatorLost. It is safe to call more than once.
func (r *Remote) Close() error {
	r.stopOnce.Do(func() {
		close(r.shutdown)
		r.mu.Lock()
		if r.conn != nil {
			_ = r.conn.Close()
		}
		r.mu.Unlock()
		r.wg.Wait()
	})
	return nil
}

// IsConnected reports whether the agent connection is up.
func (r *Remote) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// PlaceBet asks the agent to place a bet and waits for its answer.
func (r *Remote) PlaceBet(ctx context.Context, eventID, outcomeID string, amount int) error {
	select {
	case <-r.shutdown:
		return domain.ErrActuatorLost
	default:
	}

	r.mu.RLock()
	isDormant := r.dormant
	r.mu.RUnlock()
	if isDormant {
		slog.Debug(LogMsgDormantRetry)
		select {
		case r.wakeup <- struct{}{}:
		default:
		}
		return fmt.Errorf("%w: agent dormant, reconnection triggered", domain.ErrActuatorLost)
	}
	if !r.IsConnected() {
		return errNotConnected
	}

	req := Request{
		Request: RequestPlaceBet,
		ID:      uuid.NewString(),
		Args:    BetArgs{EventID: eventID, OutcomeID: outcomeID, Points: amount},
	}
	ch := make(chan *Response, 1)
	r.respMu.Lock()
	r.responses[req.ID] = ch
	r.respMu.Unlock()
	defer func() {
		r.respMu.Lock()
		delete(r.responses, req.ID)
		r.respMu.Unlock()
	}()

	slog.Debug(LogMsgSendingBet, "event_id", eventID, "outcome_id", outcomeID, "amount", amount)
	if err := r.sendRequest(req); err != nil {
		return fmt.Errorf("failed to send bet: %w", err)
	}

	select {
	case resp := <-ch:
		slog.Debug(LogMsgBetAnswered, "event_id", eventID, "status", resp.Status, "code", resp.Code)
		return responseError(resp)
	case <-ctx.Done():
		return ctx.Err()
	case <-r.shutdown:
		return domain.ErrActuatorLost
	}
}

func responseError(resp *Response) error {
	if resp.Status == StatusOK {
		return nil
	}
	switch resp.Code {
	case CodeWindowClosed:
		return fmt.Errorf("%s: %w", resp.Error, domain.ErrWindowClosed)
	case CodeSessionLost:
		return fmt.Errorf("%s: %w", resp.Error, domain.ErrActuatorLost)
	}
	return fmt.Errorf("agent rejected bet: %s", resp.Error)
}

func (r *Remote) connectLoop(ctx context.Context) {
	defer r.wg.Done()

	backoff := DefaultReconnectDelay
	consecutiveFailures := 0

	for {
		select {
		case <-r.shutdown:
			slog.Info(LogMsgClientStopped)
			return
		case <-ctx.Done():
			slog.Info(LogMsgClientStopped)
			return
		default:
		}

		established, err := r.connect(ctx)
		r.setConnected(false)
		if established {
			if consecutiveFailures > 0 {
				slog.Info(LogMsgRestored, "after_failures", consecutiveFailures)
			}
			backoff = DefaultReconnectDelay
			consecutiveFailures = 0
		}
		if err == nil {
			continue
		}
		consecutiveFailures++

		if consecutiveFailures >= MaxConsecutiveFailures {
			if stop := r.handleDormantMode(ctx, &consecutiveFailures, &backoff); stop {
				return
			}
			continue
		}

		// Log the first few failures, then periodically.
		if consecutiveFailures <= 3 || consecutiveFailures%100 == 0 {
			slog.Warn(LogMsgReconnecting,
				"error", err,
				"backoff", backoff,
				"consecutive_failures", consecutiveFailures)
		}

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * ReconnectMultiplier)
			if backoff > MaxReconnectDelay {
				backoff = MaxReconnectDelay
			}
		case <-r.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleDormantMode parks the loop until a bet wakes it or the client stops.
func (r *Remote) handleDormantMode(ctx context.Context, consecutiveFailures *int, backoff *time.Duration) bool {
	r.mu.Lock()
	r.dormant = true
	r.mu.Unlock()

	slog.Warn(LogMsgGivingUp,
		"consecutive_failures", *consecutiveFailures,
		"max_allowed", MaxConsecutiveFailures)

	select {
	case <-r.wakeup:
		slog.Info(LogMsgWaking)
		r.mu.Lock()
		r.dormant = false
		r.mu.Unlock()
		*backoff = DefaultReconnectDelay
		*consecutiveFailures = 0
		return false
	case <-r.shutdown:
		return true
	case <-ctx.Done():
		return true
	}
}

// connect dials, authenticates and runs the read loop. established reports
// whether the session got past authentication.
func (r *Remote) connect(ctx context.Context) (established bool, err error) {
	slog.Info(LogMsgConnecting, "url", r.url)

	dialer := websocket.Dialer{
		ReadBufferSize:  ReadBufferSize,
		WriteBufferSize: WriteBufferSize,
	}
	conn, resp, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("failed to connect: %w (status: %s, code: %d)", err, resp.Status, resp.StatusCode)
		}
		return false, fmt.Errorf("failed to connect: %w", err)
	}

	r.mu.Lock()
	select {
	case <-r.shutdown:
		r.mu.Unlock()
		_ = conn.Close()
		return false, nil
	default:
	}
	r.conn = conn
	r.mu.Unlock()

	// The agent greets every connection; the greeting carries a challenge
	// when a password is configured on its side.
	_ = conn.SetReadDeadline(time.Now().Add(GreetingTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to read greeting: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var challenge AuthChallenge
	if err := json.Unmarshal(msg, &challenge); err == nil && challenge.Info.Authentication.Challenge != "" {
		slog.Info(LogMsgAuthRequired)
		if err := r.authenticate(conn, challenge); err != nil {
			_ = conn.Close()
			return false, fmt.Errorf("authentication failed: %w", err)
		}
		slog.Info(LogMsgAuthSuccess)
	}

	r.setConnected(true)
	slog.Info(LogMsgConnected, "url", r.url)
	return true, r.readLoop(ctx, conn)
}

func (r *Remote) authenticate(conn *websocket.Conn, challenge AuthChallenge) error {
	if r.password == "" {
		return errors.New("password required but not configured")
	}

	req := Request{
		Request: RequestAuthenticate,
		ID:      uuid.NewString(),
		Authentication: GenerateAuthHash(
			r.password,
			challenge.Info.Authentication.Salt,
			challenge.Info.Authentication.Challenge,
		),
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send auth request: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		return fmt.Errorf("failed to parse auth response: %w", err)
	}
	if resp.Status != StatusOK {
		return fmt.Errorf("auth rejected: %s", resp.Error)
	}
	return nil
}

func (r *Remote) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-r.shutdown:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-r.shutdown:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			slog.Warn(LogMsgReadError, "error", err)
			return err
		}

		var resp Response
		if err := json.Unmarshal(msg, &resp); err != nil || resp.ID == "" {
			continue
		}
		r.respMu.Lock()
		ch, ok := r.responses[resp.ID]
		r.respMu.Unlock()
		if ok {
			select {
			case ch <- &resp:
			default:
			}
		}
	}
}

func (r *Remote) sendRequest(req Request) error {
	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()
	if conn == nil {
		return errNotConnected
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return conn.WriteJSON(req)
}

func (r *Remote) setConnected(connected bool) {
	r.mu.Lock()
	r.connected = connected
	r.mu.Unlock()
}
