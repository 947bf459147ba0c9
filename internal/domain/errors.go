package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	ErrMsgStreamerNotFound   = "streamer does not exist"
	ErrMsgInvalidTopic       = "invalid topic"
	ErrMsgPoolClosed         = "subscription pool is closed"
	ErrMsgActuatorLost       = "bet actuator session lost"
	ErrMsgWindowClosed       = "prediction window already closed"
	ErrMsgBreakerOpen        = "bet actuator circuit open"
	ErrMsgReconnectExhausted = "reconnect attempts exhausted"
	ErrMsgSessionRunning     = "session is already running"
	ErrMsgNotAuthenticated   = "auth token rejected"
)

var (
	// ErrStreamerNotFound is returned by the API collaborator when a
	// configured channel name cannot be resolved.
	ErrStreamerNotFound = errors.New(ErrMsgStreamerNotFound)

	// ErrInvalidTopic is returned when a topic string cannot be parsed.
	ErrInvalidTopic = errors.New(ErrMsgInvalidTopic)

	// ErrPoolClosed is returned by Submit after the pool has ended.
	ErrPoolClosed = errors.New(ErrMsgPoolClosed)

	// ErrActuatorLost means the actuator's authenticated session is gone.
	// Losing it while bets are pending is fatal for the session.
	ErrActuatorLost = errors.New(ErrMsgActuatorLost)

	// ErrWindowClosed means the bet arrived after the prediction locked.
	ErrWindowClosed = errors.New(ErrMsgWindowClosed)

	// ErrBreakerOpen is returned when the actuator circuit breaker rejects a call.
	ErrBreakerOpen = errors.New(ErrMsgBreakerOpen)

	// ErrReconnectExhausted is reported when a connection gives up reconnecting.
	ErrReconnectExhausted = errors.New(ErrMsgReconnectExhausted)

	// ErrSessionRunning is returned when Run is called twice on one session.
	ErrSessionRunning = errors.New(ErrMsgSessionRunning)

	// ErrNotAuthenticated is returned when the platform rejects the auth token.
	ErrNotAuthenticated = errors.New(ErrMsgNotAuthenticated)
)
