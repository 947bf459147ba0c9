package prediction

import "time"

const (
	// DefaultBetTimeout bounds a single actuator call.
	DefaultBetTimeout = 10 * time.Second

	// Circuit breaker settings for the bet actuator
	BreakerName             = "bet-actuator"
	BreakerFailureThreshold = 3 // consecutive failures before the circuit opens
	BreakerOpenTimeout      = 2 * time.Minute
	BreakerHalfOpenRequests = 1

	// Failure reasons recorded on an event that got no bet
	FailureStrategyDeclined = "strategy declined"
	FailureNoBalance        = "streamer not tracked"
	FailureNotRunning       = "session stopping"
	FailureWindowClosed     = "window closed before bet"
)

// Log messages
const (
	LogMsgEventCreated    = "Prediction opened"
	LogMsgEventAdvanced   = "Prediction status changed"
	LogMsgEventIgnored    = "Ignoring prediction first seen after window closed"
	LogMsgBetScheduled    = "Bet scheduled before window close"
	LogMsgBetDeclined     = "Strategy declined to bet"
	LogMsgBetPlacing      = "Placing bet"
	LogMsgBetPlaced       = "Bet placed"
	LogMsgBetFailed       = "Bet failed, not retrying"
	LogMsgResultApplied   = "Prediction result received"
	LogMsgBetConfirmed    = "Bet confirmed by account"
	LogMsgActuatorLost    = "Bet actuator lost with bets pending"
	LogMsgActuatorStopped = "Bet actuator closed during shutdown"
	LogMsgBreakerState    = "Bet actuator circuit changed state"
	LogMsgShutdown        = "Shutting down prediction engine"
	LogMsgShutdownDone    = "Prediction engine shutdown complete"
	LogMsgShutdownTimeout = "Prediction engine shutdown timed out"
)
