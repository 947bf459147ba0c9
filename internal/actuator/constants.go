package actuator

import "time"

// Default configuration values
const (
	// DefaultURL is the default WebSocket URL of the bet agent
	DefaultURL = "ws://127.0.0.1:8765/"

	// DefaultReconnectDelay is the initial delay before attempting to reconnect
	DefaultReconnectDelay = 1 * time.Second

	// MaxReconnectDelay is the maximum delay between reconnection attempts
	MaxReconnectDelay = 30 * time.Second

	// ReconnectMultiplier is the multiplier for exponential backoff
	ReconnectMultiplier = 2.0

	// MaxConsecutiveFailures is the number of connection attempts before going dormant
	MaxConsecutiveFailures = 10

	// GreetingTimeout is how long to wait for the agent's greeting
	GreetingTimeout = 2 * time.Second

	// WriteTimeout is the timeout for writing messages
	WriteTimeout = 10 * time.Second

	// ReadBufferSize is the WebSocket read buffer size
	ReadBufferSize = 4096

	// WriteBufferSize is the WebSocket write buffer size
	WriteBufferSize = 4096
)

// Request types understood by the agent
const (
	RequestPlaceBet     = "PlaceBet"
	RequestAuthenticate = "Authenticate"
)

// Response status values and error codes
const (
	StatusOK    = "ok"
	StatusError = "error"

	CodeWindowClosed = "WINDOW_CLOSED"
	CodeSessionLost  = "SESSION_LOST"
)

// Log messages
const (
	LogMsgConnecting    = "Connecting to bet agent"
	LogMsgConnected     = "Connected to bet agent"
	LogMsgReconnecting  = "Reconnecting to bet agent"
	LogMsgRestored      = "Bet agent connection restored"
	LogMsgAuthRequired  = "Bet agent requires authentication"
	LogMsgAuthSuccess   = "Bet agent authentication successful"
	LogMsgSendingBet    = "Sending bet to agent"
	LogMsgBetAnswered   = "Bet agent answered"
	LogMsgReadError     = "Error reading from bet agent"
	LogMsgClientStopped = "Bet agent client stopped"
	LogMsgGivingUp      = "Bet agent connection failed too many times, entering dormant mode"
	LogMsgWaking        = "Bet agent waking from dormant mode"
	LogMsgDormantRetry  = "Bet agent dormant, retrying connection due to incoming bet"
)
