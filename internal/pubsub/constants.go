package pubsub

import "time"

// Default configuration values
const (
	// DefaultURL is the platform's pub/sub edge endpoint
	DefaultURL = "wss://pubsub-edge.twitch.tv/v1"

	// MaxTopicsPerConnection is the platform limit of LISTENed topics per connection
	MaxTopicsPerConnection = 50

	// DefaultPingInterval is how often a PING is sent on each connection
	DefaultPingInterval = 4 * time.Minute

	// DefaultPingJitter is the maximum random delay added to each ping interval
	DefaultPingJitter = 5 * time.Second

	// DefaultPongTimeout is how long to wait for a PONG before the connection is considered dead
	DefaultPongTimeout = 10 * time.Second

	// DefaultBaseBackoff is the delay before the first reconnect attempt
	DefaultBaseBackoff = 1 * time.Second

	// DefaultMaxBackoff caps the delay between reconnect attempts
	DefaultMaxBackoff = 2 * time.Minute

	// DefaultBackoffJitter is the fraction of each backoff delay added at random
	DefaultBackoffJitter = 0.2

	// DefaultStableAfter is how long a quiet acknowledged session must last
	// to reset the reconnect backoff
	DefaultStableAfter = 30 * time.Second

	// DefaultMaxAttempts is the number of consecutive failed reconnects before giving up
	DefaultMaxAttempts = 10

	// WriteTimeout is the timeout for writing messages
	WriteTimeout = 10 * time.Second

	// HandshakeTimeout bounds the websocket dial
	HandshakeTimeout = 15 * time.Second

	// ReadBufferSize is the WebSocket read buffer size
	ReadBufferSize = 4096

	// WriteBufferSize is the WebSocket write buffer size
	WriteBufferSize = 4096
)

// Wire message types
const (
	TypeListen    = "LISTEN"
	TypeUnlisten  = "UNLISTEN"
	TypePing      = "PING"
	TypePong      = "PONG"
	TypeReconnect = "RECONNECT"
	TypeResponse  = "RESPONSE"
	TypeMessage   = "MESSAGE"
)

// Response error codes
const (
	ErrCodeBadAuth   = "ERR_BADAUTH"
	ErrCodeBadTopic  = "ERR_BADTOPIC"
	ErrCodeBadMsg    = "ERR_BADMESSAGE"
	ErrCodeServerErr = "ERR_SERVER"
)

// Inner message types carried in MESSAGE payloads
const (
	MsgPointsEarned      = "points-earned"
	MsgPointsSpent       = "points-spent"
	MsgClaimAvailable    = "claim-available"
	MsgStreamUp          = "stream-up"
	MsgStreamDown        = "stream-down"
	MsgViewCount         = "viewcount"
	MsgRaidUpdate        = "raid_update_v2"
	MsgRaidGo            = "raid_go_v2"
	MsgEventCreated      = "event-created"
	MsgEventUpdated      = "event-updated"
	MsgPredictionResult  = "prediction-result"
	MsgPredictionMade    = "prediction-made"
	MsgPredictionUpdated = "prediction-updated"
)

// Log messages
const (
	LogMsgConnecting       = "Connecting to pub/sub endpoint"
	LogMsgConnected        = "Pub/sub connection established"
	LogMsgDisconnected     = "Pub/sub connection lost"
	LogMsgReconnecting     = "Reconnecting pub/sub connection"
	LogMsgReconnected      = "Pub/sub connection restored"
	LogMsgGivingUp         = "Pub/sub connection failed too many times, giving up"
	LogMsgListenFailed     = "Failed to send LISTEN"
	LogMsgListenError      = "LISTEN rejected by server"
	LogMsgPongTimeout      = "No PONG received before deadline"
	LogMsgReconnectRequest = "Server requested reconnect"
	LogMsgMalformed        = "Dropping malformed pub/sub message"
	LogMsgUnrecognized     = "Dropping unrecognized pub/sub message"
	LogMsgPoolEnded        = "Pub/sub pool stopped"
	LogMsgEndTimeout       = "Pub/sub pool stop exceeded grace period"
)
