package sse

import "time"

const (
	// ClientEventBuffer is how many undelivered events a client may hold
	ClientEventBuffer = 50

	// LagLogInterval throttles the warning for a client that keeps missing events
	LagLogInterval = 100
)

// KeepaliveInterval is how often an idle stream gets a keepalive event
const KeepaliveInterval = 30 * time.Second

// Stream-only event types
const (
	// EventTypeConnected is the first event on every stream
	EventTypeConnected = "connected"

	// EventTypeKeepalive is the keepalive ping event type
	EventTypeKeepalive = "keepalive"
)

// Query parameters
const (
	QueryTypes = "types"
)

// Error messages
const (
	ErrMsgStreamingUnsupported = "Streaming not supported"
	ErrMsgUnknownEventType     = "Unknown event type: "
)

// Log messages
const (
	LogMsgClientConnected    = "SSE client connected"
	LogMsgClientDisconnected = "SSE client disconnected"
	LogMsgEventBroadcast     = "Broadcasting SSE event"
	LogMsgClientLagging      = "SSE client buffer full, dropping event"
	LogMsgWriteError         = "Failed to write SSE event"
	LogMsgSubscriberReady    = "SSE subscriber registered"
)
