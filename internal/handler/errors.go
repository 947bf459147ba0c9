package handler

// User-facing error messages
const (
	ErrMsgInvalidQuery      = "Invalid query parameters"
	ErrMsgStreamerNotFound  = "Streamer not found"
	ErrMsgEventsUnavailable = "Event log is not configured"
	ErrMsgEventsFailed      = "Failed to load events"
)

// Health status values
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// Log messages
const (
	LogMsgEncodeFailed    = "Failed to encode JSON response"
	LogMsgWriteFailed     = "Failed to write response buffer"
	LogMsgReadinessFailed = "Readiness check failed"
	LogMsgEventsFailed    = "Failed to load events"
)

// Query parameter names
const (
	QueryStreamer  = "streamer"
	QueryChannelID = "channel_id"
	QueryType      = "type"
	QuerySince     = "since"
	QueryUntil     = "until"
	QueryLimit     = "limit"
)

// URL parameter names
const (
	URLParamUsername = "username"
)
