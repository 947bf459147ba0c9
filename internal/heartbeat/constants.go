package heartbeat

import "time"

const (
	// DefaultPeriod is the platform's presence interval.
	DefaultPeriod = 60 * time.Second
	// DefaultJitter is the upper bound of the random delay added to each period.
	DefaultJitter = 5 * time.Second
	// PresenceTimeout bounds a single presence call.
	PresenceTimeout = 10 * time.Second
)

// Log messages
const (
	LogMsgStarted         = "Heartbeat sender started"
	LogMsgStopped         = "Heartbeat sender stopped"
	LogMsgTick            = "Heartbeat tick"
	LogMsgPresenceFailed  = "Presence call failed"
	LogMsgNoOnlineStreams = "No online streamers, skipping presence"
)
