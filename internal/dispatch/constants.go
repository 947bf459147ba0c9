package dispatch

import "time"

const (
	// DefaultSeenCacheSize bounds the duplicate-suppression cache
	DefaultSeenCacheSize = 1024

	// ActionTimeout bounds bonus claims and raid joins
	ActionTimeout = 15 * time.Second

	// ReasonSpent is the history reason recorded for points-spent events
	ReasonSpent = "SPENT"
)

// Log messages
const (
	LogMsgUnknownStreamer   = "Dropping event for untracked channel"
	LogMsgUnrecognized      = "Dropping unrecognized envelope"
	LogMsgDuplicate         = "Ignoring duplicate delivery"
	LogMsgPointsEarned      = "Points earned"
	LogMsgPointsSpent       = "Points spent"
	LogMsgStreamOnline      = "Streamer is online"
	LogMsgStreamOffline     = "Streamer is offline"
	LogMsgBonusClaimed      = "Bonus claimed"
	LogMsgBonusClaimFailed  = "Failed to claim bonus"
	LogMsgRaidJoined        = "Joined raid"
	LogMsgRaidJoinFailed    = "Failed to join raid"
	LogMsgRaidIgnored       = "Raid announced, following disabled"
	LogMsgPredictionSkipped = "Prediction event ignored, betting disabled"
)
