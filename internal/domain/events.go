package domain

// Event type constants published on the event bus and consumed by the
// eventlog, metrics and notification modules.
//
// Event types follow the pattern: <entity>.<action> (e.g., "points.earned")
const (
	// EventTypePointsEarned is published when the account-points topic reports a gain
	EventTypePointsEarned = "points.earned"

	// EventTypePointsSpent is published when the account-points topic reports a spend
	EventTypePointsSpent = "points.spent"

	// EventTypeBonusClaimed is published after a claim-available bonus was claimed
	EventTypeBonusClaimed = "bonus.claimed"

	// EventTypeStreamOnline is published when a tracked streamer goes live
	EventTypeStreamOnline = "stream.online"

	// EventTypeStreamOffline is published when a tracked streamer goes offline
	EventTypeStreamOffline = "stream.offline"

	// EventTypeRaidJoined is published when the account followed a raid
	EventTypeRaidJoined = "raid.joined"

	// EventTypeBetPlaced is published after the actuator accepted a bet
	EventTypeBetPlaced = "bet.placed"

	// EventTypeBetFailed is published when a reserved bet could not be placed
	EventTypeBetFailed = "bet.failed"

	// EventTypePredictionResult is published when the result of a bet is known
	EventTypePredictionResult = "prediction.result"

	// EventTypeConnectionReconnected is published after a pub/sub connection re-listened
	EventTypeConnectionReconnected = "connection.reconnected"
)
