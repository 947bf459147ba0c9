package domain

// PointsPayload is the event payload for points.earned and points.spent events
type PointsPayload struct {
	ChannelID string `json:"channel_id"`
	Streamer  string `json:"streamer"`
	Delta     int    `json:"delta"`
	Balance   int    `json:"balance"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// BonusClaimedPayload is the event payload for bonus.claimed events
type BonusClaimedPayload struct {
	ChannelID string `json:"channel_id"`
	Streamer  string `json:"streamer"`
	ClaimID   string `json:"claim_id"`
	Timestamp int64  `json:"timestamp"`
}

// StreamStatusPayload is the event payload for stream.online and stream.offline events
type StreamStatusPayload struct {
	ChannelID string `json:"channel_id"`
	Streamer  string `json:"streamer"`
	Online    bool   `json:"online"`
	Timestamp int64  `json:"timestamp"`
}

// RaidPayload is the event payload for raid.joined events
type RaidPayload struct {
	RaidID      string `json:"raid_id"`
	ChannelID   string `json:"channel_id"`
	Streamer    string `json:"streamer"`
	TargetLogin string `json:"target_login"`
	TargetID    string `json:"target_id"`
	ViewerCount int    `json:"viewer_count"`
	Timestamp   int64  `json:"timestamp"`
}

// BetPayload is the event payload for bet.placed and bet.failed events
type BetPayload struct {
	EventID      string   `json:"event_id"`
	ChannelID    string   `json:"channel_id"`
	Streamer     string   `json:"streamer"`
	Title        string   `json:"title"`
	Strategy     Strategy `json:"strategy"`
	OutcomeID    string   `json:"outcome_id"`
	OutcomeTitle string   `json:"outcome_title"`
	Amount       int      `json:"amount"`
	Failure      string   `json:"failure,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}

// PredictionResultPayload is the event payload for prediction.result events
type PredictionResultPayload struct {
	EventID   string     `json:"event_id"`
	ChannelID string     `json:"channel_id"`
	Streamer  string     `json:"streamer"`
	Title     string     `json:"title"`
	Result    ResultType `json:"result"`
	PointsWon int        `json:"points_won"`
	Gained    int        `json:"gained"`
	Timestamp int64      `json:"timestamp"`
}

// ConnectionPayload is the event payload for connection.reconnected events
type ConnectionPayload struct {
	ConnectionID int   `json:"connection_id"`
	Topics       int   `json:"topics"`
	Attempts     int   `json:"attempts"`
	Timestamp    int64 `json:"timestamp"`
}
