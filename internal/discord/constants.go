package discord

// Embed colors
const (
	ColorRaid   = 0x9146FF
	ColorBet    = 0x3498DB
	ColorFailed = 0xE67E22
	ColorWin    = 0x2ECC71
	ColorLose   = 0xE74C3C
	ColorRefund = 0x95A5A6
)

// Embed titles and labels
const (
	TitleRaid       = "Raid joined"
	TitleBetPlaced  = "Bet placed"
	TitleBetFailed  = "Bet not placed"
	TitlePrediction = "Prediction settled"

	FieldStreamer = "Streamer"
	FieldTarget   = "Target"
	FieldViewers  = "Viewers"
	FieldOutcome  = "Outcome"
	FieldAmount   = "Amount"
	FieldStrategy = "Strategy"
	FieldReason   = "Reason"
	FieldResult   = "Result"
	FieldGained   = "Gained"

	FooterText = "Channel Points Miner"
)

// Log messages
const (
	LogMsgNotifierDisabled = "Discord notifications disabled"
	LogMsgPayloadInvalid   = "Discord notifier could not decode event"
	LogMsgQueueFull        = "Discord notification dropped"
	LogMsgSendFailed       = "Discord notification failed"
)
