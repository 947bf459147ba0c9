package miner

import "time"

const (
	// DefaultShutdownGrace bounds the whole shutdown sequence started by Run.
	DefaultShutdownGrace = 10 * time.Second
)

// Log messages
const (
	LogMsgStarting          = "Starting channel points miner"
	LogMsgStreamerSkipped   = "Skipping streamer"
	LogMsgStreamerLoaded    = "Streamer loaded"
	LogMsgBalanceFailed     = "Failed to load channel points"
	LogMsgOnlineFailed      = "Failed to check online status"
	LogMsgTopicFailed       = "Failed to subscribe topic"
	LogMsgRunning           = "Miner running"
	LogMsgFatal             = "Fatal fault, shutting down"
	LogMsgTopicsLost        = "Reconnect exhausted for channel topics"
	LogMsgShutdownStart     = "Shutting down miner"
	LogMsgActuatorClose     = "Failed to close bet actuator"
	LogMsgPoolEnd           = "Failed to end subscription pool"
	LogMsgEngineShutdown    = "Prediction engine shutdown incomplete"
	LogMsgDispatchWait      = "Background actions did not finish"
	LogMsgBackgroundWait    = "Background activities did not finish"
	LogMsgPublisherShutdown = "Event publisher shutdown failed"
	LogMsgReportFailed      = "Failed to write session report"
	LogMsgShutdownDone      = "Miner stopped"
)
