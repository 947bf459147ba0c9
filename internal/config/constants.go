package config

import "time"

const (
	// Configuration file paths
	ConfigPathMiner       = "configs/miner.yaml"
	ConfigPathMinerSchema = "configs/schemas/miner.schema.json"
)

// Actuator backends
const (
	ActuatorGQL    = "gql"
	ActuatorRemote = "remote"
)

// Event log storage drivers
const (
	DBDriverNone     = "none"
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Defaults
const (
	DefaultPort              = 8080
	DefaultLogLevel          = "INFO"
	DefaultLogDir            = "logs"
	DefaultSQLitePath        = "data/miner.db"
	DefaultDBMaxConns        = 20
	DefaultDBMaxConnIdleTime = 5 * time.Minute
	DefaultDBMaxConnLifetime = 30 * time.Minute
	DefaultEventRetention    = 30 * 24 * time.Hour
	DefaultCleanupSchedule   = "0 3 * * *"
	DefaultBetTimeout        = 10 * time.Second
	DefaultShutdownGrace     = 10 * time.Second
	DefaultHeartbeatPeriod   = 60 * time.Second
	DefaultHeartbeatJitter   = 5 * time.Second
	DefaultRequestsPerSecond = 5
)

// Warning thresholds for ValidateEnvWithWarnings
const (
	MaxSafeRequestsPerSecond = 10
	MinHeartbeatPeriod       = 20 * time.Second
)

// Event publisher defaults
const (
	DefaultEventMaxRetries     = 5
	DefaultEventRetryDelay     = 2 * time.Second
	DefaultEventDeadLetterPath = "logs/event_deadletter.jsonl"
)
