package bootstrap

import "os"

// =============================================================================
// File System Permissions
// =============================================================================

const (
	// DirPermission is the standard permission for creating directories
	DirPermission os.FileMode = 0o755

	// LogFilePermission is the permission for log files
	LogFilePermission os.FileMode = 0o644
)

// =============================================================================
// Logger Configuration
// =============================================================================

const (
	// LogFileTimestampFormat is the timestamp format for log filenames (YYYY-MM-DD_HH-MM-SS)
	LogFileTimestampFormat = "2006-01-02_15-04-05"

	// LogFileNamePattern is the format string for log filenames
	LogFileNamePattern = "session_%s.log"

	// LogFilePrefix and LogFileExtension identify session logs during cleanup
	LogFilePrefix    = "session_"
	LogFileExtension = ".log"

	// LogFileRetentionCount is the number of older session logs kept next to
	// the new one
	LogFileRetentionCount = 9
)

// Log messages for logger initialization
const (
	LogMsgLoggingInitialized  = "Logging initialized"
	LogMsgStartingMiner       = "Starting channel points miner"
	LogMsgConfigurationLoaded = "Configuration loaded"
	LogMsgFailedCreateLogsDir = "failed to create logs directory"
	LogMsgFailedOpenLogFile   = "failed to open log file"
	LogMsgFailedDeleteOldLog  = "Failed to delete old log file"
)

// =============================================================================
// Event System
// =============================================================================

// Log messages for event system initialization
const (
	LogMsgEventSystemInitialized         = "Event system initialized"
	LogMsgFailedCreateDeadLetterDir      = "failed to create dead-letter directory"
	LogMsgDeadLettersPending             = "Undelivered events from a previous run are in the dead-letter file"
	LogMsgDeadLetterScanFailed           = "Failed to scan dead-letter file"
	LogMsgFailedCreateResilientPublisher = "failed to create resilient publisher"
)

// Log messages for event handler registration
const (
	LogMsgMetricsCollectorRegistered = "Metrics collector registered"
	LogMsgEventLoggerInitialized     = "Event logger initialized"
	LogMsgDiscordNotifierRegistered  = "Discord notifier registered"
	ErrMsgFailedRegisterMetrics      = "failed to register metrics collector"
	ErrMsgFailedSubscribeEventLogger = "failed to subscribe event logger"
	ErrMsgFailedRegisterNotifier     = "failed to register discord notifier"
	ErrMsgFailedRegisterStream       = "failed to register event stream"
)

// =============================================================================
// Storage
// =============================================================================

const (
	LogMsgStorageDisabled    = "Event log disabled"
	LogMsgStorageReady       = "Event log storage ready"
	LogMsgMigrationsApplied  = "Database migrations applied"
	LogMsgCleanupScheduled   = "Event log cleanup scheduled"
	ErrMsgFailedOpenStorage  = "failed to open event log storage"
	ErrMsgFailedMigrate      = "failed to migrate event log storage"
	ErrMsgFailedScheduleJobs = "failed to schedule jobs"
)

// CheckDatabase is the readiness check name for the event log database
const CheckDatabase = "database"

// Scheduled job names
const (
	JobEventLogCleanup = "eventlog-cleanup"
)

// =============================================================================
// Shutdown Messages
// =============================================================================

const (
	LogMsgShutdownStarted     = "Shutting down"
	LogMsgShutdownComplete    = "Shutdown complete"
	LogMsgComponentStopFailed = "Component shutdown failed"
)

// Component names for shutdown logging
const (
	ComponentStream    = "stream"
	ComponentServer    = "server"
	ComponentScheduler = "scheduler"
	ComponentMiner     = "miner"
	ComponentPublisher = "publisher"
	ComponentWorkers   = "workers"
	ComponentStorage   = "storage"
	ComponentLogFile   = "logfile"
)
