package worker

import "time"

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 30 * time.Second

// Log messages
const (
	LogMsgWorkerJobFailed   = "Worker job failed"
	LogMsgWorkerQueueFull   = "Worker queue full, job dropped"
	LogMsgWorkerPanic       = "Worker job panicked"
	LogMsgWorkerPoolStop    = "Worker pool stopping"
	LogMsgWorkerPoolTimeout = "Worker pool stop timed out"
)

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount      = 2
	TestQueueSize        = 10
	TestExpectedJobCount = 2
)
