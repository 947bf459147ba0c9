package event

import "time"

// EventSchemaVersion is stamped on every event built by the New*Event
// constructors.
const EventSchemaVersion = "1.0"

const (
	// RetryQueueBufferSize bounds events waiting for delivery. Overflow goes
	// straight to the dead-letter file.
	RetryQueueBufferSize = 1000

	// MaxRetryDelay caps the exponential backoff between delivery attempts.
	MaxRetryDelay = 5 * time.Minute

	DeadLetterSchemaVersion   = "1.0"
	DeadLetterFilePermissions = 0644
)

const (
	LogMsgRetryQueueFull        = "Retry queue full, event dropped to dead-letter"
	LogMsgDeadLetterWriteFailed = "Failed to write to dead letter"
	LogMsgEventDeadLettered     = "event_dead_lettered"
	LogMsgEventRetryExhausted   = "Event retry exhausted, writing to dead-letter"
	LogMsgEventRetryFailed      = "Event retry failed, scheduling next attempt"
	LogMsgEventRetrySucceeded   = "Event retry succeeded"
	LogMsgEventDroppedShutdown  = "Event dropped during shutdown"
	LogMsgQueueDrainedShutdown  = "Drained retry queue during shutdown"
	LogMsgShutdownTimeout       = "Resilient publisher shutdown timed out"

	LogMsgHandlerErrorFormat = "encountered %d errors while handling event %s: %v"
)

// CalculateRetryDelay doubles baseDelay for every attempt after the first,
// capped at MaxRetryDelay.
func CalculateRetryDelay(baseDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return delay
}
