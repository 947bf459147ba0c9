package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/osse101/ChannelPointsMiner_Go/internal/config"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
)

// InitializeEventSystem creates the in-memory bus and the resilient
// publisher that retries failed deliveries with exponential backoff and
// writes exhausted events to the dead-letter file.
func InitializeEventSystem(cfg *config.Config) (event.Bus, *event.ResilientPublisher, error) {
	eventBus := event.NewMemoryBus()

	maxRetries := cfg.EventMaxRetries
	if maxRetries <= 0 {
		maxRetries = config.DefaultEventMaxRetries
	}
	retryDelay := cfg.EventRetryDelay
	if retryDelay <= 0 {
		retryDelay = config.DefaultEventRetryDelay
	}
	deadLetterPath := cfg.EventDeadLetterPath
	if deadLetterPath == "" {
		deadLetterPath = config.DefaultEventDeadLetterPath
	}

	if err := os.MkdirAll(filepath.Dir(deadLetterPath), DirPermission); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", LogMsgFailedCreateDeadLetterDir, err)
	}

	if prior, skipped, err := event.ReadDeadLetters(deadLetterPath); err != nil {
		slog.Warn(LogMsgDeadLetterScanFailed, "path", deadLetterPath, "error", err)
	} else if len(prior) > 0 || skipped > 0 {
		slog.Warn(LogMsgDeadLettersPending, "path", deadLetterPath, "entries", len(prior), "unreadable", skipped)
	}

	publisher, err := event.NewResilientPublisher(eventBus, maxRetries, retryDelay, deadLetterPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", LogMsgFailedCreateResilientPublisher, err)
	}

	slog.Info(LogMsgEventSystemInitialized,
		"max_retries", maxRetries,
		"retry_delay", retryDelay,
		"deadletter_path", deadLetterPath)

	return eventBus, publisher, nil
}
