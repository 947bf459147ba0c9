package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/ChannelPointsMiner_Go/internal/discord"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/metrics"
	"github.com/osse101/ChannelPointsMiner_Go/internal/sse"
)

// EventHandlerDependencies holds the subscribers to wire onto the bus.
// Everything but the bus is optional.
type EventHandlerDependencies struct {
	EventBus        event.Bus
	EventLogService eventlog.Service
	Notifier        *discord.Notifier
	Stream          *sse.Hub
}

// RegisterEventHandlers subscribes the metrics collector, the event logger,
// the Discord notifier and the live event stream.
func RegisterEventHandlers(deps EventHandlerDependencies) error {
	if err := metrics.NewEventMetricsCollector().Register(deps.EventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedRegisterMetrics, err)
	}
	slog.Info(LogMsgMetricsCollectorRegistered)

	if deps.EventLogService != nil {
		if err := deps.EventLogService.Subscribe(deps.EventBus); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedSubscribeEventLogger, err)
		}
		slog.Info(LogMsgEventLoggerInitialized)
	}

	if deps.Notifier != nil {
		if err := deps.Notifier.Register(deps.EventBus); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedRegisterNotifier, err)
		}
		slog.Info(LogMsgDiscordNotifierRegistered)
	}

	if deps.Stream != nil {
		if err := sse.NewSubscriber(deps.Stream).Register(deps.EventBus); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedRegisterStream, err)
		}
	}

	return nil
}
