package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/ChannelPointsMiner_Go/internal/config"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/scheduler"
)

// ScheduleJobs registers the periodic maintenance jobs. Nothing is
// scheduled without an event log.
func ScheduleJobs(sched *scheduler.Scheduler, eventLog eventlog.Service, cfg *config.Config) error {
	if eventLog == nil {
		return nil
	}
	job := eventlog.NewCleanupJob(eventLog, cfg.EventRetention)
	if err := sched.Schedule(JobEventLogCleanup, cfg.CleanupSchedule, job); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedScheduleJobs, err)
	}
	slog.Info(LogMsgCleanupScheduled, "schedule", cfg.CleanupSchedule, "retention", cfg.EventRetention)
	return nil
}
