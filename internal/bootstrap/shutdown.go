package bootstrap

import (
	"context"
	"log/slog"
	"os"
)

// Stopper is a component stopped with a deadline.
type Stopper interface {
	Stop(ctx context.Context) error
}

// ShutdownComponents holds everything torn down after a session ends. Nil
// fields are skipped.
type ShutdownComponents struct {
	Stream    interface{ Stop() }
	Server    Stopper
	Scheduler Stopper
	Miner     interface{ Shutdown(context.Context) error }
	Publisher interface{ Shutdown(context.Context) error }
	Workers   Stopper
	Storage   *Storage
	LogFile   *os.File
}

// GracefulShutdown stops components in dependency order: event streams,
// server, scheduler, miner (report and event flush), publisher, worker
// pool, storage and finally the log file. Open streams never go idle, so
// they are closed before the server waits for its connections. The
// publisher must be flushed before the workers and storage its subscribers
// write to. Errors are logged and never stop the sequence.
func GracefulShutdown(ctx context.Context, c ShutdownComponents) {
	slog.Info(LogMsgShutdownStarted)

	if c.Stream != nil {
		c.Stream.Stop()
	}
	if c.Server != nil {
		logStopErr(ComponentServer, c.Server.Stop(ctx))
	}
	if c.Scheduler != nil {
		logStopErr(ComponentScheduler, c.Scheduler.Stop(ctx))
	}
	if c.Miner != nil {
		logStopErr(ComponentMiner, c.Miner.Shutdown(ctx))
	}
	if c.Publisher != nil {
		logStopErr(ComponentPublisher, c.Publisher.Shutdown(ctx))
	}
	if c.Workers != nil {
		logStopErr(ComponentWorkers, c.Workers.Stop(ctx))
	}
	c.Storage.Close()

	slog.Info(LogMsgShutdownComplete)

	if c.LogFile != nil {
		if err := c.LogFile.Close(); err != nil {
			slog.Error(LogMsgComponentStopFailed, "component", ComponentLogFile, "error", err)
		}
	}
}

func logStopErr(component string, err error) {
	if err != nil {
		slog.Error(LogMsgComponentStopFailed, "component", component, "error", err)
	}
}
