// Command miner runs one channel points mining session until it is
// interrupted or fails, then prints the session report.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/actuator"
	"github.com/osse101/ChannelPointsMiner_Go/internal/bootstrap"
	"github.com/osse101/ChannelPointsMiner_Go/internal/config"
	"github.com/osse101/ChannelPointsMiner_Go/internal/discord"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/handler"
	"github.com/osse101/ChannelPointsMiner_Go/internal/heartbeat"
	"github.com/osse101/ChannelPointsMiner_Go/internal/miner"
	"github.com/osse101/ChannelPointsMiner_Go/internal/prediction"
	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
	"github.com/osse101/ChannelPointsMiner_Go/internal/scheduler"
	"github.com/osse101/ChannelPointsMiner_Go/internal/server"
	"github.com/osse101/ChannelPointsMiner_Go/internal/sse"
	"github.com/osse101/ChannelPointsMiner_Go/internal/twitch"
	"github.com/osse101/ChannelPointsMiner_Go/internal/worker"
)

const (
	workerCount     = 2
	workerQueueSize = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration failed", "error", err)
		return 1
	}

	logFile, logPath, err := bootstrap.SetupLogger(cfg, time.Now())
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		return 1
	}

	warnings, err := config.ValidateEnvWithWarnings()
	for _, w := range warnings {
		slog.Warn("Configuration warning", "warning", w)
	}
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		_ = logFile.Close()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	mf, err := config.LoadMinerFile(cfg.MinerFile, cfg.MinerSchema)
	if err != nil {
		slog.Error("Failed to load miner config", "path", cfg.MinerFile, "error", err)
		_ = logFile.Close()
		return 1
	}

	components := bootstrap.ShutdownComponents{LogFile: logFile}
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		bootstrap.GracefulShutdown(sctx, components)
	}

	bus, publisher, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		slog.Error("Failed to initialize event system", "error", err)
		shutdown()
		return 1
	}
	components.Publisher = publisher

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		shutdown()
		return 1
	}
	components.Storage = storage

	var eventLog eventlog.Service
	var events handler.EventReader
	if storage.Repository != nil {
		eventLog = eventlog.NewService(storage.Repository)
		events = eventLog
	}

	workers := worker.NewPool(workerCount, workerQueueSize)
	workers.Start(ctx)
	components.Workers = workers

	var notifier *discord.Notifier
	if cfg.DiscordToken != "" {
		session, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			slog.Error("Failed to create Discord session", "error", err)
			shutdown()
			return 1
		}
		notifier = discord.NewNotifier(session, cfg.DiscordChannelID, workers)
	}

	stream := sse.NewHub(nil)
	stream.Start()
	components.Stream = stream

	if err := bootstrap.RegisterEventHandlers(bootstrap.EventHandlerDependencies{
		EventBus:        bus,
		EventLogService: eventLog,
		Notifier:        notifier,
		Stream:          stream,
	}); err != nil {
		slog.Error("Failed to register event handlers", "error", err)
		shutdown()
		return 1
	}

	sched := scheduler.New(workers)
	if err := bootstrap.ScheduleJobs(sched, eventLog, cfg); err != nil {
		slog.Error("Failed to schedule jobs", "error", err)
		shutdown()
		return 1
	}
	sched.Start()
	components.Scheduler = sched

	client := twitch.NewClient(twitch.Config{
		Username:          cfg.Username,
		AuthToken:         cfg.AuthToken,
		ClientID:          cfg.ClientID,
		RequestsPerSecond: float64(cfg.RequestsPerSecond),
	})

	var act prediction.Actuator
	switch cfg.Actuator {
	case config.ActuatorRemote:
		remote := actuator.NewRemote(cfg.ActuatorURL, cfg.ActuatorPassword)
		remote.Start(ctx)
		defer remote.Close()
		act = remote
	default:
		act = twitch.NewBetActuator(client)
	}

	poolCfg := pubsub.DefaultConfig()
	poolCfg.AuthToken = cfg.AuthToken

	m, err := miner.New(miner.Config{
		Username:        cfg.Username,
		AuthToken:       cfg.AuthToken,
		Bet:             mf.Bet,
		Overrides:       mf.Overrides(),
		MakePredictions: mf.MakePredictions,
		FollowRaid:      mf.FollowRaid,
		ClaimBonus:      mf.ClaimBonus,
		Pool:            poolCfg,
		Heartbeat:       heartbeat.Config{Period: cfg.HeartbeatPeriod, Jitter: cfg.HeartbeatJitter},
		BetTimeout:      cfg.BetTimeout,
		ShutdownGrace:   cfg.ShutdownGrace,
		LogFile:         logPath,
	}, miner.Deps{
		API:       client,
		Actuator:  act,
		Publisher: publisher,
		Out:       os.Stdout,
	})
	if err != nil {
		slog.Error("Failed to create miner", "error", err)
		shutdown()
		return 1
	}
	components.Miner = m

	checks := map[string]handler.CheckFunc{}
	if storage.Check != nil {
		checks[bootstrap.CheckDatabase] = storage.Check
	}
	srv := server.NewServer(server.Options{
		Port:           cfg.Port,
		APIKey:         cfg.APIKey,
		TrustedProxies: cfg.TrustedProxies,
		Session:        m,
		Events:         events,
		Stream:         stream,
		Checks:         checks,
	})
	components.Server = srv
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("Status server failed", "error", err)
		}
	}()

	runErr := m.Run(ctx, mf.Names(cfg.Streamers...))
	shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("Session ended with error", "error", runErr)
		return 1
	}
	return 0
}
