package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/config"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// SetupLogger installs the default slog logger writing to stdout and a new
// session log file under cfg.LogDir. Old session logs beyond the retention
// count are removed first. The caller must close the returned file.
func SetupLogger(cfg *config.Config, now time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(cfg.LogDir, DirPermission); err != nil {
		return nil, "", fmt.Errorf("%s: %w", LogMsgFailedCreateLogsDir, err)
	}

	cleanupLogs(cfg.LogDir, LogFileRetentionCount)

	path := filepath.Join(cfg.LogDir, fmt.Sprintf(LogFileNamePattern, now.Format(LogFileTimestampFormat)))
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermission)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", LogMsgFailedOpenLogFile, err)
	}

	addSource := cfg.Environment == logger.EnvironmentDev
	lcfg := logger.NewConfig(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName, cfg.Version, cfg.Environment, addSource)
	logger.InitLoggerWithWriter(lcfg, io.MultiWriter(os.Stdout, logFile))

	slog.Info(LogMsgLoggingInitialized, "level", lcfg.LogLevel(), "file", path)
	slog.Info(LogMsgStartingMiner,
		"username", cfg.Username,
		"environment", cfg.Environment,
		"version", cfg.Version)
	slog.Debug(LogMsgConfigurationLoaded,
		"actuator", cfg.Actuator,
		"db_driver", cfg.DBDriver,
		"port", cfg.Port,
		"miner_file", cfg.MinerFile)

	return logFile, path, nil
}

// cleanupLogs removes the oldest session logs so that at most keep remain.
// Names embed a sortable timestamp, so lexical order is age order.
func cleanupLogs(logDir string, keep int) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, LogFilePrefix) && strings.HasSuffix(name, LogFileExtension) {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(logDir, name)); err != nil {
			slog.Warn(LogMsgFailedDeleteOldLog, "file", name, "error", err)
		}
	}
}
