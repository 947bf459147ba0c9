package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/osse101/ChannelPointsMiner_Go/internal/config"
	"github.com/osse101/ChannelPointsMiner_Go/internal/database"
	"github.com/osse101/ChannelPointsMiner_Go/internal/database/postgres"
	"github.com/osse101/ChannelPointsMiner_Go/internal/database/sqlite"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/handler"
)

// Storage is the event log backend selected by DB_DRIVER. With the "none"
// driver every field is nil.
type Storage struct {
	Repository eventlog.Repository
	Check      handler.CheckFunc
	close      func()
}

// Close releases the database handle, if any.
func (s *Storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStorage opens and migrates the configured event log database.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		pool, err := database.NewPool(cfg.GetDBConnString(), cfg.DBMaxConns, cfg.DBMaxConnIdleTime, cfg.DBMaxConnLifetime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedOpenStorage, err)
		}
		applied, err := database.MigratePool(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
		}
		slog.Info(LogMsgMigrationsApplied, "driver", cfg.DBDriver, "count", applied)
		slog.Info(LogMsgStorageReady, "driver", cfg.DBDriver, "host", cfg.DBHost, "database", cfg.DBName)
		return &Storage{
			Repository: postgres.NewEventLogRepository(pool),
			Check:      pool.Ping,
			close:      pool.Close,
		}, nil

	case config.DBDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedOpenStorage, err)
		}
		applied, err := database.Migrate(ctx, db, database.DialectSQLite)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
		}
		slog.Info(LogMsgMigrationsApplied, "driver", cfg.DBDriver, "count", applied)
		slog.Info(LogMsgStorageReady, "driver", cfg.DBDriver, "path", cfg.SQLitePath)
		return &Storage{
			Repository: sqlite.NewEventLogRepository(db),
			Check:      db.PingContext,
			close:      func() { _ = db.Close() },
		}, nil
	}

	slog.Info(LogMsgStorageDisabled)
	return &Storage{}, nil
}
