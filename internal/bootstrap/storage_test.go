package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/config"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/scheduler"
	"github.com/osse101/ChannelPointsMiner_Go/internal/worker"
)

func TestOpenStorage_None(t *testing.T) {
	s, err := OpenStorage(context.Background(), &config.Config{DBDriver: config.DBDriverNone})
	require.NoError(t, err)

	assert.Nil(t, s.Repository)
	assert.Nil(t, s.Check)
	s.Close()
}

func TestOpenStorage_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DBDriver:   config.DBDriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "data", "miner.db"),
	}

	s, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NotNil(t, s.Repository)
	require.NoError(t, s.Check(ctx))

	channel := "123"
	require.NoError(t, s.Repository.LogEvent(ctx, "points.earned", &channel, map[string]interface{}{"delta": 40}, nil))
	events, err := s.Repository.GetEvents(ctx, eventlog.EventFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "points.earned", events[0].EventType)
}

func TestScheduleJobs(t *testing.T) {
	sched := scheduler.New(worker.NewPool(1, 1))
	cfg := &config.Config{CleanupSchedule: config.DefaultCleanupSchedule, EventRetention: 24 * time.Hour}

	require.NoError(t, ScheduleJobs(sched, nil, cfg))
	assert.Empty(t, sched.Entries(), "no event log, no cleanup job")

	svc := eventlog.NewService(&eventlog.MockRepository{})
	require.NoError(t, ScheduleJobs(sched, svc, cfg))
	entries := sched.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, JobEventLogCleanup, entries[0].Name)

	cfg.CleanupSchedule = "every full moon"
	err := ScheduleJobs(sched, svc, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgFailedScheduleJobs)
}
