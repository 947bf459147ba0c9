// Package postgres stores the event log in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
)

const (
	insertEvent = `INSERT INTO events (event_type, channel_id, payload, metadata) VALUES ($1, $2, $3, $4)`
	selectEvent = `SELECT id, event_type, channel_id, payload, metadata, created_at FROM events`
	deleteOld   = `DELETE FROM events WHERE created_at < $1`
)

// eventRow mirrors eventlog.Event with column tags for pgx.RowToStructByName.
type eventRow struct {
	ID        int64          `db:"id"`
	EventType string         `db:"event_type"`
	ChannelID *string        `db:"channel_id"`
	Payload   map[string]any `db:"payload"`
	Metadata  map[string]any `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}

type eventLogRepository struct {
	db *pgxpool.Pool
}

func NewEventLogRepository(db *pgxpool.Pool) eventlog.Repository {
	return &eventLogRepository{db: db}
}

// LogEvent inserts one row; pgx encodes the maps as JSONB.
func (r *eventLogRepository) LogEvent(ctx context.Context, eventType string, channelID *string, payload, metadata map[string]interface{}) error {
	var meta any
	if metadata != nil {
		meta = metadata
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if _, err := r.db.Exec(ctx, insertEvent, eventType, channelID, payload, meta); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetEvents returns matching events newest first.
func (r *eventLogRepository) GetEvents(ctx context.Context, filter eventlog.EventFilter) ([]eventlog.Event, error) {
	query, args := buildQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[eventRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan events: %w", err)
	}

	events := make([]eventlog.Event, len(found))
	for i, row := range found {
		events[i] = eventlog.Event(row)
	}
	return events, nil
}

func (r *eventLogRepository) CleanupOldEvents(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteOld, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func buildQuery(f eventlog.EventFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	bind := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.ChannelID != nil {
		bind("channel_id = $%d", *f.ChannelID)
	}
	if f.EventType != nil {
		bind("event_type = $%d", *f.EventType)
	}
	if f.Since != nil {
		bind("created_at >= $%d", *f.Since)
	}
	if f.Until != nil {
		bind("created_at <= $%d", *f.Until)
	}

	var b strings.Builder
	b.WriteString(selectEvent)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}
