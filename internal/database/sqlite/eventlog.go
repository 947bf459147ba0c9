// Package sqlite stores the event log in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
)

type eventLogRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventLogRepository creates a SQLite event log repository. The schema
// must already be migrated.
func NewEventLogRepository(db *sql.DB) eventlog.Repository {
	return &eventLogRepository{db: db, now: time.Now}
}

// LogEvent stores an event; created_at is unix milliseconds
func (r *eventLogRepository) LogEvent(ctx context.Context, eventType string, channelID *string, payload, metadata map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var metadataJSON sql.NullString
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (event_type, channel_id, payload, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		eventType, channelID, string(payloadJSON), metadataJSON, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetEvents retrieves events newest first
func (r *eventLogRepository) GetEvents(ctx context.Context, filter eventlog.EventFilter) ([]eventlog.Event, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, event_type, channel_id, payload, metadata, created_at FROM events WHERE 1=1`)
	var args []interface{}

	if filter.ChannelID != nil {
		b.WriteString(" AND channel_id = ?")
		args = append(args, *filter.ChannelID)
	}
	if filter.EventType != nil {
		b.WriteString(" AND event_type = ?")
		args = append(args, *filter.EventType)
	}
	if filter.Since != nil {
		b.WriteString(" AND created_at >= ?")
		args = append(args, filter.Since.UnixMilli())
	}
	if filter.Until != nil {
		b.WriteString(" AND created_at <= ?")
		args = append(args, filter.Until.UnixMilli())
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []eventlog.Event
	for rows.Next() {
		var (
			evt       eventlog.Event
			channelID sql.NullString
			payload   string
			metadata  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&evt.ID, &evt.EventType, &channelID, &payload, &metadata, &createdAt); err != nil {
			return nil, err
		}
		if channelID.Valid {
			id := channelID.String
			evt.ChannelID = &id
		}
		if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
			return nil, err
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &evt.Metadata); err != nil {
				return nil, err
			}
		}
		evt.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, evt)
	}
	return events, rows.Err()
}

// CleanupOldEvents removes events created before the cutoff
func (r *eventLogRepository) CleanupOldEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return result.RowsAffected()
}
