package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"greenhouse_control/internal/models"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const (
	insertLogEventSQL = `
		INSERT INTO log_events (id, occurred_at, severity, description, device_id, user_id, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectLogEventsSQL = `SELECT id, occurred_at, severity, description, device_id, user_id, meta FROM log_events`
)

// Append inserts a new event. If EventID or OccurredAt are empty, they're set.
func (r *EventSQLite) Append(ctx context.Context, e models.LogEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, insertLogEventSQL,
		e.EventID,
		sqliteTime(e.OccurredAt),
		strings.ToUpper(strings.TrimSpace(string(e.Severity))),
		e.Description,
		nullString(e.DeviceID),
		nullString(e.UserID),
		metaPtr,
	)
	if err != nil {
		return fmt.Errorf("insert log event: %w", err)
	}
	return nil
}

// List returns events filtered by [from, to] (inclusive) and/or severity, ordered ASC.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, severity string) ([]models.LogEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, sqliteTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, sqliteTime(to))
	}
	if severity = strings.ToUpper(strings.TrimSpace(severity)); severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, severity)
	}

	q := selectLogEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.LogEvent, 0, 64)
	for rows.Next() {
		var (
			ev                        models.LogEvent
			severityStr               string
			deviceID, userID, metaStr sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &severityStr, &ev.Description, &deviceID, &userID, &metaStr); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.Severity = models.Severity(severityStr)
		ev.DeviceID = deviceID.String
		ev.UserID = userID.String

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
