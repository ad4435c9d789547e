package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenhouse_control/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

// ErrScheduleNotFound is returned by mutations on a missing schedule id.
var ErrScheduleNotFound = errors.New("schedule not found")

const (
	scheduleColumns = `id, device_id, start_time, end_time, repeat_days, is_active, source, created_at`

	insertScheduleSQL = `INSERT INTO schedules (` + scheduleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectScheduleByIDSQL = `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`

	selectRunningScheduleSQL = `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE device_id = ? AND is_active = 1 AND start_time <= ? AND end_time > ?
		ORDER BY start_time LIMIT 1`

	selectActiveByDeviceSQL = `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE device_id = ? AND is_active = 1 ORDER BY start_time`

	selectActiveSQL = `SELECT ` + scheduleColumns + ` FROM schedules WHERE is_active = 1 ORDER BY start_time`

	selectByDeviceSQL = `SELECT ` + scheduleColumns + ` FROM schedules WHERE device_id = ? ORDER BY start_time`

	updateScheduleActiveSQL = `UPDATE schedules SET is_active = ? WHERE id = ?`

	deleteScheduleSQL = `DELETE FROM schedules WHERE id = ?`
)

func scanSchedule(row interface{ Scan(...any) error }) (models.ScheduleWindow, error) {
	var w models.ScheduleWindow
	if err := row.Scan(&w.ID, &w.DeviceID, &w.StartTime, &w.EndTime, &w.RepeatDays, &w.IsActive, &w.Source, &w.CreatedAt); err != nil {
		return models.ScheduleWindow{}, err
	}
	w.StartTime = w.StartTime.UTC()
	w.EndTime = w.EndTime.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

func (r *ScheduleSQLite) Create(ctx context.Context, w models.ScheduleWindow) error {
	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertScheduleSQL,
		w.ID,
		w.DeviceID,
		sqliteTime(w.StartTime),
		sqliteTime(w.EndTime),
		w.RepeatDays,
		w.IsActive,
		w.Source,
		sqliteTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert schedule for device %q: %w", w.DeviceID, err)
	}
	return nil
}

// Get returns the schedule or (nil, nil) when missing.
func (r *ScheduleSQLite) Get(ctx context.Context, id string) (*models.ScheduleWindow, error) {
	w, err := scanSchedule(r.db.QueryRowContext(ctx, selectScheduleByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select schedule %q: %w", id, err)
	}
	return &w, nil
}

// FindRunning returns an active schedule of the device whose absolute window
// contains now (start <= now < end), or (nil, nil).
func (r *ScheduleSQLite) FindRunning(ctx context.Context, deviceID string, now time.Time) (*models.ScheduleWindow, error) {
	ts := sqliteTime(now)
	w, err := scanSchedule(r.db.QueryRowContext(ctx, selectRunningScheduleSQL, deviceID, ts, ts))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select running schedule for %q: %w", deviceID, err)
	}
	return &w, nil
}

func (r *ScheduleSQLite) ListActiveByDevice(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error) {
	return r.query(ctx, selectActiveByDeviceSQL, deviceID)
}

func (r *ScheduleSQLite) ListActive(ctx context.Context) ([]models.ScheduleWindow, error) {
	return r.query(ctx, selectActiveSQL)
}

func (r *ScheduleSQLite) ListByDevice(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error) {
	return r.query(ctx, selectByDeviceSQL, deviceID)
}

func (r *ScheduleSQLite) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, updateScheduleActiveSQL, id, active, id)
}

// DeactivateMany clears is_active on all given ids in one statement.
func (r *ScheduleSQLite) DeactivateMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `UPDATE schedules SET is_active = 0 WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("deactivate %d schedules: %w", len(ids), err)
	}
	return nil
}

func (r *ScheduleSQLite) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, deleteScheduleSQL, id, id)
}

func (r *ScheduleSQLite) execOne(ctx context.Context, q, id string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update schedule %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for schedule %q: %w", id, err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleSQLite) query(ctx context.Context, q string, args ...any) ([]models.ScheduleWindow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduleWindow
	for rows.Next() {
		w, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
