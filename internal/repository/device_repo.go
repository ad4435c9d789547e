package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"greenhouse_control/internal/models"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite {
	return &DeviceSQLite{db: db}
}

var _ DeviceRepo = (*DeviceSQLite)(nil)

const (
	deviceColumns = `id, name, type, status, location_id, feed_key`

	selectDeviceByIDSQL = `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	selectDevicesSQL = `SELECT ` + deviceColumns + ` FROM devices ORDER BY id`

	selectFirstDeviceByTypeSQL = `SELECT ` + deviceColumns + ` FROM devices
		WHERE location_id = ? AND type = ? ORDER BY id LIMIT 1`

	// only flips the row when the status actually changes, so callers can
	// tell a fresh transition from a repeat
	updateDeviceStatusSQL = `UPDATE devices SET status = ? WHERE id = ? AND status <> ?`
)

func scanDevice(row interface{ Scan(...any) error }) (models.Device, error) {
	var d models.Device
	var typ, status string
	if err := row.Scan(&d.ID, &d.Name, &typ, &status, &d.LocationID, &d.FeedKey); err != nil {
		return models.Device{}, err
	}
	d.Type = models.DeviceType(typ)
	d.Status = models.DeviceStatus(status)
	return d, nil
}

// Get returns the device or (nil, nil) when it does not exist.
func (r *DeviceSQLite) Get(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select device %q: %w", id, err)
	}
	return &d, nil
}

func (r *DeviceSQLite) List(ctx context.Context) ([]models.Device, error) {
	return r.query(ctx, selectDevicesSQL)
}

// ListByStatus returns devices with the given status, optionally narrowed to types.
func (r *DeviceSQLite) ListByStatus(ctx context.Context, status models.DeviceStatus, types ...models.DeviceType) ([]models.Device, error) {
	q := `SELECT ` + deviceColumns + ` FROM devices WHERE status = ?`
	args := []any{string(status)}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		q += " AND type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	q += " ORDER BY id"
	return r.query(ctx, q, args...)
}

// FindFirstByType returns the first device of typ at the location, or (nil, nil).
func (r *DeviceSQLite) FindFirstByType(ctx context.Context, locationID string, typ models.DeviceType) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectFirstDeviceByTypeSQL, locationID, string(typ)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s at location %q: %w", typ, locationID, err)
	}
	return &d, nil
}

// SetStatus updates the status and reports whether the row changed.
// Setting a status the device already has is not an error.
func (r *DeviceSQLite) SetStatus(ctx context.Context, id string, status models.DeviceStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, updateDeviceStatusSQL, string(status), id, string(status))
	if err != nil {
		return false, fmt.Errorf("update status of device %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for device %q: %w", id, err)
	}
	return n > 0, nil
}

func (r *DeviceSQLite) query(ctx context.Context, q string, args ...any) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
