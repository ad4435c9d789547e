package repository

import (
	"context"
	"database/sql"
	"fmt"

	"greenhouse_control/internal/models"
)

type ThresholdSQLite struct {
	db *sql.DB
}

func NewThresholdSQLite(db *sql.DB) *ThresholdSQLite {
	return &ThresholdSQLite{db: db}
}

const selectThresholdsByLocationSQL = `SELECT id, name, value, device_type, location_id
	FROM thresholds WHERE location_id = ? ORDER BY id`

func (r *ThresholdSQLite) ListByLocation(ctx context.Context, locationID string) ([]models.ThresholdRow, error) {
	rows, err := r.db.QueryContext(ctx, selectThresholdsByLocationSQL, locationID)
	if err != nil {
		return nil, fmt.Errorf("select thresholds for %q: %w", locationID, err)
	}
	defer rows.Close()

	var out []models.ThresholdRow
	for rows.Next() {
		var t models.ThresholdRow
		var typ string
		if err := rows.Scan(&t.ID, &t.Name, &t.Value, &typ, &t.LocationID); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		t.DeviceType = models.DeviceType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}
