package repository

import (
	"context"
	"database/sql"
	"fmt"

	"greenhouse_control/internal/models"
)

type SampleSQLite struct {
	db *sql.DB
}

func NewSampleSQLite(db *sql.DB) *SampleSQLite {
	return &SampleSQLite{db: db}
}

// Duplicate (sensor, timestamp) pairs are skipped, not rejected: a poll that
// races a retry must not surface as an error.
const (
	insertMoistureSQL = `INSERT INTO moisture_records (sensor_id, timestamp, soil_moisture)
		VALUES (?, ?, ?) ON CONFLICT(sensor_id, timestamp) DO NOTHING`

	insertClimateSQL = `INSERT INTO climate_records (sensor_id, timestamp, temperature, humidity)
		VALUES (?, ?, ?, ?) ON CONFLICT(sensor_id, timestamp) DO NOTHING`
)

func (r *SampleSQLite) CreateMoisture(ctx context.Context, rec models.MoistureRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertMoistureSQL, rec.SensorID, sqliteTime(rec.Timestamp), rec.SoilMoisture)
	if err != nil {
		return false, fmt.Errorf("insert moisture record for %q: %w", rec.SensorID, err)
	}
	return inserted(res)
}

func (r *SampleSQLite) CreateClimate(ctx context.Context, rec models.ClimateRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertClimateSQL, rec.SensorID, sqliteTime(rec.Timestamp), rec.Temperature, rec.Humidity)
	if err != nil {
		return false, fmt.Errorf("insert climate record for %q: %w", rec.SensorID, err)
	}
	return inserted(res)
}

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
