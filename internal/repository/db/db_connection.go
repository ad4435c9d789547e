package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// pollers, the executor and the API all write; SQLite wants one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaDevices = `
CREATE TABLE IF NOT EXISTS devices (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    location_id TEXT NOT NULL,
    feed_key TEXT NOT NULL
);
`

const schemaThresholds = `
CREATE TABLE IF NOT EXISTS thresholds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    value REAL NOT NULL,
    device_type TEXT NOT NULL,
    location_id TEXT NOT NULL
);
`

const schemaSchedules = `
CREATE TABLE IF NOT EXISTS schedules (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP NOT NULL,
    repeat_days INTEGER NOT NULL DEFAULT 0 CHECK (repeat_days BETWEEN 0 AND 127),
    is_active BOOLEAN NOT NULL DEFAULT 1,
    source TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
`

const indexSchedulesDevice = `
CREATE INDEX IF NOT EXISTS idx_schedules_device_active ON schedules(device_id, is_active);
`

const schemaMoistureRecords = `
CREATE TABLE IF NOT EXISTS moisture_records (
    sensor_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    soil_moisture REAL NOT NULL,
    PRIMARY KEY (sensor_id, timestamp)
);
`

const schemaClimateRecords = `
CREATE TABLE IF NOT EXISTS climate_records (
    sensor_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    temperature REAL NOT NULL,
    humidity REAL NOT NULL,
    PRIMARY KEY (sensor_id, timestamp)
);
`

const schemaLogEvents = `
CREATE TABLE IF NOT EXISTS log_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    severity TEXT NOT NULL,
    description TEXT NOT NULL,
    device_id TEXT,
    user_id TEXT,
    meta TEXT
);
`

const schemaNotifications = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL,
    recipients TEXT NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'USER'
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaDevices,
		schemaThresholds,
		schemaSchedules,
		indexSchedulesDevice,
		schemaMoistureRecords,
		schemaClimateRecords,
		schemaLogEvents,
		schemaNotifications,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
