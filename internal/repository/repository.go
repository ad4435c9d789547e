package repository

import (
	"context"
	"database/sql"
	"time"

	"greenhouse_control/internal/models"
)

// DeviceRepo is the device catalog.
type DeviceRepo interface {
	Get(ctx context.Context, id string) (*models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
	ListByStatus(ctx context.Context, status models.DeviceStatus, types ...models.DeviceType) ([]models.Device, error)
	FindFirstByType(ctx context.Context, locationID string, typ models.DeviceType) (*models.Device, error)
	SetStatus(ctx context.Context, id string, status models.DeviceStatus) (bool, error)
}

// ThresholdRepo reads operator-configured threshold rows.
type ThresholdRepo interface {
	ListByLocation(ctx context.Context, locationID string) ([]models.ThresholdRow, error)
}

// ScheduleRepo stores actuator schedule windows.
type ScheduleRepo interface {
	Create(ctx context.Context, w models.ScheduleWindow) error
	Get(ctx context.Context, id string) (*models.ScheduleWindow, error)
	FindRunning(ctx context.Context, deviceID string, now time.Time) (*models.ScheduleWindow, error)
	ListActiveByDevice(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error)
	ListActive(ctx context.Context) ([]models.ScheduleWindow, error)
	ListByDevice(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error)
	SetActive(ctx context.Context, id string, active bool) error
	DeactivateMany(ctx context.Context, ids []string) error
	Delete(ctx context.Context, id string) error
}

// SampleRepo persists sensor records. Create* report false when the
// (sensor, timestamp) pair already exists.
type SampleRepo interface {
	CreateMoisture(ctx context.Context, r models.MoistureRecord) (bool, error)
	CreateClimate(ctx context.Context, r models.ClimateRecord) (bool, error)
}

// EventRepo is the append-only audit log.
type EventRepo interface {
	Append(ctx context.Context, e models.LogEvent) error
	List(ctx context.Context, from, to time.Time, severity string) ([]models.LogEvent, error)
}

// NotificationRepo stores operator notifications.
type NotificationRepo interface {
	Create(ctx context.Context, n models.Notification) error
}

// Authorization stores operator accounts.
type Authorization interface {
	Create(ctx context.Context, username, hash, role string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListIDsByRole(ctx context.Context, role string) ([]int, error)
}

type Repository struct {
	Devices       DeviceRepo
	Thresholds    ThresholdRepo
	Schedules     ScheduleRepo
	Samples       SampleRepo
	Events        EventRepo
	Notifications NotificationRepo
	Auth          Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Devices:       NewDeviceSQLite(db),
		Thresholds:    NewThresholdSQLite(db),
		Schedules:     NewScheduleSQLite(db),
		Samples:       NewSampleSQLite(db),
		Events:        NewEventSQLite(db),
		Notifications: NewNotificationSQLite(db),
		Auth:          NewUserRepository(db),
	}
}

// sqliteTimeLayout is the TIMESTAMP text format written by every repository.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// sqliteTime formats t as UTC text so lexical comparison in SQL matches time order.
func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
