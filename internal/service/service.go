package service

import (
	"context"
	"time"

	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/feed"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password, role string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Telemetry polls sensor feeds and turns their values into persisted samples.
type Telemetry interface {
	StartPolling(device models.Device, ch models.Channel, interval time.Duration)
	StopPolling(channelKey string)
	RefreshPolling(ctx context.Context) (PollingSummary, error)
	Ingest(ctx context.Context, device models.Device, ch models.Channel, ts time.Time, value float64) IngestResult
	DisableDevice(ctx context.Context, deviceID string) error
	Polled() []models.Channel
	Close()
}

// Decisions runs decision cycles for a location.
type Decisions interface {
	Evaluate(ctx context.Context, locationID string, state models.LatestSensorState) (DecisionReport, error)
	EvaluateLocation(ctx context.Context, locationID string) (DecisionReport, error)
	BreakerStatus() aiclient.Status
	DecisionServiceHealth(ctx context.Context) (aiclient.Health, error)
}

// Schedules creates and manages actuator schedule windows.
type Schedules interface {
	CreateUrgentSchedule(ctx context.Context, deviceID string, d time.Duration, source string) (*models.ScheduleWindow, error)
	CreateNormalSchedule(ctx context.Context, deviceID string, d time.Duration, source string) (*models.ScheduleWindow, error)
	Create(ctx context.Context, w models.ScheduleWindow) (*models.ScheduleWindow, error)
	SetActive(ctx context.Context, id string, active bool) error
	ListSchedules(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error)
	Delete(ctx context.Context, id string) error
}

// SensorState exposes the latest readings per location.
type SensorState interface {
	LatestState(locationID string) (models.LatestSensorState, bool)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.LogEvent, error)
}

// Executor drives actuators from the active schedule windows.
// Stop via context cancellation in main() for graceful shutdown.
type Executor interface {
	Run(ctx context.Context, tick time.Duration)
	Reconcile(ctx context.Context, now time.Time) (ReconcileSummary, error)
}

// FeedClient is the slice of the feed service the control loop needs.
type FeedClient interface {
	Latest(ctx context.Context, key string) (*feed.Sample, error)
	Publish(ctx context.Context, key, value string) error
}

// DecisionClient is the guarded decision-service client.
type DecisionClient interface {
	Decide(ctx context.Context, req models.DecisionRequest) (models.DecisionOutcome, error)
	Health(ctx context.Context) (aiclient.Health, error)
	Status() aiclient.Status
}

// SampleMirror receives a copy of every persisted record. Optional.
type SampleMirror interface {
	WriteMoisture(ctx context.Context, rec models.MoistureRecord) error
	WriteClimate(ctx context.Context, rec models.ClimateRecord) error
}

// Recorder counts control-loop outcomes. Optional.
type Recorder interface {
	SampleAccepted(q models.Quantity)
	SampleDuplicate()
	DeviceDisabled()
	Decision(outcome string)
	ScheduleCreated(source string)
	ScheduleConflict()
}

type nopRecorder struct{}

func (nopRecorder) SampleAccepted(models.Quantity) {}
func (nopRecorder) SampleDuplicate()               {}
func (nopRecorder) DeviceDisabled()                {}
func (nopRecorder) Decision(string)                {}
func (nopRecorder) ScheduleCreated(string)         {}
func (nopRecorder) ScheduleConflict()              {}

func orNopRecorder(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// Options carries the tunables of the control loop.
type Options struct {
	PollInterval     time.Duration
	RateLimit        time.Duration
	MaxDataAge       time.Duration
	FallbackDuration time.Duration
	EvaluateOnIngest bool
	Location         *time.Location
	SigningKey       string
	TokenTTL         time.Duration
}

// Deps are the outbound collaborators.
type Deps struct {
	Feed      FeedClient
	Decisions DecisionClient
	Mirror    SampleMirror
	Recorder  Recorder
	Log       *logger.Logger
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Telemetry
	Decisions
	Schedules
	SensorState
	EventLog
	Executor
	Authorization
}

// NewService wires the repository layer and outbound clients into concrete services.
func NewService(repos *repository.Repository, deps Deps, opts Options) *Service {
	log := logger.OrNop(deps.Log)
	rec := orNopRecorder(deps.Recorder)

	events := NewEventLogService(repos.Events, repos.Notifications, repos.Auth, log)
	store := NewSensorStateStore()
	schedules := NewScheduleService(repos.Schedules, repos.Devices, rec, log, opts.Location)
	decisions := NewDecisionService(deps.Decisions, repos.Thresholds, repos.Devices, schedules, store, events, rec, log,
		DecisionSettings{RateLimit: opts.RateLimit, MaxDataAge: opts.MaxDataAge, FallbackDuration: opts.FallbackDuration})
	telemetry := NewTelemetryService(deps.Feed, repos.Devices, repos.Samples, store, events, rec, log, opts.PollInterval)
	if deps.Mirror != nil {
		telemetry.SetMirror(deps.Mirror)
	}
	if opts.EvaluateOnIngest {
		telemetry.OnAccepted(func(ctx context.Context, locationID string) {
			_, _ = decisions.EvaluateLocation(ctx, locationID)
		})
	}

	return &Service{
		Telemetry:     telemetry,
		Decisions:     decisions,
		Schedules:     schedules,
		SensorState:   store,
		EventLog:      events,
		Executor:      NewScheduleExecutor(repos.Schedules, repos.Devices, deps.Feed, events, log, opts.Location),
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
	}
}
