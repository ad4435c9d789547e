package service

import (
	"time"

	"greenhouse_control/internal/models"
)

// LogFilter supports history filtering by time range and severity.
type LogFilter struct {
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Severity string    // "", "INFO", "WARNING", "ERROR"
}

// IngestResult tells the poller what happened to a sample.
type IngestResult string

const (
	IngestAccepted  IngestResult = "accepted"
	IngestDuplicate IngestResult = "duplicate"
	IngestDisabled  IngestResult = "disabled" // this sample tripped the stall threshold
	IngestIgnored   IngestResult = "ignored"  // device no longer polled
)

// PollingSummary is returned by RefreshPolling.
type PollingSummary struct {
	Started []string `json:"started"`
	Stopped []string `json:"stopped"`
}

// Decision cycle outcomes.
const (
	OutcomeIncomplete   = "incomplete"
	OutcomeStale        = "stale"
	OutcomeNoThresholds = "thresholds_missing"
	OutcomeRateLimited  = "rate_limited"
	OutcomeAI           = "ai"
	OutcomeFallback     = "fallback"
)

// Actuation statuses of one actuator channel in a decision cycle.
const (
	ActuationCreated  = "created"
	ActuationSkipped  = "skipped"
	ActuationConflict = "conflict"
	ActuationNoDevice = "no_device"
	ActuationNone     = "none"
	ActuationFailed   = "failed"
)

// ActuationResult reports what one actuator channel did.
type ActuationResult struct {
	Kind       models.ActuatorKind `json:"kind"`
	DeviceID   string              `json:"device_id,omitempty"`
	Urgent     bool                `json:"urgent"`
	Status     string              `json:"status"`
	ScheduleID string              `json:"schedule_id,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// DecisionReport summarises one Evaluate call.
type DecisionReport struct {
	LocationID string                  `json:"location_id"`
	Outcome    string                  `json:"outcome"`
	Decision   *models.DecisionOutcome `json:"decision,omitempty"`
	Actions    []ActuationResult       `json:"actions,omitempty"`
}

// ReconcileSummary is returned by one executor pass.
type ReconcileSummary struct {
	Running     []string `json:"running"`
	Switched    []string `json:"switched"`
	Deactivated []string `json:"deactivated"`
}
