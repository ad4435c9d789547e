package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

const (
	DefaultRateLimit        = 5 * time.Minute
	DefaultMaxDataAge       = 10 * time.Minute
	DefaultFallbackDuration = 30 * time.Minute
)

// ErrThresholdsIncomplete aborts a decision cycle for one location.
var ErrThresholdsIncomplete = errors.New("configuration thresholds are incomplete")

// DecisionSettings tunes the decision cycle. Zero values take the defaults.
type DecisionSettings struct {
	RateLimit        time.Duration
	MaxDataAge       time.Duration
	FallbackDuration time.Duration
}

func (s DecisionSettings) withDefaults() DecisionSettings {
	if s.RateLimit <= 0 {
		s.RateLimit = DefaultRateLimit
	}
	if s.MaxDataAge <= 0 {
		s.MaxDataAge = DefaultMaxDataAge
	}
	if s.FallbackDuration <= 0 {
		s.FallbackDuration = DefaultFallbackDuration
	}
	return s
}

// rateLedger throttles decision calls per location. A location with a call in
// flight is treated as throttled.
type rateLedger struct {
	mu       sync.Mutex
	window   time.Duration
	last     map[string]time.Time
	inFlight map[string]bool
}

func newRateLedger(window time.Duration) *rateLedger {
	return &rateLedger{window: window, last: make(map[string]time.Time), inFlight: make(map[string]bool)}
}

func (l *rateLedger) begin(locationID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight[locationID] {
		return false
	}
	if last, ok := l.last[locationID]; ok && now.Sub(last) < l.window {
		return false
	}
	l.inFlight[locationID] = true
	return true
}

func (l *rateLedger) finish(locationID string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, locationID)
	l.last[locationID] = at
}

type DecisionService struct {
	client     DecisionClient
	thresholds repository.ThresholdRepo
	devices    repository.DeviceRepo
	schedules  Schedules
	store      SensorState
	sink       EventSink
	rec        Recorder
	log        *logger.Logger
	settings   DecisionSettings
	ledger     *rateLedger
	now        func() time.Time
}

func NewDecisionService(client DecisionClient, thresholds repository.ThresholdRepo, devices repository.DeviceRepo,
	schedules Schedules, store SensorState, sink EventSink, rec Recorder, log *logger.Logger, settings DecisionSettings) *DecisionService {
	settings = settings.withDefaults()
	return &DecisionService{
		client:     client,
		thresholds: thresholds,
		devices:    devices,
		schedules:  schedules,
		store:      store,
		sink:       sink,
		rec:        orNopRecorder(rec),
		log:        logger.OrNop(log),
		settings:   settings,
		ledger:     newRateLedger(settings.RateLimit),
		now:        time.Now,
	}
}

var _ Decisions = (*DecisionService)(nil)

// EvaluateLocation runs a cycle on the location's current in-memory state.
func (s *DecisionService) EvaluateLocation(ctx context.Context, locationID string) (DecisionReport, error) {
	state, _ := s.store.LatestState(locationID)
	return s.Evaluate(ctx, locationID, state)
}

// Evaluate runs one decision cycle. Only missing thresholds and lookup
// failures are returned as errors; everything else ends in the report.
func (s *DecisionService) Evaluate(ctx context.Context, locationID string, state models.LatestSensorState) (DecisionReport, error) {
	report := DecisionReport{LocationID: locationID}
	now := s.now().UTC()

	if !state.Complete() {
		report.Outcome = OutcomeIncomplete
		s.log.Debugw("decision_incomplete_state", "location_id", locationID)
		return s.done(report), nil
	}

	if state.LastUpdate == nil {
		s.log.Warnw("decision_state_without_timestamp", "location_id", locationID)
	} else if age := now.Sub(*state.LastUpdate); age > s.settings.MaxDataAge {
		report.Outcome = OutcomeStale
		s.log.Warnw("decision_stale_state", "location_id", locationID, "age", age.String())
		s.publish(ctx, models.SeverityWarning, "",
			fmt.Sprintf("Skipped decision for location %s: sensor data is %s old.", locationID, age.Truncate(time.Second)))
		return s.done(report), nil
	}

	cfg, err := s.resolveThresholds(ctx, locationID)
	if err != nil {
		report.Outcome = OutcomeNoThresholds
		s.log.Errorw("decision_thresholds_missing", "location_id", locationID, "err", err)
		s.publish(ctx, models.SeverityError, "",
			fmt.Sprintf("No decision for location %s: %v.", locationID, err))
		return s.done(report), err
	}

	if !s.ledger.begin(locationID, now) {
		report.Outcome = OutcomeRateLimited
		s.log.Debugw("decision_rate_limited", "location_id", locationID)
		return s.done(report), nil
	}

	data := models.SensorData{SoilMoisture: *state.SoilMoisture, Temperature: *state.Temperature, Humidity: *state.Humidity}
	req := models.DecisionRequest{LocationID: locationID, SensorData: data, Configuration: cfg}
	outcome, err := s.client.Decide(ctx, req)
	s.ledger.finish(locationID, s.now().UTC())

	if err != nil {
		report.Outcome = OutcomeFallback
		if errors.Is(err, aiclient.ErrCircuitOpen) {
			s.log.Infow("decision_circuit_open", "location_id", locationID)
		} else {
			s.log.Warnw("decision_call_failed", "location_id", locationID, "err", err)
		}
		report.Actions = s.fallback(ctx, locationID, data, cfg)
		return s.done(report), nil
	}

	report.Outcome = OutcomeAI
	report.Decision = &outcome
	for _, kind := range []models.ActuatorKind{models.ActuatorPump, models.ActuatorFan} {
		d := outcome.ForKind(kind)
		if !d.On {
			report.Actions = append(report.Actions, ActuationResult{Kind: kind, Status: ActuationNone})
			s.publish(ctx, models.SeverityInfo, "",
				fmt.Sprintf("Decision service requested no %s action for location %s.", strings.ToLower(string(kind)), locationID))
			continue
		}
		report.Actions = append(report.Actions, s.dispatch(ctx, locationID, d, models.SourceAI))
	}
	return s.done(report), nil
}

func (s *DecisionService) done(r DecisionReport) DecisionReport {
	s.rec.Decision(r.Outcome)
	return r
}

// fallback picks at most one actuator: fan on heat or humidity, pump on dry soil.
func (s *DecisionService) fallback(ctx context.Context, locationID string, data models.SensorData, cfg models.ConfigurationThresholds) []ActuationResult {
	kind, reason, ok := fallbackKind(data, cfg)
	if !ok {
		s.log.Infow("fallback_no_action", "location_id", locationID)
		s.publish(ctx, models.SeverityInfo, "",
			fmt.Sprintf("Fallback rule found no condition to act on for location %s.", locationID))
		return []ActuationResult{{Status: ActuationNone}}
	}
	s.log.Infow("fallback_selected", "location_id", locationID, "kind", kind, "reason", reason)
	d := models.ActuatorDecision{
		Kind:            kind,
		On:              true,
		DurationSeconds: int(s.settings.FallbackDuration / time.Second),
		Urgent:          true,
	}
	return []ActuationResult{s.dispatch(ctx, locationID, d, models.SourceFallback)}
}

func fallbackKind(data models.SensorData, cfg models.ConfigurationThresholds) (models.ActuatorKind, string, bool) {
	switch {
	case data.Temperature > cfg.TempMax:
		return models.ActuatorFan, "temperature_above_max", true
	case data.Humidity > cfg.HumidityMax:
		return models.ActuatorFan, "humidity_above_max", true
	case data.SoilMoisture < cfg.MoistureThreshold:
		return models.ActuatorPump, "moisture_below_threshold", true
	}
	return "", "", false
}

// dispatch schedules one actuator of the location.
func (s *DecisionService) dispatch(ctx context.Context, locationID string, d models.ActuatorDecision, source string) ActuationResult {
	res := ActuationResult{Kind: d.Kind, Urgent: d.Urgent}

	dev, err := s.devices.FindFirstByType(ctx, locationID, d.Kind.DeviceType())
	if err != nil || dev == nil {
		res.Status = ActuationNoDevice
		if err != nil {
			res.Error = err.Error()
		}
		s.log.Errorw("actuator_not_found", "location_id", locationID, "kind", d.Kind, "err", err)
		s.publish(ctx, models.SeverityError, "",
			fmt.Sprintf("No %s device found at location %s; %s action dropped.", d.Kind, locationID, source))
		return res
	}
	res.DeviceID = dev.ID
	duration := time.Duration(d.DurationSeconds) * time.Second

	var w *models.ScheduleWindow
	if d.Urgent {
		w, err = s.schedules.CreateUrgentSchedule(ctx, dev.ID, duration, source)
	} else {
		w, err = s.schedules.CreateNormalSchedule(ctx, dev.ID, duration, source)
	}

	switch {
	case errors.Is(err, ErrScheduleConflict):
		res.Status = ActuationConflict
		res.Error = err.Error()
		s.log.Warnw("schedule_conflict", "device_id", dev.ID, "location_id", locationID, "err", err)
		s.publish(ctx, models.SeverityWarning, dev.ID,
			fmt.Sprintf("Schedule for %s was not created: it overlaps an active schedule.", dev.Name))
	case err != nil:
		res.Status = ActuationFailed
		res.Error = err.Error()
		s.log.Errorw("schedule_create_failed", "device_id", dev.ID, "location_id", locationID, "err", err)
		s.publish(ctx, models.SeverityError, dev.ID,
			fmt.Sprintf("Schedule for %s could not be created: %v.", dev.Name, err))
	case w == nil:
		res.Status = ActuationSkipped
		s.publish(ctx, models.SeverityInfo, dev.ID,
			fmt.Sprintf("%s is already running; urgent %s request skipped.", dev.Name, source))
	default:
		res.Status = ActuationCreated
		res.ScheduleID = w.ID
		s.publish(ctx, models.SeverityInfo, dev.ID,
			fmt.Sprintf("Scheduled %s for %d seconds (%s).", dev.Name, d.DurationSeconds, source))
	}
	return res
}

// resolveThresholds builds the location configuration from its named rows.
func (s *DecisionService) resolveThresholds(ctx context.Context, locationID string) (models.ConfigurationThresholds, error) {
	rows, err := s.thresholds.ListByLocation(ctx, locationID)
	if err != nil {
		return models.ConfigurationThresholds{}, fmt.Errorf("list thresholds: %w", err)
	}
	return resolveThresholds(rows)
}

func resolveThresholds(rows []models.ThresholdRow) (models.ConfigurationThresholds, error) {
	var (
		cfg                     models.ConfigurationThresholds
		hasMoisture, hasT, hasH bool
	)
	for _, r := range rows {
		switch {
		case r.DeviceType == models.DeviceMoistureSensor:
			cfg.MoistureThreshold, hasMoisture = r.Value, true
		case r.DeviceType != models.DeviceDHT20Sensor:
		case strings.Contains(r.Name, "TMax"):
			cfg.TempMax, hasT = r.Value, true
		case strings.Contains(r.Name, "HMax"):
			cfg.HumidityMax, hasH = r.Value, true
		case strings.Contains(r.Name, "TMin"):
			v := r.Value
			cfg.TempMin = &v
		}
	}
	var missing []string
	if !hasMoisture {
		missing = append(missing, "moistureThreshold")
	}
	if !hasT {
		missing = append(missing, "tempMax")
	}
	if !hasH {
		missing = append(missing, "humidityMax")
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("%w: missing %s", ErrThresholdsIncomplete, strings.Join(missing, ", "))
	}
	return cfg, nil
}

func (s *DecisionService) publish(ctx context.Context, sev models.Severity, deviceID, msg string) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(ctx, models.LogEvent{Severity: sev, Description: msg, DeviceID: deviceID})
}

func (s *DecisionService) BreakerStatus() aiclient.Status {
	return s.client.Status()
}

func (s *DecisionService) DecisionServiceHealth(ctx context.Context) (aiclient.Health, error) {
	return s.client.Health(ctx)
}
