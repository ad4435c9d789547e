package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

// Actuator feed values.
const (
	actuatorOn  = "1"
	actuatorOff = "0"
)

// ScheduleExecutor turns active schedule windows into actuator feed commands.
// The device catalog status doubles as the actuator's ON/OFF indicator.
type ScheduleExecutor struct {
	schedules repository.ScheduleRepo
	devices   repository.DeviceRepo
	publisher FeedClient
	sink      EventSink
	log       *logger.Logger
	loc       *time.Location
}

func NewScheduleExecutor(schedules repository.ScheduleRepo, devices repository.DeviceRepo, publisher FeedClient,
	sink EventSink, log *logger.Logger, loc *time.Location) *ScheduleExecutor {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleExecutor{
		schedules: schedules,
		devices:   devices,
		publisher: publisher,
		sink:      sink,
		log:       logger.OrNop(log),
		loc:       loc,
	}
}

var _ Executor = (*ScheduleExecutor)(nil)

// Run reconciles at the given interval until ctx is canceled.
func (e *ScheduleExecutor) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if _, err := e.Reconcile(ctx, now); err != nil && ctx.Err() == nil {
				e.log.Errorw("reconcile_failed", "err", err)
			}
		}
	}
}

// Reconcile switches every actuator to the state its windows ask for at now
// and deactivates one-shot windows that are over.
func (e *ScheduleExecutor) Reconcile(ctx context.Context, now time.Time) (ReconcileSummary, error) {
	var sum ReconcileSummary
	now = now.UTC()

	active, err := e.schedules.ListActive(ctx)
	if err != nil {
		return sum, fmt.Errorf("list active schedules: %w", err)
	}
	running := make(map[string]string)
	for _, w := range active {
		if ended(w, now) {
			sum.Deactivated = append(sum.Deactivated, w.ID)
			continue
		}
		if _, ok := running[w.DeviceID]; !ok && runningAt(w, now, e.loc) {
			running[w.DeviceID] = w.ID
		}
	}

	devices, err := e.devices.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list devices: %w", err)
	}
	for _, d := range devices {
		if d.Type != models.DevicePump && d.Type != models.DeviceFan {
			continue
		}
		scheduleID, want := running[d.ID]
		if want {
			sum.Running = append(sum.Running, d.ID)
		}
		if want == (d.Status == models.StatusActive) {
			continue
		}
		if d.FeedKey == "" {
			e.log.Warnw("actuator_without_feed", "device_id", d.ID)
			continue
		}
		if err := e.switchActuator(ctx, d, want, scheduleID); err != nil {
			e.log.Errorw("actuator_switch_failed", "device_id", d.ID, "on", want, "err", err)
			continue
		}
		sum.Switched = append(sum.Switched, d.ID)
	}

	if len(sum.Deactivated) > 0 {
		if err := e.schedules.DeactivateMany(ctx, sum.Deactivated); err != nil {
			return sum, fmt.Errorf("deactivate ended schedules: %w", err)
		}
		e.log.Infow("schedules_ended", "schedule_ids", sum.Deactivated)
	}
	sort.Strings(sum.Running)
	return sum, nil
}

func (e *ScheduleExecutor) switchActuator(ctx context.Context, d models.Device, on bool, scheduleID string) error {
	value, status, verb := actuatorOff, models.StatusInactive, "off"
	if on {
		value, status, verb = actuatorOn, models.StatusActive, "on"
	}
	if err := e.publisher.Publish(ctx, d.FeedKey, value); err != nil {
		return err
	}
	if _, err := e.devices.SetStatus(ctx, d.ID, status); err != nil {
		return err
	}
	e.log.Infow("actuator_switched", "device_id", d.ID, "on", on, "schedule_id", scheduleID)
	if e.sink != nil {
		e.sink.Publish(ctx, models.LogEvent{
			Severity:    models.SeverityInfo,
			Description: fmt.Sprintf("%s switched %s.", d.Name, verb),
			DeviceID:    d.ID,
			Metadata:    map[string]any{"schedule_id": scheduleID},
		})
	}
	return nil
}
