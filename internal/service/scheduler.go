package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrScheduleConflict = errors.New("schedule conflicts with an active schedule")
	ErrInvalidSchedule  = errors.New("invalid schedule window")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrScheduleNotFound = repository.ErrScheduleNotFound
)

type ScheduleService struct {
	schedules repository.ScheduleRepo
	devices   repository.DeviceRepo
	rec       Recorder
	log       *logger.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewScheduleService(schedules repository.ScheduleRepo, devices repository.DeviceRepo, rec Recorder,
	log *logger.Logger, loc *time.Location) *ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleService{
		schedules: schedules,
		devices:   devices,
		rec:       orNopRecorder(rec),
		log:       logger.OrNop(log),
		loc:       loc,
		now:       time.Now,
	}
}

var _ Schedules = (*ScheduleService)(nil)

// CreateUrgentSchedule only checks whether something is running right now.
// When it is, the request is dropped and (nil, nil) is returned.
func (s *ScheduleService) CreateUrgentSchedule(ctx context.Context, deviceID string, d time.Duration, source string) (*models.ScheduleWindow, error) {
	now := s.now().UTC().Truncate(time.Second)

	running, err := s.schedules.FindRunning(ctx, deviceID, now)
	if err != nil {
		return nil, fmt.Errorf("find running schedule: %w", err)
	}
	if running != nil {
		s.log.Infow("urgent_schedule_skipped", "device_id", deviceID, "running_schedule_id", running.ID,
			"running_until", running.EndTime)
		return nil, nil
	}

	w := models.ScheduleWindow{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		StartTime:  now,
		EndTime:    now.Add(d),
		RepeatDays: 0,
		IsActive:   true,
		Source:     source,
		CreatedAt:  now,
	}
	if err := s.schedules.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create urgent schedule: %w", err)
	}
	s.rec.ScheduleCreated(source)
	s.log.Infow("urgent_schedule_created", "device_id", deviceID, "schedule_id", w.ID,
		"start", w.StartTime, "end", w.EndTime, "source", source)
	return &w, nil
}

// CreateNormalSchedule goes through full conflict validation.
func (s *ScheduleService) CreateNormalSchedule(ctx context.Context, deviceID string, d time.Duration, source string) (*models.ScheduleWindow, error) {
	now := s.now().UTC().Truncate(time.Second)
	return s.Create(ctx, models.ScheduleWindow{
		DeviceID:  deviceID,
		StartTime: now,
		EndTime:   now.Add(d),
		IsActive:  true,
		Source:    source,
	})
}

// Create validates and stores a window. Active windows must not overlap any
// other active window of the same device.
func (s *ScheduleService) Create(ctx context.Context, w models.ScheduleWindow) (*models.ScheduleWindow, error) {
	if w.DeviceID == "" || !w.EndTime.After(w.StartTime) || w.RepeatDays < 0 || w.RepeatDays > models.MaxRepeatDays {
		return nil, ErrInvalidSchedule
	}
	dev, err := s.devices.Get(ctx, w.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, w.DeviceID)
	}

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now().UTC().Truncate(time.Second)
	}
	if w.Source == "" {
		w.Source = models.SourceOperator
	}
	w.StartTime = w.StartTime.UTC()
	w.EndTime = w.EndTime.UTC()

	if w.IsActive {
		if err := s.checkConflicts(ctx, w); err != nil {
			return nil, err
		}
	}
	if err := s.schedules.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	s.rec.ScheduleCreated(w.Source)
	s.log.Infow("schedule_created", "device_id", w.DeviceID, "schedule_id", w.ID,
		"start", w.StartTime, "end", w.EndTime, "repeat_days", w.RepeatDays, "source", w.Source)
	return &w, nil
}

func (s *ScheduleService) checkConflicts(ctx context.Context, w models.ScheduleWindow) error {
	active, err := s.schedules.ListActiveByDevice(ctx, w.DeviceID)
	if err != nil {
		return fmt.Errorf("list active schedules: %w", err)
	}
	now := s.now().UTC()
	if ended(w, now) {
		return nil
	}
	for _, other := range active {
		// ended one-shots stay active until the executor's next tick
		if other.ID == w.ID || ended(other, now) {
			continue
		}
		if windowsConflict(w, other, s.loc) {
			s.rec.ScheduleConflict()
			return fmt.Errorf("%w: %s", ErrScheduleConflict, other.ID)
		}
	}
	return nil
}

// SetActive toggles a window. Activation is validated like creation.
func (s *ScheduleService) SetActive(ctx context.Context, id string, active bool) error {
	w, err := s.schedules.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get schedule: %w", err)
	}
	if w == nil {
		return ErrScheduleNotFound
	}
	if active && !w.IsActive {
		if err := s.checkConflicts(ctx, *w); err != nil {
			return err
		}
	}
	if err := s.schedules.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.log.Infow("schedule_toggled", "schedule_id", id, "device_id", w.DeviceID, "is_active", active)
	return nil
}

// ListSchedules lists every window of a device, or all active windows when deviceID is empty.
func (s *ScheduleService) ListSchedules(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error) {
	if deviceID == "" {
		return s.schedules.ListActive(ctx)
	}
	return s.schedules.ListByDevice(ctx, deviceID)
}

func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("schedule_deleted", "schedule_id", id)
	return nil
}
