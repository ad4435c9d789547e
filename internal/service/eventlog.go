package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

// EventSink is the audit trail of the control loop. Publishing never fails
// the caller; sink errors are logged and dropped.
type EventSink interface {
	Publish(ctx context.Context, e models.LogEvent)
	Notify(ctx context.Context, severity models.Severity, message string)
}

type EventLogService struct {
	eventRepo        repository.EventRepo
	notificationRepo repository.NotificationRepo
	users            repository.Authorization
	log              *logger.Logger
	now              func() time.Time
}

func NewEventLogService(eventRepo repository.EventRepo, notificationRepo repository.NotificationRepo,
	users repository.Authorization, log *logger.Logger) *EventLogService {
	return &EventLogService{
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		users:            users,
		log:              logger.OrNop(log),
		now:              time.Now,
	}
}

var _ EventSink = (*EventLogService)(nil)

// ErrInvalidTimeRange is returned by List when From is after To.
var ErrInvalidTimeRange = errors.New("invalid time range: from is after to")

// normalized returns the filter with bounds in UTC and severity upper-cased.
func (f LogFilter) normalized() (LogFilter, error) {
	if !f.From.IsZero() {
		f.From = f.From.UTC()
	}
	if !f.To.IsZero() {
		f.To = f.To.UTC()
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, ErrInvalidTimeRange
	}
	f.Severity = strings.ToUpper(strings.TrimSpace(f.Severity))
	return f, nil
}

// List returns the event history matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.LogEvent, error) {
	f, err := f.normalized()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, f.From, f.To, f.Severity)
}

// Publish persists a log event.
func (s *EventLogService) Publish(ctx context.Context, e models.LogEvent) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now().UTC()
	}
	if err := s.eventRepo.Append(ctx, e); err != nil {
		s.log.Warnw("event_publish_failed", "err", err, "severity", e.Severity, "description", e.Description)
	}
}

// Notify stores a notification addressed to every admin.
func (s *EventLogService) Notify(ctx context.Context, severity models.Severity, message string) {
	recipients, err := s.users.ListIDsByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.log.Warnw("notification_recipients_failed", "err", err)
	}
	n := models.Notification{
		CreatedAt:  s.now().UTC(),
		Severity:   severity,
		Message:    message,
		Recipients: recipients,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.log.Warnw("notification_create_failed", "err", err, "message", message)
	}
}
