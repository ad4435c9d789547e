package models

import "time"

// Schedule sources.
const (
	SourceAI       = "AI"
	SourceFallback = "FALLBACK"
	SourceOperator = "OPERATOR"
)

// MaxRepeatDays is the bitmask with all seven weekdays set (Sunday = bit 0).
const MaxRepeatDays = 127

// ScheduleWindow is a time-bounded activation record for one actuator.
type ScheduleWindow struct {
	ID         string    `json:"schedule_id"`
	DeviceID   string    `json:"device_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	RepeatDays int       `json:"repeat_days"` // 0 = one-shot
	IsActive   bool      `json:"is_active"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Contains reports whether t falls inside the absolute window [start, end).
func (w ScheduleWindow) Contains(t time.Time) bool {
	return !t.Before(w.StartTime) && t.Before(w.EndTime)
}

// Overlaps reports whether the absolute windows of w and o intersect.
func (w ScheduleWindow) Overlaps(o ScheduleWindow) bool {
	return w.StartTime.Before(o.EndTime) && o.StartTime.Before(w.EndTime)
}
