package service

import (
	"time"

	"greenhouse_control/internal/models"
)

const (
	secondsPerDay  = 24 * 60 * 60
	secondsPerWeek = 7 * secondsPerDay
)

// weekSpan is a half-open interval on the weekly circle, in seconds from Sunday 00:00.
type weekSpan struct {
	start, length int
}

func (a weekSpan) overlaps(b weekSpan) bool {
	if a.length <= 0 || b.length <= 0 {
		return false
	}
	for _, shift := range [...]int{-secondsPerWeek, 0, secondsPerWeek} {
		bs := b.start + shift
		if a.start < bs+b.length && bs < a.start+a.length {
			return true
		}
	}
	return false
}

func (a weekSpan) contains(sec int) bool {
	if a.length <= 0 {
		return false
	}
	off := ((sec-a.start)%secondsPerWeek + secondsPerWeek) % secondsPerWeek
	return off < a.length
}

func weekSecond(t time.Time) int {
	return int(t.Weekday())*secondsPerDay + t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// weekSpans projects a window onto the weekly circle in loc. A repeating
// window yields one span per enabled weekday, each at most a day long.
func weekSpans(w models.ScheduleWindow, loc *time.Location) []weekSpan {
	start := w.StartTime.In(loc)
	length := int(w.EndTime.Sub(w.StartTime) / time.Second)

	if w.RepeatDays == 0 {
		if length > secondsPerWeek {
			length = secondsPerWeek
		}
		return []weekSpan{{start: weekSecond(start), length: length}}
	}

	if length > secondsPerDay {
		length = secondsPerDay
	}
	tod := start.Hour()*3600 + start.Minute()*60 + start.Second()
	spans := make([]weekSpan, 0, 7)
	for d := 0; d < 7; d++ {
		if w.RepeatDays&(1<<d) != 0 {
			spans = append(spans, weekSpan{start: d*secondsPerDay + tod, length: length})
		}
	}
	return spans
}

// windowsConflict reports whether two windows of the same device can be
// running at the same instant. One-shot pairs compare absolute times; as soon
// as one side repeats, both are compared on the weekly circle, unless the
// one-shot is over before the repeating window first starts.
func windowsConflict(a, b models.ScheduleWindow, loc *time.Location) bool {
	switch {
	case a.RepeatDays == 0 && b.RepeatDays == 0:
		return a.Overlaps(b)
	case a.RepeatDays == 0 && !a.EndTime.After(b.StartTime):
		return false
	case b.RepeatDays == 0 && !b.EndTime.After(a.StartTime):
		return false
	}
	for _, sa := range weekSpans(a, loc) {
		for _, sb := range weekSpans(b, loc) {
			if sa.overlaps(sb) {
				return true
			}
		}
	}
	return false
}

// runningAt reports whether w drives its actuator at now.
func runningAt(w models.ScheduleWindow, now time.Time, loc *time.Location) bool {
	if !w.IsActive {
		return false
	}
	if w.RepeatDays == 0 {
		return w.Contains(now)
	}
	// a repeating window starts recurring from its first start time
	if now.Before(w.StartTime) {
		return false
	}
	sec := weekSecond(now.In(loc))
	for _, s := range weekSpans(w, loc) {
		if s.contains(sec) {
			return true
		}
	}
	return false
}

// ended reports whether a one-shot window is over at now.
func ended(w models.ScheduleWindow, now time.Time) bool {
	return w.RepeatDays == 0 && !now.Before(w.EndTime)
}
