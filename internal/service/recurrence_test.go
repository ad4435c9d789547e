package service

import (
	"testing"
	"time"

	"greenhouse_control/internal/models"
)

func window(start, end time.Time, repeat int) models.ScheduleWindow {
	return models.ScheduleWindow{StartTime: start, EndTime: end, RepeatDays: repeat, IsActive: true}
}

func Test_windowsConflict(t *testing.T) {
	mon := func(h, m int) time.Time { return time.Date(2025, time.June, 2, h, m, 0, 0, time.UTC) }
	tue := func(h, m int) time.Time { return time.Date(2025, time.June, 3, h, m, 0, 0, time.UTC) }
	const (
		sunday  = 1 << 0
		monday  = 1 << 1
		tuesday = 1 << 2
		daily   = models.MaxRepeatDays
	)

	tests := []struct {
		name string
		a, b models.ScheduleWindow
		want bool
	}{
		{name: "one-shot overlap", a: window(mon(8, 0), mon(9, 0), 0), b: window(mon(8, 30), mon(9, 30), 0), want: true},
		{name: "one-shot touching", a: window(mon(8, 0), mon(9, 0), 0), b: window(mon(9, 0), mon(10, 0), 0), want: false},
		{name: "one-shot a week apart", a: window(mon(8, 0), mon(9, 0), 0), b: window(mon(8, 0).AddDate(0, 0, 7), mon(9, 0).AddDate(0, 0, 7), 0), want: false},
		{name: "daily vs one-shot next month", a: window(mon(8, 0), mon(9, 0), daily), b: window(mon(8, 30).AddDate(0, 1, 0), mon(8, 45).AddDate(0, 1, 0), 0), want: true},
		{name: "same days disjoint hours", a: window(mon(6, 0), mon(7, 0), monday), b: window(mon(7, 0), mon(8, 0), monday), want: false},
		{name: "same hours disjoint days", a: window(mon(6, 0), mon(7, 0), monday), b: window(mon(6, 0), mon(7, 0), tuesday|sunday), want: false},
		{name: "overnight spills into next day", a: window(mon(23, 0), mon(23, 0).Add(2*time.Hour), monday), b: window(mon(0, 30), mon(1, 0), tuesday), want: true},
		{name: "one-shot over before weekly window first runs", a: window(tue(10, 0), tue(10, 30), 0), b: window(tue(10, 0).AddDate(0, 0, 7), tue(10, 30).AddDate(0, 0, 7), tuesday), want: false},
		{name: "one-shot ends as weekly window first starts", a: window(tue(9, 30), tue(10, 0), 0), b: window(tue(10, 0), tue(10, 30), tuesday|monday), want: false},
		{name: "one-shot on a later run of weekly window", a: window(tue(10, 0).AddDate(0, 0, 14), tue(10, 30).AddDate(0, 0, 14), 0), b: window(tue(10, 0).AddDate(0, 0, 7), tue(10, 30).AddDate(0, 0, 7), tuesday), want: true},
		{name: "saturday overnight wraps to sunday", a: window(mon(23, 0), mon(23, 0).Add(2*time.Hour), 1<<6), b: window(mon(0, 0), mon(0, 30), sunday), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := windowsConflict(tt.a, tt.b, time.UTC); got != tt.want {
				t.Fatalf("windowsConflict(a, b) = %v; want %v", got, tt.want)
			}
			if got := windowsConflict(tt.b, tt.a, time.UTC); got != tt.want {
				t.Fatalf("windowsConflict(b, a) = %v; want %v", got, tt.want)
			}
		})
	}
}

func Test_runningAt(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	// 06:00-06:30 ICT on Mondays and Thursdays, first occurrence Monday 2025-06-02
	rep := window(time.Date(2025, time.June, 2, 6, 0, 0, 0, ict), time.Date(2025, time.June, 2, 6, 30, 0, 0, ict), 1<<1|1<<4)

	tests := []struct {
		name string
		w    models.ScheduleWindow
		now  time.Time
		want bool
	}{
		{name: "first occurrence", w: rep, now: time.Date(2025, time.June, 2, 6, 10, 0, 0, ict), want: true},
		{name: "thursday occurrence", w: rep, now: time.Date(2025, time.June, 5, 6, 29, 59, 0, ict), want: true},
		{name: "end is exclusive", w: rep, now: time.Date(2025, time.June, 5, 6, 30, 0, 0, ict), want: false},
		{name: "wrong weekday", w: rep, now: time.Date(2025, time.June, 4, 6, 10, 0, 0, ict), want: false},
		{name: "before first start", w: rep, now: time.Date(2025, time.May, 29, 6, 10, 0, 0, ict), want: false},
		{name: "same instant in UTC", w: rep, now: time.Date(2025, time.June, 9, 23, 15, 0, 0, time.UTC).AddDate(0, 0, -1), want: true},
		{name: "one-shot inside", w: window(time.Date(2025, time.June, 2, 6, 0, 0, 0, time.UTC), time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC), 0),
			now: time.Date(2025, time.June, 2, 6, 59, 0, 0, time.UTC), want: true},
		{name: "inactive never runs", w: models.ScheduleWindow{StartTime: time.Date(2025, time.June, 2, 6, 0, 0, 0, time.UTC),
			EndTime: time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC)}, now: time.Date(2025, time.June, 2, 6, 30, 0, 0, time.UTC), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runningAt(tt.w, tt.now, ict); got != tt.want {
				t.Fatalf("runningAt = %v; want %v", got, tt.want)
			}
		})
	}
}

func Test_ended(t *testing.T) {
	now := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	if !ended(window(now.Add(-time.Hour), now, 0), now) {
		t.Fatalf("one-shot ending at now is over")
	}
	if ended(window(now.Add(-time.Hour), now.Add(time.Second), 0), now) {
		t.Fatalf("one-shot still running")
	}
	if ended(window(now.Add(-48*time.Hour), now.Add(-47*time.Hour), 1), now) {
		t.Fatalf("repeating windows never end")
	}
}
