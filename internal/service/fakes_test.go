package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/feed"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

// fakeEventRepo is a minimal stub that satisfies the repository.EventRepo interface.
type fakeEventRepo struct {
	mu sync.Mutex

	// captured inputs
	gotCtx      context.Context
	gotFrom     time.Time
	gotTo       time.Time
	gotSeverity string
	appended    []models.LogEvent

	// configured outputs
	events    []models.LogEvent
	err       error
	appendErr error

	calls int
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, severity string) ([]models.LogEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCtx = ctx
	f.gotFrom = from
	f.gotTo = to
	f.gotSeverity = severity
	return f.events, f.err
}

func (f *fakeEventRepo) Append(_ context.Context, e models.LogEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
	err     error
}

func (f *fakeNotificationRepo) Create(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, n)
	return f.err
}

// fakeSink records events in memory.
type fakeSink struct {
	mu     sync.Mutex
	events []models.LogEvent
	notes  []string
}

func (f *fakeSink) Publish(_ context.Context, e models.LogEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeSink) Notify(_ context.Context, _ models.Severity, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, message)
}

func (f *fakeSink) count(sev models.Severity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

func (f *fakeSink) notifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

type statusCall struct {
	id     string
	status models.DeviceStatus
}

// fakeDeviceRepo is an in-memory device catalog.
type fakeDeviceRepo struct {
	mu          sync.Mutex
	devices     map[string]models.Device
	statusCalls []statusCall
	err         error
}

func newFakeDeviceRepo(devs ...models.Device) *fakeDeviceRepo {
	r := &fakeDeviceRepo{devices: make(map[string]models.Device)}
	for _, d := range devs {
		r.devices[d.ID] = d
	}
	return r
}

func (r *fakeDeviceRepo) sorted() []models.Device {
	out := make([]models.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeDeviceRepo) Get(_ context.Context, id string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.devices[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *fakeDeviceRepo) List(_ context.Context) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(), r.err
}

func (r *fakeDeviceRepo) ListByStatus(_ context.Context, status models.DeviceStatus, types ...models.DeviceType) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Device
	for _, d := range r.sorted() {
		if d.Status != status {
			continue
		}
		for _, t := range types {
			if d.Type == t {
				out = append(out, d)
				break
			}
		}
	}
	return out, r.err
}

func (r *fakeDeviceRepo) FindFirstByType(_ context.Context, locationID string, typ models.DeviceType) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.sorted() {
		if d.LocationID == locationID && d.Type == typ {
			return &d, nil
		}
	}
	return nil, r.err
}

func (r *fakeDeviceRepo) SetStatus(_ context.Context, id string, status models.DeviceStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	r.statusCalls = append(r.statusCalls, statusCall{id: id, status: status})
	d, ok := r.devices[id]
	if !ok || d.Status == status {
		return false, nil
	}
	d.Status = status
	r.devices[id] = d
	return true, nil
}

func (r *fakeDeviceRepo) status(id string) models.DeviceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[id].Status
}

func (r *fakeDeviceRepo) setStatusCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statusCalls)
}

type fakeThresholdRepo struct {
	rows []models.ThresholdRow
	err  error
}

func (f *fakeThresholdRepo) ListByLocation(_ context.Context, locationID string) ([]models.ThresholdRow, error) {
	var out []models.ThresholdRow
	for _, r := range f.rows {
		if r.LocationID == locationID {
			out = append(out, r)
		}
	}
	return out, f.err
}

// memScheduleRepo mirrors the SQL repository semantics in memory.
type memScheduleRepo struct {
	mu      sync.Mutex
	windows map[string]models.ScheduleWindow
	creates int
	err     error
}

func newMemScheduleRepo(ws ...models.ScheduleWindow) *memScheduleRepo {
	r := &memScheduleRepo{windows: make(map[string]models.ScheduleWindow)}
	for _, w := range ws {
		r.windows[w.ID] = w
	}
	return r
}

func (r *memScheduleRepo) filter(keep func(models.ScheduleWindow) bool) []models.ScheduleWindow {
	var out []models.ScheduleWindow
	for _, w := range r.windows {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *memScheduleRepo) Create(_ context.Context, w models.ScheduleWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.creates++
	r.windows[w.ID] = w
	return nil
}

func (r *memScheduleRepo) Get(_ context.Context, id string) (*models.ScheduleWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *memScheduleRepo) FindRunning(_ context.Context, deviceID string, now time.Time) (*models.ScheduleWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hits := r.filter(func(w models.ScheduleWindow) bool {
		return w.DeviceID == deviceID && w.IsActive && w.Contains(now)
	})
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

func (r *memScheduleRepo) ListActiveByDevice(_ context.Context, deviceID string) ([]models.ScheduleWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(w models.ScheduleWindow) bool { return w.DeviceID == deviceID && w.IsActive }), nil
}

func (r *memScheduleRepo) ListActive(_ context.Context) ([]models.ScheduleWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(w models.ScheduleWindow) bool { return w.IsActive }), nil
}

func (r *memScheduleRepo) ListByDevice(_ context.Context, deviceID string) ([]models.ScheduleWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(w models.ScheduleWindow) bool { return w.DeviceID == deviceID }), nil
}

func (r *memScheduleRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	if !ok {
		return repository.ErrScheduleNotFound
	}
	w.IsActive = active
	r.windows[id] = w
	return nil
}

func (r *memScheduleRepo) DeactivateMany(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if w, ok := r.windows[id]; ok {
			w.IsActive = false
			r.windows[id] = w
		}
	}
	return nil
}

func (r *memScheduleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.windows[id]; !ok {
		return repository.ErrScheduleNotFound
	}
	delete(r.windows, id)
	return nil
}

func (r *memScheduleRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *memScheduleRepo) bySource(source string) []models.ScheduleWindow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(w models.ScheduleWindow) bool { return w.Source == source })
}

type fakeSampleRepo struct {
	mu       sync.Mutex
	moisture []models.MoistureRecord
	climate  []models.ClimateRecord
	err      error
}

func (f *fakeSampleRepo) CreateMoisture(_ context.Context, r models.MoistureRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.moisture = append(f.moisture, r)
	return true, nil
}

func (f *fakeSampleRepo) CreateClimate(_ context.Context, r models.ClimateRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.climate = append(f.climate, r)
	return true, nil
}

type published struct {
	key, value string
}

// fakeFeed serves a fixed sample per key and records publishes.
type fakeFeed struct {
	mu         sync.Mutex
	samples    map[string]*feed.Sample
	latestErr  error
	publishErr error
	fetches    int
	published  []published
}

func (f *fakeFeed) Latest(_ context.Context, key string) (*feed.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	s, ok := f.samples[key]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeFeed) Publish(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{key: key, value: value})
	return nil
}

func (f *fakeFeed) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// fakeDecisionClient returns a canned outcome or error.
type fakeDecisionClient struct {
	mu       sync.Mutex
	outcome  models.DecisionOutcome
	err      error
	requests []models.DecisionRequest
}

func (f *fakeDecisionClient) Decide(_ context.Context, req models.DecisionRequest) (models.DecisionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.outcome, f.err
}

func (f *fakeDecisionClient) Health(context.Context) (aiclient.Health, error) {
	return aiclient.Health{Status: "ok"}, nil
}

func (f *fakeDecisionClient) Status() aiclient.Status {
	return aiclient.Status{State: "closed"}
}

func (f *fakeDecisionClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fixedClock returns a settable now function.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func fptr(v float64) *float64 { return &v }

func tptr(t time.Time) *time.Time { return &t }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
