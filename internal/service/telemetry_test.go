package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"greenhouse_control/internal/feed"
	"greenhouse_control/internal/models"
)

var (
	moistureDev = models.Device{ID: "moist-1", Name: "Bed 1 moisture", Type: models.DeviceMoistureSensor,
		Status: models.StatusActive, LocationID: "loc-1", FeedKey: "bed1-moisture"}
	dhtDev = models.Device{ID: "dht-1", Name: "Bed 1 climate", Type: models.DeviceDHT20Sensor,
		Status: models.StatusActive, LocationID: "loc-1", FeedKey: "bed1-dht"}
)

type telemetryFixture struct {
	svc     *TelemetryService
	devices *fakeDeviceRepo
	samples *fakeSampleRepo
	sink    *fakeSink
	feed    *fakeFeed
	store   *SensorStateStore

	mu        sync.Mutex
	triggered []string
}

func newTelemetryFixture(t *testing.T, devs ...models.Device) *telemetryFixture {
	t.Helper()
	f := &telemetryFixture{
		devices: newFakeDeviceRepo(devs...),
		samples: &fakeSampleRepo{},
		sink:    &fakeSink{},
		feed:    &fakeFeed{samples: map[string]*feed.Sample{}},
		store:   NewSensorStateStore(),
	}
	f.svc = NewTelemetryService(f.feed, f.devices, f.samples, f.store, f.sink, nil, nil, time.Hour)
	f.svc.OnAccepted(func(_ context.Context, loc string) {
		f.mu.Lock()
		f.triggered = append(f.triggered, loc)
		f.mu.Unlock()
	})
	t.Cleanup(f.svc.Close)
	return f
}

func (f *telemetryFixture) bufferCount() int {
	f.svc.mu.Lock()
	defer f.svc.mu.Unlock()
	return len(f.svc.buffers)
}

func TestIngest_MoistureAccepted(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	ch := models.Channels(moistureDev)[0]
	ts := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

	got := f.svc.Ingest(context.Background(), moistureDev, ch, ts, 42.5)
	if got != IngestAccepted {
		t.Fatalf("expected accepted, got %s", got)
	}
	if len(f.samples.moisture) != 1 || f.samples.moisture[0].SoilMoisture != 42.5 {
		t.Fatalf("unexpected moisture records: %+v", f.samples.moisture)
	}
	st, ok := f.store.LatestState("loc-1")
	if !ok || st.SoilMoisture == nil || *st.SoilMoisture != 42.5 || !st.LastUpdate.Equal(ts) {
		t.Fatalf("sensor state not updated: %+v", st)
	}
	if len(f.triggered) != 1 || f.triggered[0] != "loc-1" {
		t.Fatalf("expected one trigger for loc-1, got %v", f.triggered)
	}
}

func TestIngest_DisablesAfterFiveDuplicates(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	ch := models.Channels(moistureDev)[0]
	ts := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if got := f.svc.Ingest(ctx, moistureDev, ch, ts, 40); got != IngestAccepted {
		t.Fatalf("first sample: expected accepted, got %s", got)
	}
	for i := 1; i < DuplicateThreshold; i++ {
		if got := f.svc.Ingest(ctx, moistureDev, ch, ts, 40); got != IngestDuplicate {
			t.Fatalf("duplicate %d: expected duplicate, got %s", i, got)
		}
	}
	if got := f.svc.Ingest(ctx, moistureDev, ch, ts, 40); got != IngestDisabled {
		t.Fatalf("expected disabled on duplicate %d, got %s", DuplicateThreshold, got)
	}
	if got := f.svc.Ingest(ctx, moistureDev, ch, ts.Add(time.Minute), 40); got != IngestIgnored {
		t.Fatalf("expected ignored after disable, got %s", got)
	}

	if s := f.devices.status(moistureDev.ID); s != models.StatusInactive {
		t.Fatalf("expected device INACTIVE, got %s", s)
	}
	if n := f.sink.count(models.SeverityWarning); n != 1 {
		t.Fatalf("expected exactly 1 warning event, got %d", n)
	}
	if n := f.sink.notifications(); n != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", n)
	}
	if len(f.samples.moisture) != 1 {
		t.Fatalf("duplicates must not be persisted, got %d records", len(f.samples.moisture))
	}
	if f.bufferCount() != 0 {
		t.Fatalf("buffer state should be dropped on disable")
	}
}

func TestIngest_NewTimestampResetsDuplicateCount(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	ch := models.Channels(moistureDev)[0]
	t1 := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(30 * time.Second)
	ctx := context.Background()

	f.svc.Ingest(ctx, moistureDev, ch, t1, 40)
	for i := 1; i < DuplicateThreshold; i++ {
		f.svc.Ingest(ctx, moistureDev, ch, t1, 40)
	}
	if got := f.svc.Ingest(ctx, moistureDev, ch, t2, 41); got != IngestAccepted {
		t.Fatalf("expected accepted for new timestamp, got %s", got)
	}
	for i := 1; i < DuplicateThreshold; i++ {
		if got := f.svc.Ingest(ctx, moistureDev, ch, t2, 41); got != IngestDuplicate {
			t.Fatalf("expected duplicate after reset, got %s", got)
		}
	}
	if f.devices.setStatusCalls() != 0 {
		t.Fatalf("device must not be disabled")
	}
}

func TestIngest_DHT20PairsEqualTimestamps(t *testing.T) {
	f := newTelemetryFixture(t, dhtDev)
	chans := models.Channels(dhtDev)
	var temp, hum models.Channel
	for _, c := range chans {
		switch c.Quantity {
		case models.QuantityTemperature:
			temp = c
		case models.QuantityHumidity:
			hum = c
		}
	}
	ctx := context.Background()
	t1 := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

	f.svc.Ingest(ctx, dhtDev, temp, t1, 31)
	if len(f.samples.climate) != 0 {
		t.Fatalf("climate record written before humidity arrived")
	}
	f.svc.Ingest(ctx, dhtDev, hum, t1, 70)
	if len(f.samples.climate) != 1 {
		t.Fatalf("expected 1 climate record, got %d", len(f.samples.climate))
	}
	rec := f.samples.climate[0]
	if rec.Temperature != 31 || rec.Humidity != 70 || !rec.Timestamp.Equal(t1) {
		t.Fatalf("unexpected climate record: %+v", rec)
	}

	// mismatched timestamps do not pair
	f.svc.Ingest(ctx, dhtDev, temp, t1.Add(time.Minute), 32)
	f.svc.Ingest(ctx, dhtDev, hum, t1.Add(2*time.Minute), 71)
	if len(f.samples.climate) != 1 {
		t.Fatalf("expected still 1 climate record, got %d", len(f.samples.climate))
	}

	st, _ := f.store.LatestState("loc-1")
	if st.Temperature == nil || *st.Temperature != 32 || st.Humidity == nil || *st.Humidity != 71 {
		t.Fatalf("sensor state should track every accepted value: %+v", st)
	}
}

func TestIngest_PersistFailureStillUpdatesState(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	f.samples.err = errors.New("db locked")
	ch := models.Channels(moistureDev)[0]

	got := f.svc.Ingest(context.Background(), moistureDev, ch, time.Now(), 12)
	if got != IngestAccepted {
		t.Fatalf("expected accepted, got %s", got)
	}
	if _, ok := f.store.LatestState("loc-1"); !ok {
		t.Fatalf("state should be updated")
	}
}

func TestIngest_IdleBufferIsCleanedUp(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	f.svc.cleanupAfter = 20 * time.Millisecond
	ch := models.Channels(moistureDev)[0]

	f.svc.Ingest(context.Background(), moistureDev, ch, time.Now(), 12)
	if f.bufferCount() != 1 {
		t.Fatalf("expected buffer state after ingest")
	}
	waitFor(t, "buffer cleanup", func() bool { return f.bufferCount() == 0 })
}

func TestDisableDevice_StopsPollingAndIsIdempotent(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	ch := models.Channels(moistureDev)[0]
	ctx := context.Background()

	f.svc.StartPolling(moistureDev, ch, time.Hour)
	f.svc.StartPolling(moistureDev, ch, time.Hour)
	if got := f.svc.Polled(); len(got) != 1 || got[0].Key != ch.Key {
		t.Fatalf("expected one polled channel, got %+v", got)
	}

	if err := f.svc.DisableDevice(ctx, moistureDev.ID); err != nil {
		t.Fatalf("DisableDevice: %v", err)
	}
	if err := f.svc.DisableDevice(ctx, moistureDev.ID); err != nil {
		t.Fatalf("DisableDevice (again): %v", err)
	}
	if got := f.svc.Polled(); len(got) != 0 {
		t.Fatalf("expected no polled channels, got %+v", got)
	}
	if n := f.sink.count(models.SeverityWarning); n != 1 {
		t.Fatalf("expected one warning event, got %d", n)
	}
}

func TestPolling_StalledFeedDisablesDeviceOnce(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	ch := models.Channels(moistureDev)[0]
	f.feed.samples[ch.Key] = &feed.Sample{ID: "a", Value: "33.1", CreatedAt: time.Now().UTC(), FeedKey: ch.Key}

	f.svc.StartPolling(moistureDev, ch, 5*time.Millisecond)

	waitFor(t, "device disabled", func() bool { return f.devices.status(moistureDev.ID) == models.StatusInactive })
	waitFor(t, "poller stopped", func() bool { return len(f.svc.Polled()) == 0 })

	fetches := f.feed.fetchCount()
	time.Sleep(30 * time.Millisecond)
	if f.feed.fetchCount() > fetches+1 {
		t.Fatalf("feed still polled after disable: %d -> %d", fetches, f.feed.fetchCount())
	}
	if n := f.sink.count(models.SeverityWarning); n != 1 {
		t.Fatalf("expected exactly 1 warning event, got %d", n)
	}
}

func TestPolling_FetchErrorsDoNotCountAsDuplicates(t *testing.T) {
	f := newTelemetryFixture(t, moistureDev)
	ch := models.Channels(moistureDev)[0]
	f.feed.latestErr = errors.New("connection reset")

	f.svc.StartPolling(moistureDev, ch, 5*time.Millisecond)
	waitFor(t, "several fetches", func() bool { return f.feed.fetchCount() >= DuplicateThreshold+2 })

	if f.devices.setStatusCalls() != 0 {
		t.Fatalf("fetch errors must not disable the device")
	}
	if f.bufferCount() != 0 {
		t.Fatalf("fetch errors must not create buffer state")
	}
}

func TestRefreshPolling(t *testing.T) {
	inactive := models.Device{ID: "moist-2", Type: models.DeviceMoistureSensor, Status: models.StatusInactive,
		LocationID: "loc-2", FeedKey: "bed2-moisture"}
	pump := models.Device{ID: "pump-1", Type: models.DevicePump, Status: models.StatusActive, LocationID: "loc-1", FeedKey: "bed1-pump"}
	f := newTelemetryFixture(t, moistureDev, dhtDev, inactive, pump)

	f.svc.StartPolling(inactive, models.Channels(inactive)[0], time.Hour)

	sum, err := f.svc.RefreshPolling(context.Background())
	if err != nil {
		t.Fatalf("RefreshPolling: %v", err)
	}
	if len(sum.Stopped) != 1 || sum.Stopped[0] != "bed2-moisture" {
		t.Fatalf("unexpected stopped: %v", sum.Stopped)
	}
	if len(sum.Started) != 3 {
		t.Fatalf("expected 3 started channels (moisture + 2 dht), got %v", sum.Started)
	}

	again, err := f.svc.RefreshPolling(context.Background())
	if err != nil {
		t.Fatalf("RefreshPolling (again): %v", err)
	}
	if len(again.Started) != 0 || len(again.Stopped) != 0 {
		t.Fatalf("second refresh should be a no-op, got %+v", again)
	}

	polled := f.svc.Polled()
	for i := 1; i < len(polled); i++ {
		if polled[i-1].Key > polled[i].Key {
			t.Fatalf("Polled not sorted: %+v", polled)
		}
	}
}
