package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

const (
	// DuplicateThreshold is the number of repeated timestamps after which a sensor is disabled.
	DuplicateThreshold   = 5
	DefaultPollInterval  = 10 * time.Second
	DefaultBufferCleanup = 5 * time.Minute
)

// channelState tracks dedupe for one feed channel of a device.
type channelState struct {
	lastTimestamp  time.Time
	duplicateCount int
}

type pendingReading struct {
	ts    time.Time
	value float64
}

// deviceBuffer is the per-device dedupe state plus the DHT20 pairing slots.
type deviceBuffer struct {
	channels map[string]*channelState
	pending  map[models.Quantity]pendingReading
	cleanup  *time.Timer
}

type poller struct {
	device   models.Device
	channel  models.Channel
	interval time.Duration
	cancel   context.CancelFunc
}

type TelemetryService struct {
	feed    FeedClient
	devices repository.DeviceRepo
	samples repository.SampleRepo
	store   *SensorStateStore
	sink    EventSink
	rec     Recorder
	log     *logger.Logger
	mirror  SampleMirror

	interval     time.Duration
	cleanupAfter time.Duration
	threshold    int
	onAccepted   func(ctx context.Context, locationID string)
	root         context.Context
	cancelRoot   context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	buffers      map[string]*deviceBuffer
	pollers      map[string]*poller
	disabled     map[string]struct{}
}

func NewTelemetryService(feed FeedClient, devices repository.DeviceRepo, samples repository.SampleRepo,
	store *SensorStateStore, sink EventSink, rec Recorder, log *logger.Logger, interval time.Duration) *TelemetryService {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	root, cancel := context.WithCancel(context.Background())
	return &TelemetryService{
		feed:         feed,
		devices:      devices,
		samples:      samples,
		store:        store,
		sink:         sink,
		rec:          orNopRecorder(rec),
		log:          logger.OrNop(log),
		interval:     interval,
		cleanupAfter: DefaultBufferCleanup,
		threshold:    DuplicateThreshold,
		root:         root,
		cancelRoot:   cancel,
		buffers:      make(map[string]*deviceBuffer),
		pollers:      make(map[string]*poller),
		disabled:     make(map[string]struct{}),
	}
}

// SetMirror adds a secondary sink for accepted records.
func (s *TelemetryService) SetMirror(m SampleMirror) { s.mirror = m }

// OnAccepted registers fn to run after each accepted sample with the device's location.
func (s *TelemetryService) OnAccepted(fn func(ctx context.Context, locationID string)) {
	s.onAccepted = fn
}

// StartPolling starts one poller per channel key; repeated calls are no-ops.
func (s *TelemetryService) StartPolling(device models.Device, ch models.Channel, interval time.Duration) {
	if interval <= 0 {
		interval = s.interval
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pollers[ch.Key]; ok {
		return
	}
	if s.root.Err() != nil {
		return
	}
	delete(s.disabled, device.ID)

	ctx, cancel := context.WithCancel(s.root)
	p := &poller{device: device, channel: ch, interval: interval, cancel: cancel}
	s.pollers[ch.Key] = p

	s.wg.Add(1)
	go s.poll(ctx, p)
	s.log.Infow("polling_started", "device_id", device.ID, "channel", ch.Key, "interval", interval.String())
}

// StopPolling cancels the poller of one channel.
func (s *TelemetryService) StopPolling(channelKey string) {
	s.mu.Lock()
	p, ok := s.pollers[channelKey]
	if ok {
		p.cancel()
		delete(s.pollers, channelKey)
	}
	s.mu.Unlock()
	if ok {
		s.log.Infow("polling_stopped", "device_id", p.device.ID, "channel", channelKey)
	}
}

// RefreshPolling stops channels of inactive devices and starts the missing
// channels of active sensors.
func (s *TelemetryService) RefreshPolling(ctx context.Context) (PollingSummary, error) {
	var sum PollingSummary

	inactive, err := s.devices.ListByStatus(ctx, models.StatusInactive, models.DeviceMoistureSensor, models.DeviceDHT20Sensor)
	if err != nil {
		return sum, fmt.Errorf("list inactive sensors: %w", err)
	}
	for _, d := range inactive {
		for _, ch := range models.Channels(d) {
			if s.isPolled(ch.Key) {
				s.StopPolling(ch.Key)
				sum.Stopped = append(sum.Stopped, ch.Key)
			}
		}
	}

	active, err := s.devices.ListByStatus(ctx, models.StatusActive, models.DeviceMoistureSensor, models.DeviceDHT20Sensor)
	if err != nil {
		return sum, fmt.Errorf("list active sensors: %w", err)
	}
	for _, d := range active {
		for _, ch := range models.Channels(d) {
			if !s.isPolled(ch.Key) {
				s.StartPolling(d, ch, s.interval)
				sum.Started = append(sum.Started, ch.Key)
			}
		}
	}
	return sum, nil
}

// Polled lists the channels that currently have a poller, ordered by key.
func (s *TelemetryService) Polled() []models.Channel {
	s.mu.Lock()
	out := make([]models.Channel, 0, len(s.pollers))
	for _, p := range s.pollers {
		out = append(out, p.channel)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *TelemetryService) isPolled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pollers[key]
	return ok
}

// Close stops every poller and cleanup timer and waits for the pollers to exit.
func (s *TelemetryService) Close() {
	s.cancelRoot()
	s.mu.Lock()
	for key, p := range s.pollers {
		p.cancel()
		delete(s.pollers, key)
	}
	for id, b := range s.buffers {
		stopTimer(b)
		delete(s.buffers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *TelemetryService) poll(ctx context.Context, p *poller) {
	defer s.wg.Done()
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx, p)
		}
	}
}

func (s *TelemetryService) tick(ctx context.Context, p *poller) {
	sample, err := s.feed.Latest(ctx, p.channel.Key)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warnw("feed_fetch_failed", "channel", p.channel.Key, "err", err)
		}
		return
	}
	if sample == nil {
		return
	}
	value, err := sample.Float()
	if err != nil {
		s.log.Warnw("feed_value_invalid", "channel", p.channel.Key, "err", err)
		return
	}
	// the channel may have been stopped while the fetch was in flight
	s.mu.Lock()
	current := s.pollers[p.channel.Key] == p
	s.mu.Unlock()
	if !current {
		return
	}
	s.Ingest(ctx, p.device, p.channel, sample.CreatedAt, value)
}

// Ingest applies timestamp dedupe to one channel value and persists it when new.
func (s *TelemetryService) Ingest(ctx context.Context, device models.Device, ch models.Channel, ts time.Time, value float64) IngestResult {
	ts = ts.UTC()

	s.mu.Lock()
	if _, off := s.disabled[device.ID]; off {
		s.mu.Unlock()
		return IngestIgnored
	}
	buf := s.buffers[device.ID]
	if buf == nil {
		buf = &deviceBuffer{
			channels: make(map[string]*channelState),
			pending:  make(map[models.Quantity]pendingReading),
		}
		s.buffers[device.ID] = buf
	}
	cs := buf.channels[ch.Key]
	if cs != nil && cs.lastTimestamp.Equal(ts) {
		cs.duplicateCount++
		count := cs.duplicateCount
		if count >= s.threshold {
			stopTimer(buf)
			delete(s.buffers, device.ID)
			s.disabled[device.ID] = struct{}{}
			s.mu.Unlock()

			s.log.Warnw("device_stalled", "device_id", device.ID, "channel", ch.Key, "duplicates", count)
			if err := s.DisableDevice(ctx, device.ID); err != nil {
				s.log.Errorw("device_disable_failed", "device_id", device.ID, "err", err)
			}
			return IngestDisabled
		}
		s.mu.Unlock()
		s.rec.SampleDuplicate()
		s.log.Debugw("sample_duplicate", "device_id", device.ID, "channel", ch.Key, "timestamp", ts, "count", count)
		return IngestDuplicate
	}
	if cs == nil {
		cs = &channelState{}
		buf.channels[ch.Key] = cs
	}
	cs.lastTimestamp = ts
	cs.duplicateCount = 0
	s.armCleanup(device.ID, buf)

	var climate *models.ClimateRecord
	if device.Type == models.DeviceDHT20Sensor {
		buf.pending[ch.Quantity] = pendingReading{ts: ts, value: value}
		t, okT := buf.pending[models.QuantityTemperature]
		h, okH := buf.pending[models.QuantityHumidity]
		if okT && okH && t.ts.Equal(h.ts) {
			climate = &models.ClimateRecord{SensorID: device.ID, Timestamp: t.ts, Temperature: t.value, Humidity: h.value}
			delete(buf.pending, models.QuantityTemperature)
			delete(buf.pending, models.QuantityHumidity)
		}
	}
	s.mu.Unlock()

	switch {
	case device.Type == models.DeviceMoistureSensor:
		s.persistMoisture(ctx, models.MoistureRecord{SensorID: device.ID, Timestamp: ts, SoilMoisture: value})
	case climate != nil:
		s.persistClimate(ctx, *climate)
	}

	if s.store != nil {
		s.store.Update(device.LocationID, ch.Quantity, value, ts)
	}
	s.rec.SampleAccepted(ch.Quantity)
	if s.onAccepted != nil {
		s.onAccepted(ctx, device.LocationID)
	}
	return IngestAccepted
}

// armCleanup (re)starts the idle timer of a buffer. Caller holds s.mu.
func (s *TelemetryService) armCleanup(deviceID string, buf *deviceBuffer) {
	stopTimer(buf)
	buf.cleanup = time.AfterFunc(s.cleanupAfter, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.buffers[deviceID] == buf {
			delete(s.buffers, deviceID)
		}
	})
}

func stopTimer(buf *deviceBuffer) {
	if buf.cleanup != nil {
		buf.cleanup.Stop()
		buf.cleanup = nil
	}
}

func (s *TelemetryService) persistMoisture(ctx context.Context, rec models.MoistureRecord) {
	if _, err := s.samples.CreateMoisture(ctx, rec); err != nil {
		s.log.Errorw("sample_persist_failed", "device_id", rec.SensorID, "err", err)
		return
	}
	if s.mirror != nil {
		if err := s.mirror.WriteMoisture(ctx, rec); err != nil {
			s.log.Warnw("sample_mirror_failed", "device_id", rec.SensorID, "err", err)
		}
	}
}

func (s *TelemetryService) persistClimate(ctx context.Context, rec models.ClimateRecord) {
	if _, err := s.samples.CreateClimate(ctx, rec); err != nil {
		s.log.Errorw("sample_persist_failed", "device_id", rec.SensorID, "err", err)
		return
	}
	if s.mirror != nil {
		if err := s.mirror.WriteClimate(ctx, rec); err != nil {
			s.log.Warnw("sample_mirror_failed", "device_id", rec.SensorID, "err", err)
		}
	}
}

// DisableDevice marks the device inactive, stops its pollers and tells the
// admins. Disabling an already inactive device only stops the pollers.
func (s *TelemetryService) DisableDevice(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	var stopped []string
	for key, p := range s.pollers {
		if p.device.ID == deviceID {
			p.cancel()
			delete(s.pollers, key)
			stopped = append(stopped, key)
		}
	}
	if buf := s.buffers[deviceID]; buf != nil {
		stopTimer(buf)
		delete(s.buffers, deviceID)
	}
	s.disabled[deviceID] = struct{}{}
	s.mu.Unlock()

	// the caller may be the poller that was just cancelled
	ctx = context.WithoutCancel(ctx)
	changed, err := s.devices.SetStatus(ctx, deviceID, models.StatusInactive)
	if err != nil {
		return fmt.Errorf("disable device %q: %w", deviceID, err)
	}
	if !changed {
		s.log.Infow("device_already_inactive", "device_id", deviceID, "stopped_channels", stopped)
		return nil
	}

	s.rec.DeviceDisabled()
	msg := fmt.Sprintf("Device %s was disabled because it stopped reporting new data.", deviceID)
	s.log.Warnw("device_disabled", "device_id", deviceID, "stopped_channels", stopped)
	if s.sink != nil {
		s.sink.Publish(ctx, models.LogEvent{
			Severity:    models.SeverityWarning,
			Description: msg,
			DeviceID:    deviceID,
			Metadata:    map[string]any{"stopped_channels": stopped},
		})
		s.sink.Notify(ctx, models.SeverityWarning, msg)
	}
	return nil
}
