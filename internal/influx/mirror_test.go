package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"greenhouse_control/internal/models"
)

type writeRecorder struct {
	mu    sync.Mutex
	lines []string
	query []string
}

func newInfluxServer(t *testing.T, status int) (*httptest.Server, *writeRecorder) {
	t.Helper()
	rec := &writeRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.lines = append(rec.lines, string(b))
		rec.query = append(rec.query, r.URL.RawQuery)
		rec.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestMirror_WritesLineProtocol(t *testing.T) {
	srv, rec := newInfluxServer(t, http.StatusNoContent)
	m := NewMirror(srv.URL, "token", "farm", "greenhouse")
	defer m.Close()

	ts := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	if err := m.WriteMoisture(context.Background(), models.MoistureRecord{SensorID: "moist-1", Timestamp: ts, SoilMoisture: 41.5}); err != nil {
		t.Fatalf("WriteMoisture: %v", err)
	}
	if err := m.WriteClimate(context.Background(), models.ClimateRecord{SensorID: "dht-1", Timestamp: ts, Temperature: 28, Humidity: 70}); err != nil {
		t.Fatalf("WriteClimate: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.lines) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(rec.lines))
	}
	if !strings.HasPrefix(rec.lines[0], "soil_moisture,sensor_id=moist-1 soil_moisture=41.5") {
		t.Fatalf("unexpected moisture line: %q", rec.lines[0])
	}
	if !strings.Contains(rec.lines[1], "humidity=70") || !strings.Contains(rec.lines[1], "temperature=28") {
		t.Fatalf("unexpected climate line: %q", rec.lines[1])
	}
	if !strings.Contains(rec.query[0], "bucket=greenhouse") || !strings.Contains(rec.query[0], "org=farm") {
		t.Fatalf("unexpected query: %q", rec.query[0])
	}
}

func TestMirror_ReportsServerError(t *testing.T) {
	srv, _ := newInfluxServer(t, http.StatusUnauthorized)
	m := NewMirror(srv.URL, "bad", "farm", "greenhouse")
	defer m.Close()

	err := m.WriteMoisture(context.Background(), models.MoistureRecord{SensorID: "moist-1", Timestamp: time.Now(), SoilMoisture: 1})
	if err == nil {
		t.Fatal("expected error on 401")
	}
}
