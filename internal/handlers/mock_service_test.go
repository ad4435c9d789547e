package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastSignUpRole     string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password, role string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	m.lastSignUpRole = role
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockTelemetry struct {
	summary    service.PollingSummary
	refreshErr error
	channels   []models.Channel

	refreshCalls int
}

func (m *mockTelemetry) StartPolling(models.Device, models.Channel, time.Duration) {}
func (m *mockTelemetry) StopPolling(string)                                        {}
func (m *mockTelemetry) RefreshPolling(ctx context.Context) (service.PollingSummary, error) {
	m.refreshCalls++
	return m.summary, m.refreshErr
}
func (m *mockTelemetry) Ingest(context.Context, models.Device, models.Channel, time.Time, float64) service.IngestResult {
	return service.IngestAccepted
}
func (m *mockTelemetry) DisableDevice(context.Context, string) error { return nil }
func (m *mockTelemetry) Polled() []models.Channel                    { return m.channels }
func (m *mockTelemetry) Close()                                      {}

type mockDecisions struct {
	report    service.DecisionReport
	err       error
	status    aiclient.Status
	health    aiclient.Health
	healthErr error

	lastLocation string
}

func (m *mockDecisions) Evaluate(ctx context.Context, locationID string, _ models.LatestSensorState) (service.DecisionReport, error) {
	m.lastLocation = locationID
	return m.report, m.err
}
func (m *mockDecisions) EvaluateLocation(ctx context.Context, locationID string) (service.DecisionReport, error) {
	m.lastLocation = locationID
	return m.report, m.err
}
func (m *mockDecisions) BreakerStatus() aiclient.Status { return m.status }
func (m *mockDecisions) DecisionServiceHealth(ctx context.Context) (aiclient.Health, error) {
	return m.health, m.healthErr
}

type mockSchedules struct {
	list      []models.ScheduleWindow
	listErr   error
	createErr error
	activeErr error
	deleteErr error

	lastDeviceID string
	lastCreated  models.ScheduleWindow
	lastActiveID string
	lastActive   bool
	lastDeleted  string
}

func (m *mockSchedules) CreateUrgentSchedule(context.Context, string, time.Duration, string) (*models.ScheduleWindow, error) {
	return nil, nil
}
func (m *mockSchedules) CreateNormalSchedule(context.Context, string, time.Duration, string) (*models.ScheduleWindow, error) {
	return nil, nil
}
func (m *mockSchedules) Create(ctx context.Context, w models.ScheduleWindow) (*models.ScheduleWindow, error) {
	m.lastCreated = w
	if m.createErr != nil {
		return nil, m.createErr
	}
	w.ID = "sched-1"
	return &w, nil
}
func (m *mockSchedules) SetActive(ctx context.Context, id string, active bool) error {
	m.lastActiveID = id
	m.lastActive = active
	return m.activeErr
}
func (m *mockSchedules) ListSchedules(ctx context.Context, deviceID string) ([]models.ScheduleWindow, error) {
	m.lastDeviceID = deviceID
	return m.list, m.listErr
}
func (m *mockSchedules) Delete(ctx context.Context, id string) error {
	m.lastDeleted = id
	return m.deleteErr
}

type mockSensorState struct {
	states map[string]models.LatestSensorState
}

func (m *mockSensorState) LatestState(locationID string) (models.LatestSensorState, bool) {
	st, ok := m.states[locationID]
	return st, ok
}

type mockEventLog struct {
	resp         []models.LogEvent
	err          error
	lastFrom     time.Time
	lastTo       time.Time
	lastSeverity string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.LogEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastSeverity = f.Severity
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// doRequest sends an authorized request through the router.
func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}
