// Package aiclient is the circuit-breaker guarded client of the external
// decision service.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"

	"github.com/sony/gobreaker"
)

const (
	DefaultCallTimeout      = 10 * time.Second
	DefaultHealthTimeout    = 5 * time.Second
	DefaultResetTimeout     = 30 * time.Second
	DefaultFailureThreshold = 3

	breakerName  = "decision-service"
	maxErrorBody = 512
)

var (
	// ErrCircuitOpen is returned without any network activity while the breaker is open.
	ErrCircuitOpen = errors.New("decision service circuit is open")
	// ErrServiceURL is returned by New when no base URL is configured.
	ErrServiceURL = errors.New("decision service url is required")
	// ErrInvalidResponse wraps every validation failure of a decision payload.
	ErrInvalidResponse = errors.New("invalid decision response")
)

// Config tunes the breaker and the HTTP timeouts. Zero values take the defaults.
type Config struct {
	BaseURL          string
	CallTimeout      time.Duration
	HealthTimeout    time.Duration
	ResetTimeout     time.Duration
	FailureThreshold uint32
}

// Status is a point-in-time view of the breaker.
type Status struct {
	State           string    `json:"state"`
	FailureCount    uint32    `json:"failure_count"`
	LastStateChange time.Time `json:"last_state_change"`
}

// Health is the body returned by GET /health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Client struct {
	baseURL       string
	callTimeout   time.Duration
	healthTimeout time.Duration
	http          *http.Client
	cb            *gobreaker.CircuitBreaker
	log           *logger.Logger
	observers     []Observer

	mu         sync.Mutex
	lastChange time.Time
}

// New builds a client. A missing base URL is a fatal configuration error.
func New(cfg Config, log *logger.Logger, observers ...Observer) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrServiceURL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}

	c := &Client{
		baseURL:       base,
		callTimeout:   cfg.CallTimeout,
		healthTimeout: cfg.HealthTimeout,
		http:          &http.Client{},
		log:           logger.OrNop(log),
		observers:     observers,
		lastChange:    time.Now(),
	}

	threshold := cfg.FailureThreshold
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    0, // counts only reset on success or state change
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: c.onStateChange,
	})
	return c, nil
}

func (c *Client) onStateChange(_ string, from, to gobreaker.State) {
	c.mu.Lock()
	c.lastChange = time.Now()
	c.mu.Unlock()

	switch to {
	case gobreaker.StateOpen:
		c.log.Warnw("decision_breaker_opened", "from", from.String())
		c.emit(SignalOpened)
	case gobreaker.StateHalfOpen:
		c.log.Infow("decision_breaker_half_open")
		c.emit(SignalHalfOpen)
	case gobreaker.StateClosed:
		c.log.Infow("decision_breaker_closed", "from", from.String())
		c.emit(SignalClosed)
	}
}

func (c *Client) emit(s Signal) {
	for _, o := range c.observers {
		o.BreakerSignal(s)
	}
}

// Decide asks the decision service for a combined pump/fan decision.
// A ctx that is already done never reaches the breaker, so it neither clears
// the failure count nor spends the half-open trial call.
func (c *Client) Decide(ctx context.Context, req models.DecisionRequest) (models.DecisionOutcome, error) {
	if err := ctx.Err(); err != nil {
		c.log.Debugw("decision_call_skipped", "location_id", req.LocationID, "err", err)
		return models.DecisionOutcome{}, err
	}
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.decide(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Warnw("decision_call_rejected", "location_id", req.LocationID, "state", c.cb.State().String())
			c.emit(SignalCallRejected)
			return models.DecisionOutcome{}, ErrCircuitOpen
		}
		c.log.Errorw("decision_call_failed", "location_id", req.LocationID, "err", err,
			"consecutive_failures", c.cb.Counts().ConsecutiveFailures)
		c.emit(SignalCallFailed)
		return models.DecisionOutcome{}, err
	}
	c.emit(SignalCallSucceeded)
	return res.(models.DecisionOutcome), nil
}

func (c *Client) decide(ctx context.Context, in models.DecisionRequest) (models.DecisionOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return models.DecisionOutcome{}, fmt.Errorf("encode decision request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/decide", bytes.NewReader(body))
	if err != nil {
		return models.DecisionOutcome{}, fmt.Errorf("build decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.DecisionOutcome{}, fmt.Errorf("call decision service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return models.DecisionOutcome{}, fmt.Errorf("decision service status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var raw rawOutcome
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.DecisionOutcome{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return raw.validate()
}

// Health probes GET /health. It is not guarded by the breaker.
func (c *Client) Health(ctx context.Context) (Health, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("decision service health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Health{}, fmt.Errorf("decision service health: status %d", resp.StatusCode)
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decode health: %w", err)
	}
	return h, nil
}

// Status reports the breaker state and its consecutive failure count.
func (c *Client) Status() Status {
	c.mu.Lock()
	last := c.lastChange
	c.mu.Unlock()
	return Status{
		State:           c.cb.State().String(),
		FailureCount:    c.cb.Counts().ConsecutiveFailures,
		LastStateChange: last,
	}
}
