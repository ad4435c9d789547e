package handlers

import (
	"net/http"
	"strconv"
	"time"

	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingEvery   = wsPongWait * 9 / 10
	wsReadLimit   = 4 << 10
	wsPushDefault = time.Second
	wsPushMax     = 10 * time.Second
	errWSLocation = "location_id query parameter is required"
	wsTypeState   = "state"
	wsTypeError   = "error"
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsSnapshot is the periodic control-loop view pushed to dashboards.
type wsSnapshot struct {
	LocationID string                    `json:"location_id"`
	State      *models.LatestSensorState `json:"state,omitempty"`
	Breaker    aiclient.Status           `json:"breaker"`
	Channels   []models.Channel          `json:"channels"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSession streams snapshots of one location to one client.
type wsSession struct {
	conn       *websocket.Conn
	services   *service.Service
	log        *logger.Logger
	locationID string
	closed     chan struct{}
}

// @Summary      Live control-loop snapshot
// @Description  WebSocket stream of {location_id, state, breaker, channels}. Requires ?location_id; ?interval=2s or ?interval_ms=2000 (max 10s).
// @Tags         telemetry
// @Param        location_id  query  string  true   "Location id"
// @Param        interval     query  string  false  "Push interval"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	every := pushInterval(c.Query("interval"), c.Query("interval_ms"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	s := &wsSession{
		conn:       conn,
		services:   h.services,
		log:        h.log,
		locationID: c.Query("location_id"),
		closed:     make(chan struct{}),
	}
	if s.locationID == "" {
		_ = s.write(wsEnvelope{Type: wsTypeError, Error: errWSLocation})
		return
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go s.drain()

	s.stream(c.Request.Context().Done(), every)
}

// stream pushes a snapshot immediately and then every tick until the client goes away.
func (s *wsSession) stream(stop <-chan struct{}, every time.Duration) {
	push := time.NewTicker(every)
	defer push.Stop()
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	if err := s.pushSnapshot(); err != nil {
		s.debug("ws_write_failed", err)
		return
	}
	for {
		select {
		case <-s.closed:
			return
		case <-stop:
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.debug("ws_ping_failed", err)
				return
			}
		case <-push.C:
			if err := s.pushSnapshot(); err != nil {
				s.debug("ws_write_failed", err)
				return
			}
		}
	}
}

// drain reads control frames until the peer disconnects.
func (s *wsSession) drain() {
	defer close(s.closed)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.debug("ws_read_closed", err)
			return
		}
	}
}

func (s *wsSession) pushSnapshot() error {
	snap := wsSnapshot{
		LocationID: s.locationID,
		Breaker:    s.services.BreakerStatus(),
		Channels:   s.services.Polled(),
	}
	if st, ok := s.services.LatestState(s.locationID); ok {
		snap.State = &st
	}
	return s.write(wsEnvelope{Type: wsTypeState, Data: snap})
}

func (s *wsSession) write(env wsEnvelope) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(env)
}

func (s *wsSession) debug(event string, err error) {
	if s.log != nil {
		s.log.Debugw(event, "location_id", s.locationID, "err", err)
	}
}

// pushInterval prefers a duration string, then milliseconds, within (0, wsPushMax].
func pushInterval(duration, millis string) time.Duration {
	if d, err := time.ParseDuration(duration); err == nil && d > 0 && d <= wsPushMax {
		return d
	}
	if ms, err := strconv.Atoi(millis); err == nil {
		if d := time.Duration(ms) * time.Millisecond; d > 0 && d <= wsPushMax {
			return d
		}
	}
	return wsPushDefault
}
