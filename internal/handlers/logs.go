package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"greenhouse_control/internal/models"
	"greenhouse_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errSeverity    = "invalid 'severity'; use INFO, WARNING or ERROR"
	errRange       = "'from' must be <= 'to'"
	errListLogs    = "failed to load logs"
)

// accepted query layouts, tried in order
var queryTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

var errQueryTime = errors.New("unrecognized time layout")

// @Summary      List logs
// @Description  Event history filtered by time range and severity. A date-only 'to' covers the whole day.
// @Tags         logs
// @Produce      json
// @Param        from      query     string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to        query     string  false  "End of range, inclusive"  example(2025-08-31)
// @Param        severity  query     string  false  "Event severity"  Enums(INFO,WARNING,ERROR)
// @Success      200       {object}  map[string]interface{}  "count, events"
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, msg := logFilterFromQuery(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListLogs, "logs_list_failed", err,
			"from", filter.From, "to", filter.To, "severity", filter.Severity)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

// logFilterFromQuery returns the filter or a client-facing error message.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, string) {
	var f service.LogFilter

	f.Severity = strings.ToUpper(strings.TrimSpace(c.Query("severity")))
	switch models.Severity(f.Severity) {
	case "", models.SeverityInfo, models.SeverityWarning, models.SeverityError:
	default:
		return f, errSeverity
	}

	if raw := c.Query("from"); raw != "" {
		t, err := parseQueryTime(raw)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseQueryTime(raw)
		if err != nil {
			return f, errToInvalid
		}
		// bare date: up to the last instant of that day
		if !strings.ContainsAny(raw, "T ") {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.To = t
	}

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRange
	}
	return f, ""
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errQueryTime
}
