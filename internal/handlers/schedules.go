package handlers

import (
	"errors"
	"net/http"
	"time"

	"greenhouse_control/internal/models"
	"greenhouse_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errListSchedules = "failed to load schedules"
	errSaveSchedule  = "failed to save schedule"
)

// CreateScheduleRequest is the payload of POST /api/v1/schedules.
type CreateScheduleRequest struct {
	DeviceID  string    `json:"device_id" binding:"required" example:"pump-1"`
	StartTime time.Time `json:"start_time" binding:"required" example:"2025-06-02T06:00:00Z"`
	EndTime   time.Time `json:"end_time" binding:"required" example:"2025-06-02T06:30:00Z"`
	// Weekday bitmask, Sunday = 1; 0 means one-shot
	RepeatDays int  `json:"repeat_days" example:"62"`
	IsActive   bool `json:"is_active" example:"true"`
}

// SetActiveRequest toggles a schedule.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required" example:"false"`
}

// scheduleErrorStatus maps scheduler errors to HTTP codes.
func scheduleErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidSchedule):
		return http.StatusBadRequest, true
	case errors.Is(err, service.ErrDeviceNotFound), errors.Is(err, service.ErrScheduleNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrScheduleConflict):
		return http.StatusConflict, true
	}
	return http.StatusInternalServerError, false
}

func (h *Handler) scheduleError(c *gin.Context, err error, logKey string, kv ...interface{}) {
	if code, known := scheduleErrorStatus(err); known {
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, errSaveSchedule, logKey, err, kv...)
}

// @Summary      List schedules
// @Description  Without device_id returns every active schedule.
// @Tags         schedules
// @Produce      json
// @Param        device_id  query     string  false  "Device id"
// @Success      200        {object}  map[string]interface{}  "count, schedules"
// @Failure      401        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	deviceID := c.Query("device_id")
	ws, err := h.services.ListSchedules(c.Request.Context(), deviceID)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSchedules, "schedules_list_failed", err,
			"device_id", deviceID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ws), "schedules": ws})
}

// @Summary      Create schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      CreateScheduleRequest  true  "Schedule window"
// @Success      201   {object}  models.ScheduleWindow
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	w, err := h.services.Schedules.Create(c.Request.Context(), models.ScheduleWindow{
		DeviceID:   req.DeviceID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		RepeatDays: req.RepeatDays,
		IsActive:   req.IsActive,
		Source:     models.SourceOperator,
	})
	if err != nil {
		h.scheduleError(c, err, "schedule_create_failed", "device_id", req.DeviceID)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// @Summary      Activate or deactivate schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path      string            true  "Schedule id"
// @Param        body  body      SetActiveRequest  true  "Activation flag"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [patch]
// @Security     BearerAuth
func (h *Handler) setScheduleActive(c *gin.Context) {
	var req SetActiveRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	id := c.Param("id")
	if err := h.services.Schedules.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		h.scheduleError(c, err, "schedule_toggle_failed", "schedule_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": id, "is_active": *req.IsActive})
}

// @Summary      Delete schedule
// @Tags         schedules
// @Param        id  path  string  true  "Schedule id"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Schedules.Delete(c.Request.Context(), id); err != nil {
		h.scheduleError(c, err, "schedule_delete_failed", "schedule_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}
