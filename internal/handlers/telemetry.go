package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	errRefreshPolling = "failed to refresh polling"
	errNoSensorState  = "no sensor data for location"
)

// @Summary      Refresh polling
// @Description  Starts pollers for active sensors and stops pollers of inactive ones.
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  service.PollingSummary
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshPolling(c *gin.Context) {
	sum, err := h.services.RefreshPolling(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRefreshPolling, "polling_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary      Polled channels
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, channels"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/telemetry/channels [get]
// @Security     BearerAuth
func (h *Handler) listChannels(c *gin.Context) {
	channels := h.services.Polled()
	c.JSON(http.StatusOK, gin.H{"count": len(channels), "channels": channels})
}

// @Summary      Latest sensor state
// @Tags         telemetry
// @Produce      json
// @Param        locationId  path      string  true  "Location id"
// @Success      200         {object}  models.LatestSensorState
// @Failure      401         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /api/v1/telemetry/state/{locationId} [get]
// @Security     BearerAuth
func (h *Handler) getSensorState(c *gin.Context) {
	st, ok := h.services.LatestState(c.Param("locationId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoSensorState})
		return
	}
	c.JSON(http.StatusOK, st)
}
