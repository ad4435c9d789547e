package handlers

import (
	"errors"
	"net/http"

	"greenhouse_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errEvaluate        = "failed to evaluate location"
	errDecisionService = "decision service unavailable"
)

// @Summary      Evaluate location
// @Description  Runs one decision cycle on the latest sensor state of the location.
// @Tags         decisions
// @Produce      json
// @Param        locationId  path      string  true  "Location id"
// @Success      200         {object}  service.DecisionReport
// @Failure      401         {object}  map[string]string
// @Failure      422         {object}  map[string]interface{}  "error, report"
// @Failure      500         {object}  map[string]string
// @Router       /api/v1/decisions/{locationId}/evaluate [post]
// @Security     BearerAuth
func (h *Handler) evaluateLocation(c *gin.Context) {
	locationID := c.Param("locationId")
	report, err := h.services.EvaluateLocation(c.Request.Context(), locationID)
	switch {
	case errors.Is(err, service.ErrThresholdsIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, errEvaluate, "decision_evaluate_failed", err,
			"location_id", locationID)
	default:
		c.JSON(http.StatusOK, report)
	}
}

// @Summary      Circuit breaker status
// @Tags         decisions
// @Produce      json
// @Success      200  {object}  aiclient.Status
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/decisions/breaker [get]
// @Security     BearerAuth
func (h *Handler) getBreaker(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.BreakerStatus())
}

// @Summary      Decision service health
// @Description  Probes the decision service directly; the probe is not guarded by the breaker.
// @Tags         decisions
// @Produce      json
// @Success      200  {object}  aiclient.Health
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/decisions/health [get]
// @Security     BearerAuth
func (h *Handler) getDecisionHealth(c *gin.Context) {
	health, err := h.services.DecisionServiceHealth(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, errDecisionService, "decision_health_failed", err)
		return
	}
	c.JSON(http.StatusOK, health)
}
