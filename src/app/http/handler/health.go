package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fluxocaixa/src/core/usecase"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	healthService *usecase.HealthService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService *usecase.HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// Health returns process liveness without touching the database.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthService.Check())
}

// DetailedHealth probes the database and reports pool usage. A failed probe
// answers 503.
// GET /health/detailed
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	status := h.healthService.Detailed(c.Request.Context())
	code := http.StatusOK
	if status.Status != "OK" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
