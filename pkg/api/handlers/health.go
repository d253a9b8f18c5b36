package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aircast/pkg/api/types"
)

// HealthHandler handles health check endpoints
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health handles GET /api/health
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}
