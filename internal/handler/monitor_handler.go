package handler

import (
	"Lumen/internal/hub"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
}

type monitorHandler struct {
	monitorService *hub.MonitorService
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitorService *hub.MonitorService) MonitorHandler {
	return &monitorHandler{
		monitorService: monitorService,
	}
}

// GetHubStats returns current hub statistics
// @Summary Get WebSocket hub statistics
// @Description Returns connected clients and the conversations they have open
// @Tags Monitor
// @Produce json
// @Success 200 {object} model.MonitorResponse
// @Router /lumen/api/monitor/stats [get]
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	respond(c, http.StatusOK, h.monitorService.GetStats(), "Hub statistics retrieved successfully")
}
