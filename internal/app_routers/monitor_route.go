package approuters

import (
	"Lumen/internal/configuration"

	"github.com/gin-gonic/gin"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.RouterGroup, container *configuration.Container) {
	monitorGroup := router.Group("/monitor")
	{
		// GET /lumen/api/monitor/stats - Get hub statistics
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
