package apirouter

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hookdeck/workerctl/internal/supervisor"
)

type HealthChecker interface {
	IsHealthy() bool
	GetStatus() supervisor.HealthStatus
}

// HealthHandler reports the health of the supervised services.
func HealthHandler(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := health.GetStatus()
		if health.IsHealthy() {
			c.JSON(http.StatusOK, status)
		} else {
			c.JSON(http.StatusServiceUnavailable, status)
		}
	}
}
