package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shaswata28/studymate/internal/supervisor"
)

// SystemHandlers serves operational endpoints (§6.1's GET /health).
type SystemHandlers struct {
	brain *supervisor.Supervisor
}

func NewSystemHandlers(brain *supervisor.Supervisor) *SystemHandlers {
	return &SystemHandlers{brain: brain}
}

func (h *SystemHandlers) Health(c *gin.Context) {
	if !h.brain.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: string(h.brain.State())})
		return
	}

	c.JSON(http.StatusOK, healthResponse{Status: string(h.brain.State())})
}
