package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/utils"
)

var startTime = time.Now()

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler provides health endpoint.
type HealthHandler struct {
	version string
	checks  map[string]HealthCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	deps := gin.H{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			healthy = false
			deps[name] = gin.H{"status": "disconnected", "error": err.Error()}
			continue
		}
		deps[name] = gin.H{"status": "connected"}
	}

	data := gin.H{
		"status":       "healthy",
		"version":      h.version,
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	}
	if !healthy {
		data["status"] = "degraded"
		utils.ErrorWithData(c, 503, "SERVICE_DEGRADED", "Service is degraded", data)
		return
	}
	utils.Success(c, 200, "Service is healthy", data)
}
