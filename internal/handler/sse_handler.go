package handler

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/middleware"
	"github.com/GTDGit/dropaz_api/internal/sse"
)

// SSEPingInterval is how often an idle stream receives a ping.
const SSEPingInterval = 30 * time.Second

// SSEHandler handles Server-Sent Events for admin real-time updates.
type SSEHandler struct {
	hub          *sse.Hub
	pingInterval time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, pingInterval: SSEPingInterval}
}

// Stream handles GET /admin/api/events?token=<jwt>. Authentication runs in AdminMiddleware.HandleQuery.
func (h *SSEHandler) Stream(c *gin.Context) {
	adminID := middleware.GetAdminID(c)
	clientID := fmt.Sprintf("admin-%d-%s", adminID, uuid.NewString()[:8])

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID)
	defer h.hub.Unregister(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"message":   "SSE connection established",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int64("admin_id", adminID).Msg("Admin SSE stream started")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent("catalog", string(data))
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
