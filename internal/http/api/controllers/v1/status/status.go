// Package status serves the unauthenticated liveness/capacity summary
// clients poll before opening a WebSocket connection.
package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opensignal/signalhub/internal/http/api/utils"
)

type statusResponse struct {
	ConnectionCount int   `json:"connection_count"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
	BytesSent       int64 `json:"bytes_sent"`
	BytesReceived   int64 `json:"bytes_received"`
}

// GETStatus reports the hub's live connection count, uptime, and a
// best-effort traffic counter.
func GETStatus(c *gin.Context) {
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	stats := h.StatsSnapshot()
	c.JSON(http.StatusOK, statusResponse{
		ConnectionCount: stats.ConnectionCount,
		UptimeSeconds:   stats.UptimeSeconds,
		BytesSent:       stats.BytesSent,
		BytesReceived:   stats.BytesReceived,
	})
}
