package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports service status and exchange connectivity
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"service": "signal-desk",
	}
	if h.brokers != nil {
		resp["brokers"] = h.brokers.GetHealthStatus(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}
