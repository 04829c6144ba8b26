package handlers

import (
	"net/http"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/gin-gonic/gin"
)

// CreateSignal stores a single signal proposed in chat
func (h *Handler) CreateSignal(c *gin.Context) {
	h.create(c, h.signals.CreateSignal)
}

// CreatePool stores a signal pool proposed in chat
func (h *Handler) CreatePool(c *gin.Context) {
	h.create(c, h.signals.CreatePool)
}

func (h *Handler) create(c *gin.Context, create func(models.SignalConfig) (*models.SignalRecord, error)) {
	var cfg models.SignalConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	record, err := create(cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": record.ID})
}

// ListSignals lists created signals and pools
func (h *Handler) ListSignals(c *gin.Context) {
	records, err := h.signals.ListSignals()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": records})
}
