package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListTrades lists executed trades, optionally for one account
func (h *Handler) ListTrades(c *gin.Context) {
	var accountID uint64
	if v := c.Query("account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account_id"})
			return
		}
		accountID = id
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	trades, err := h.trades.ListTrades(uint(accountID), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// SyncPnL pulls the latest trades and realized PnL of an account
func (h *Handler) SyncPnL(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	message, err := h.pnlSync.SyncAccount(c.Request.Context(), uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
