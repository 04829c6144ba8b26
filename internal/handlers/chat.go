package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/services"
	"github.com/gin-gonic/gin"
)

// ListAccounts lists trading accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// ListConversations lists conversations, most recent first
func (h *Handler) ListConversations(c *gin.Context) {
	conversations, err := h.conversations.ListConversations()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// GetMessages lists the messages of a conversation
func (h *Handler) GetMessages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	messages, err := h.conversations.Messages(int64(id))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ChatStream answers a user message as a server-sent event stream
func (h *Handler) ChatStream(c *gin.Context) {
	var req models.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	turn, err := h.assistant.Begin(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	err = turn.Run(c.Request.Context(), func(ev services.StreamEvent) error {
		c.SSEvent(ev.Name, ev.Data)
		c.Writer.Flush()
		return nil
	})
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	h.logger.Error().Err(err).Int64("conversation_id", turn.ConversationID).Msg("Chat stream failed")
	c.SSEvent(services.StreamError, gin.H{"message": err.Error()})
	c.Writer.Flush()
}
