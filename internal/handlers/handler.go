package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global handler instance
var globalHandler *Handler

// Handler serves the chat, signal and trade API
type Handler struct {
	accounts      *services.AccountService
	conversations *services.ConversationService
	assistant     *services.AssistantService
	forward       *services.ForwardService
	signals       *services.SignalService
	trades        *services.TradeService
	pnlSync       *services.PnLSyncService
	brokers       *broker.ConfigManager
	logger        zerolog.Logger
}

// NewHandler creates a handler with services on the global database
func NewHandler() *Handler {
	accounts := services.NewAccountService()
	conversations := services.NewConversationService()
	forward := services.NewForwardService()

	return &Handler{
		accounts:      accounts,
		conversations: conversations,
		assistant:     services.NewAssistantService(conversations, accounts),
		forward:       forward,
		signals:       services.NewSignalService(forward),
		trades:        services.NewTradeService(),
		pnlSync:       services.NewPnLSyncService(accounts, nil),
		logger:        log.With().Str("component", "api").Logger(),
	}
}

// SetGlobalHandler sets the global handler instance
func SetGlobalHandler(handler *Handler) {
	globalHandler = handler
}

// GetGlobalHandler returns the global handler instance
func GetGlobalHandler() *Handler {
	return globalHandler
}

// SetConfig sets the configuration for all services
func (h *Handler) SetConfig(cfg *config.Config) {
	h.forward.SetConfig(cfg)
	h.pnlSync.SetConfig(cfg)
}

// SetAccountConfig sets the account list for all services
func (h *Handler) SetAccountConfig(cfg *config.AccountConfig) {
	h.pnlSync.SetAccountConfig(cfg)
}

// SetBrokers sets the connected exchange accounts
func (h *Handler) SetBrokers(brokers *broker.ConfigManager) {
	h.brokers = brokers
	h.pnlSync.SetBrokers(brokers)
}

// Accounts returns the account service
func (h *Handler) Accounts() *services.AccountService {
	return h.accounts
}

// Close waits for pending downstream notifications
func (h *Handler) Close() {
	h.forward.Wait()
}

// respondError writes {"error": ...} with a status derived from err
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrConversationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, services.ErrInvalidSignal),
		errors.Is(err, services.ErrNoBroker):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrSyncInProgress):
		status = http.StatusConflict
	case broker.IsTemporaryError(err):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
