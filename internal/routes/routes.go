package routes

import (
	"net/http"

	"github.com/Cyvadra/signal-desk/internal/handlers"
	"github.com/Cyvadra/signal-desk/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// APIPrefix is the path prefix of every API endpoint
const APIPrefix = "/api/v1"

// NewRouter creates an engine with request id, logging and recovery
// middleware and all routes mounted
func NewRouter(h *handlers.Handler, logger *zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(middleware.LoggingConfig{
		Logger:      logger,
		SkipPaths:   []string{"/health"},
		StreamPaths: []string{APIPrefix + "/chat-stream"},
	}))
	r.Use(middleware.Recovery())

	handlers.SetGlobalHandler(h)
	SetupRoutes(r)
	return r
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine) {
	// Get the configured handler
	h := handlers.GetGlobalHandler()
	if h == nil {
		// Fallback to creating a new handler if global handler is not set
		h = handlers.NewHandler()
	}

	api := r.Group(APIPrefix)
	{
		api.GET("/accounts", h.ListAccounts)
		api.POST("/accounts/:id/sync-pnl", h.SyncPnL)

		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id/messages", h.GetMessages)
		api.POST("/chat-stream", h.ChatStream)

		api.GET("/signals", h.ListSignals)
		api.POST("/signals", h.CreateSignal)
		api.POST("/signal-pools", h.CreatePool)

		api.GET("/trades", h.ListTrades)
	}

	// Health check endpoint
	r.GET("/health", h.Health)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Signal Desk",
			"version": "1.0.0",
			"endpoints": gin.H{
				"chat":   APIPrefix + "/chat-stream",
				"trades": APIPrefix + "/trades",
				"health": "/health",
			},
		})
	})
}
