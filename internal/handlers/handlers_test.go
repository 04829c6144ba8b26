package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupHandler(t *testing.T) (*gin.Engine, *Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()), database.Options{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	h := NewHandler()
	h.SetConfig(config.Default())
	require.NoError(t, h.Accounts().SyncFromConfig(&config.AccountConfig{Accounts: []config.AccountEntry{
		{Name: "main", Exchange: "binance", IsActive: true},
	}}))

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/accounts", h.ListAccounts)
	api.POST("/accounts/:id/sync-pnl", h.SyncPnL)
	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/:id/messages", h.GetMessages)
	api.POST("/chat-stream", h.ChatStream)
	api.GET("/signals", h.ListSignals)
	api.POST("/signals", h.CreateSignal)
	api.POST("/signal-pools", h.CreatePool)
	api.GET("/trades", h.ListTrades)
	r.GET("/health", h.Health)
	return r, h, db
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// sseEvents returns the event names of a recorded stream in order
func sseEvents(body string) []string {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event:"); ok {
			names = append(names, strings.TrimSpace(name))
		}
	}
	return names
}

func TestListAccounts(t *testing.T) {
	r, _, _ := setupHandler(t)

	w := doRequest(r, http.MethodGet, "/api/v1/accounts", "")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	accounts := body["accounts"].([]interface{})
	require.Len(t, accounts, 1)
	assert.Equal(t, "main", accounts[0].(map[string]interface{})["name"])
}

func TestChatStreamAndHistory(t *testing.T) {
	r, _, _ := setupHandler(t)

	w := doRequest(r, http.MethodPost, "/api/v1/chat-stream",
		`{"accountId":1,"userMessage":"BTCUSDT rsi < 30","conversationId":null}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Equal(t, []string{
		"status", "reasoning", "tool_call", "tool_result", "content", "content", "signal_config", "done",
	}, sseEvents(w.Body.String()))

	w = doRequest(r, http.MethodGet, "/api/v1/conversations", "")
	assert.Equal(t, http.StatusOK, w.Code)
	conversations := decodeBody(t, w)["conversations"].([]interface{})
	require.Len(t, conversations, 1)
	assert.Equal(t, "BTCUSDT rsi < 30", conversations[0].(map[string]interface{})["title"])

	w = doRequest(r, http.MethodGet, "/api/v1/conversations/1/messages", "")
	assert.Equal(t, http.StatusOK, w.Code)
	messages := decodeBody(t, w)["messages"].([]interface{})
	require.Len(t, messages, 2)
	assistant := messages[1].(map[string]interface{})
	assert.Equal(t, "assistant", assistant["role"])
	assert.Len(t, assistant["signal_configs"], 1)
}

func TestChatStreamErrors(t *testing.T) {
	r, _, _ := setupHandler(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"empty message", `{"accountId":1,"userMessage":"  "}`, http.StatusBadRequest},
		{"unknown account", `{"accountId":9,"userMessage":"hi"}`, http.StatusNotFound},
		{"unknown conversation", `{"accountId":1,"userMessage":"hi","conversationId":77}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/api/v1/chat-stream", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestGetMessagesInvalidID(t *testing.T) {
	r, _, _ := setupHandler(t)

	w := doRequest(r, http.MethodGet, "/api/v1/conversations/abc/messages", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/conversations/5/messages", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSignalAndPool(t *testing.T) {
	r, _, _ := setupHandler(t)

	w := doRequest(r, http.MethodPost, "/api/v1/signals",
		`{"type":"signal","name":"BTC OI","symbol":"BTCUSDT","metric":"oi_delta","operator":"greater_than","threshold":2}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])

	w = doRequest(r, http.MethodPost, "/api/v1/signal-pools",
		`{"type":"pool","name":"Dip","logic":"OR","signals":[{"metric":"rsi","operator":"less_than","threshold":30}]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/signals", `{"type":"signal","name":"no metric"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/signals", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["signals"], 2)
}

func TestListTrades(t *testing.T) {
	r, _, db := setupHandler(t)

	require.NoError(t, db.Create(&models.TradeRecord{AccountID: 1, TradeID: 5, Symbol: "BTCUSDT", Side: models.SideBuy}).Error)

	w := doRequest(r, http.MethodGet, "/api/v1/trades?account_id=1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	trades := decodeBody(t, w)["trades"].([]interface{})
	require.Len(t, trades, 1)
	assert.Equal(t, "main", trades[0].(map[string]interface{})["account_name"])

	w = doRequest(r, http.MethodGet, "/api/v1/trades?account_id=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncPnLWithoutBroker(t *testing.T) {
	r, _, _ := setupHandler(t)

	w := doRequest(r, http.MethodPost, "/api/v1/accounts/1/sync-pnl", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "no exchange connection")

	w = doRequest(r, http.MethodPost, "/api/v1/accounts/8/sync-pnl", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	r, _, _ := setupHandler(t)

	w := doRequest(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "brokers")
}
