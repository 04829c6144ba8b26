// Package client talks to the signal assistant backend over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client is a REST client of the assistant backend. It implements the chat
// session API and the config creator.
type Client struct {
	http *resty.Client
	// stream has no overall timeout so long answers are not cut off
	stream *resty.Client
}

// New creates a client for baseURL
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
		stream: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "text/event-stream"),
	}
}

// SetTimeout sets the timeout of non-streaming requests
func (c *Client) SetTimeout(d time.Duration) *Client {
	if d > 0 {
		c.http.SetTimeout(d)
	}
	return c
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) *Client {
	c.http.SetHeader(key, value)
	c.stream.SetHeader(key, value)
	return c
}

// ListAccounts returns the trading accounts
func (c *Client) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var out struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := c.get(ctx, "/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// ListConversations returns the saved conversations
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.get(ctx, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// ListMessages returns the messages of a conversation in order
func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	path := "/conversations/" + strconv.FormatInt(conversationID, 10) + "/messages"
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// OpenChatStream posts a user message and returns the raw event stream.
// The caller must close the returned body.
func (c *Client) OpenChatStream(ctx context.Context, req models.ChatStreamRequest) (io.ReadCloser, error) {
	resp, err := c.stream.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetDoNotParseResponse(true).
		Post("/chat-stream")
	if err != nil {
		return nil, fmt.Errorf("chat stream request failed: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		defer body.Close()
		raw, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, newAPIError(resp.StatusCode(), raw)
	}
	return body, nil
}

// CreateSignal commits a single signal config
func (c *Client) CreateSignal(ctx context.Context, cfg models.SignalConfig) (bool, error) {
	return c.create(ctx, "/signals", cfg)
}

// CreatePool commits a signal pool config
func (c *Client) CreatePool(ctx context.Context, cfg models.SignalConfig) (bool, error) {
	return c.create(ctx, "/signal-pools", cfg)
}

// ListTrades returns the trades of accountID, or of all accounts when
// accountID is zero
func (c *Client) ListTrades(ctx context.Context, accountID uint) ([]models.Trade, error) {
	var query map[string]string
	if accountID != 0 {
		query = map[string]string{"account_id": strconv.FormatUint(uint64(accountID), 10)}
	}

	var out struct {
		Trades []models.Trade `json:"trades"`
	}
	if err := c.get(ctx, "/trades", query, &out); err != nil {
		return nil, err
	}
	return out.Trades, nil
}

// SyncPnL asks the backend to pull realized PnL for accountID from its
// exchange and returns the backend's summary message
func (c *Client) SyncPnL(ctx context.Context, accountID uint) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	path := "/accounts/" + strconv.FormatUint(uint64(accountID), 10) + "/sync-pnl"
	if err := c.post(ctx, path, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) create(ctx context.Context, path string, cfg models.SignalConfig) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, path, cfg, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	return checkResponse(resp)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetResult(out)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", path, err)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return newAPIError(resp.StatusCode(), resp.Body())
}

func newAPIError(status int, raw []byte) *APIError {
	var body errorBody
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Error != "":
			msg = body.Error
		case body.Message != "":
			msg = body.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
