package binance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	name = "binance"

	testnetBaseURL = "https://testnet.binancefuture.com"

	// IncomeRealizedPnL is the income type of realized PnL entries
	IncomeRealizedPnL = "REALIZED_PNL"

	maxTradeLimit  = 1000
	maxIncomeLimit = 1000
)

// Client represents a Binance USD-M futures account
type Client struct {
	name        string
	client      *futures.Client
	credentials *broker.Credentials
	connected   bool
}

// NewClient creates a new Binance futures client
func NewClient() broker.Broker {
	return &Client{
		name:      name,
		connected: false,
	}
}

// Name returns the broker name
func (c *Client) Name() string {
	return c.name
}

// Initialize sets up the client with credentials and tests the connection
func (c *Client) Initialize(ctx context.Context, credentials *broker.Credentials, settings broker.Settings) error {
	if credentials == nil {
		return broker.ErrInvalidCredentials
	}

	if credentials.APIKey == "" || credentials.SecretKey == "" {
		return broker.NewBrokerError(c.name, broker.CodeInvalidCredentials, "API key and secret key are required", broker.ErrInvalidCredentials)
	}

	c.credentials = credentials
	c.client = futures.NewClient(credentials.APIKey, credentials.SecretKey)
	switch {
	case settings.BaseURL != "":
		c.client.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	case settings.Testnet:
		c.client.BaseURL = testnetBaseURL
	}
	if settings.RequestTimeout > 0 {
		c.client.HTTPClient = &http.Client{Timeout: settings.RequestTimeout}
	}

	if err := c.TestConnection(ctx); err != nil {
		return err
	}

	c.connected = true
	return nil
}

// TestConnection tests the connection to Binance
func (c *Client) TestConnection(ctx context.Context) error {
	if c.client == nil {
		return broker.ErrNotConnected
	}

	if _, err := c.client.NewServerTimeService().Do(ctx); err != nil {
		return wrapError(c.name, "CONNECTION_FAILED", "Failed to connect to Binance", err)
	}

	return nil
}

// GetFills returns the account trades of q.Symbol, oldest first
func (c *Client) GetFills(ctx context.Context, q broker.HistoryQuery) ([]broker.Fill, error) {
	if !c.connected {
		return nil, broker.ErrNotConnected
	}
	if q.Symbol == "" {
		return nil, broker.NewBrokerError(c.name, broker.CodeInvalidSymbol, "Account trades are listed per symbol", broker.ErrInvalidSymbol)
	}

	service := c.client.NewListAccountTradeService().Symbol(broker.NormalizeSymbol(q.Symbol))
	if !q.Since.IsZero() {
		service = service.StartTime(q.Since.UnixMilli())
	}
	if q.Limit > 0 {
		service = service.Limit(clampLimit(q.Limit, maxTradeLimit))
	}

	trades, err := service.Do(ctx)
	if err != nil {
		return nil, wrapError(c.name, "ACCOUNT_TRADES_FAILED", "Failed to list account trades", err)
	}

	fills := make([]broker.Fill, 0, len(trades))
	for _, t := range trades {
		fills = append(fills, convertAccountTrade(t))
	}
	sort.SliceStable(fills, func(i, j int) bool { return fills[i].Time.Before(fills[j].Time) })
	return fills, nil
}

// GetRealizedPnL returns realized PnL income entries, oldest first
func (c *Client) GetRealizedPnL(ctx context.Context, q broker.HistoryQuery) ([]broker.Income, error) {
	if !c.connected {
		return nil, broker.ErrNotConnected
	}

	service := c.client.NewGetIncomeHistoryService().IncomeType(IncomeRealizedPnL)
	if q.Symbol != "" {
		service = service.Symbol(broker.NormalizeSymbol(q.Symbol))
	}
	if !q.Since.IsZero() {
		service = service.StartTime(q.Since.UnixMilli())
	}
	if q.Limit > 0 {
		service = service.Limit(int64(clampLimit(q.Limit, maxIncomeLimit)))
	}

	income, err := service.Do(ctx)
	if err != nil {
		return nil, wrapError(c.name, "INCOME_HISTORY_FAILED", "Failed to get income history", err)
	}

	out := make([]broker.Income, 0, len(income))
	for _, in := range income {
		if in.IncomeType != IncomeRealizedPnL {
			continue
		}
		out = append(out, convertIncome(in))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// GetOpenOrders returns open orders of symbol, or of every symbol
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]broker.Order, error) {
	if !c.connected {
		return nil, broker.ErrNotConnected
	}

	service := c.client.NewListOpenOrdersService()
	if symbol != "" {
		service = service.Symbol(broker.NormalizeSymbol(symbol))
	}

	orders, err := service.Do(ctx)
	if err != nil {
		return nil, wrapError(c.name, "OPEN_ORDERS_FAILED", "Failed to get open orders", err)
	}

	result := make([]broker.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, convertOrder(o))
	}
	return result, nil
}

// IsConnected reports whether Initialize succeeded
func (c *Client) IsConnected() bool {
	return c.connected
}

// Close releases the client
func (c *Client) Close() error {
	c.connected = false
	c.client = nil
	return nil
}

func clampLimit(limit, max int) int {
	if limit > max {
		return max
	}
	return limit
}

// wrapError classifies Binance API errors so temporary failures can be retried
func wrapError(exchange, code, message string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003, -1015:
			code = broker.CodeRateLimit
		case -1000, -1001, -1006, -1007:
			code = broker.CodeServer
		case -1021:
			code = broker.CodeTimestamp
		case -1121:
			return broker.NewBrokerError(exchange, broker.CodeInvalidSymbol, apiErr.Message, broker.ErrInvalidSymbol)
		case -2014, -2015, -1022:
			return broker.NewBrokerError(exchange, broker.CodeInvalidCredentials, apiErr.Message, broker.ErrInvalidCredentials)
		}
		return broker.NewBrokerError(exchange, code, apiErr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return broker.NewBrokerError(exchange, broker.CodeTimeout, message, broker.ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return broker.NewBrokerError(exchange, broker.CodeNetwork, message, fmt.Errorf("%w: %v", broker.ErrNetworkError, err))
	}
	return broker.NewBrokerError(exchange, code, message, err)
}

// Register the Binance broker
func init() {
	broker.Register(name, NewClient)
}
