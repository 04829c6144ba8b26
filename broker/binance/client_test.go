package binance

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFutures serves the subset of the USD-M futures REST API used by Client
func fakeFutures(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/time", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"serverTime":1710000000000}`))
	})
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "key", r.Header.Get("X-MBX-APIKEY"))
			assert.NotEmpty(t, r.URL.Query().Get("signature"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func connect(t *testing.T, srv *httptest.Server) broker.Broker {
	t.Helper()
	client := NewClient()
	err := client.Initialize(context.Background(),
		&broker.Credentials{APIKey: "key", SecretKey: "secret"},
		broker.Settings{BaseURL: srv.URL, RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, client.IsConnected())
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient()

	assert.NotNil(t, client)
	assert.Equal(t, "binance", client.Name())
	assert.False(t, client.IsConnected())
}

func TestClientInitialize(t *testing.T) {
	client := NewClient()

	err := client.Initialize(context.Background(), nil, broker.Settings{})
	assert.Equal(t, broker.ErrInvalidCredentials, err)

	err = client.Initialize(context.Background(), &broker.Credentials{}, broker.Settings{})
	assert.ErrorIs(t, err, broker.ErrInvalidCredentials)
	assert.False(t, client.IsConnected())

	_, err = client.GetFills(context.Background(), broker.HistoryQuery{Symbol: "BTCUSDT"})
	assert.ErrorIs(t, err, broker.ErrNotConnected)
}

func TestGetFills(t *testing.T) {
	srv := fakeFutures(t, map[string]string{
		"/fapi/v1/userTrades": `[
			{"buyer":false,"commission":"0.02","commissionAsset":"USDT","id":702,"maker":false,"orderId":91,"price":"65000.5","qty":"0.010","quoteQty":"650.005","realizedPnl":"12.5","side":"SELL","positionSide":"BOTH","symbol":"BTCUSDT","time":1710000300000},
			{"buyer":true,"commission":"0.01","commissionAsset":"USDT","id":701,"maker":true,"orderId":90,"price":"64000","qty":"0.010","quoteQty":"640","realizedPnl":"0","side":"BUY","positionSide":"BOTH","symbol":"BTCUSDT","time":1710000000000}
		]`,
	})
	client := connect(t, srv)

	_, err := client.GetFills(context.Background(), broker.HistoryQuery{})
	assert.ErrorIs(t, err, broker.ErrInvalidSymbol)

	fills, err := client.GetFills(context.Background(), broker.HistoryQuery{Symbol: "btc-usdt", Since: time.UnixMilli(1709990000000), Limit: 5000})
	require.NoError(t, err)
	require.Len(t, fills, 2)

	assert.Equal(t, int64(701), fills[0].ID, "sorted oldest first")
	assert.Equal(t, broker.OrderSideBuy, fills[0].Side)
	assert.False(t, fills[0].IsClosing())

	closing := fills[1]
	assert.Equal(t, "BTCUSDT", closing.Symbol)
	assert.Equal(t, broker.OrderSideSell, closing.Side)
	assert.True(t, closing.IsClosing())
	assert.True(t, decimal.RequireFromString("65000.5").Equal(closing.Price))
	assert.True(t, decimal.RequireFromString("650.005").Equal(closing.QuoteQuantity))
	assert.Equal(t, time.UnixMilli(1710000300000).UTC(), closing.Time)
}

func TestGetRealizedPnL(t *testing.T) {
	srv := fakeFutures(t, map[string]string{
		"/fapi/v1/income": `[
			{"symbol":"ETHUSDT","incomeType":"REALIZED_PNL","income":"-3.2","asset":"USDT","info":"","time":1710000500000,"tranId":9,"tradeId":"880"},
			{"symbol":"BTCUSDT","incomeType":"COMMISSION","income":"-0.1","asset":"USDT","info":"","time":1710000400000,"tranId":8,"tradeId":"702"},
			{"symbol":"BTCUSDT","incomeType":"REALIZED_PNL","income":"12.5","asset":"USDT","info":"","time":1710000300000,"tranId":7,"tradeId":"702"}
		]`,
	})
	client := connect(t, srv)

	income, err := client.GetRealizedPnL(context.Background(), broker.HistoryQuery{Limit: 100})
	require.NoError(t, err)
	require.Len(t, income, 2)
	assert.Equal(t, int64(702), income[0].TradeID)
	assert.Equal(t, "BTCUSDT", income[0].Symbol)
	assert.True(t, decimal.RequireFromString("12.5").Equal(income[0].Amount))
	assert.Equal(t, "ETHUSDT", income[1].Symbol)
}

func TestGetOpenOrders(t *testing.T) {
	srv := fakeFutures(t, map[string]string{
		"/fapi/v1/openOrders": `[
			{"symbol":"BTCUSDT","orderId":501,"price":"0","origQty":"0.010","type":"STOP_MARKET","side":"SELL","stopPrice":"62000","reduceOnly":true,"closePosition":false,"positionSide":"BOTH","time":1710000010000},
			{"symbol":"BTCUSDT","orderId":502,"price":"0","origQty":"0.010","type":"TAKE_PROFIT_MARKET","side":"SELL","stopPrice":"70000","reduceOnly":true,"positionSide":"BOTH","time":1710000010000},
			{"symbol":"BTCUSDT","orderId":503,"price":"60000","origQty":"0.020","type":"LIMIT","side":"BUY","stopPrice":"0","positionSide":"BOTH","time":1710000020000}
		]`,
	})
	client := connect(t, srv)

	orders, err := client.GetOpenOrders(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, "501", orders[0].ID)
	assert.True(t, orders[0].IsStopLoss())
	assert.True(t, decimal.NewFromInt(62000).Equal(orders[0].TriggerPrice()))
	assert.True(t, orders[1].IsTakeProfit())
	assert.False(t, orders[2].IsStopLoss())
	assert.False(t, orders[2].IsTakeProfit())
	assert.True(t, decimal.NewFromInt(60000).Equal(orders[2].TriggerPrice()))
}

func TestAPIErrorsAreClassified(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/time", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"serverTime":1710000000000}`))
	})
	mux.HandleFunc("/fapi/v1/income", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
	})
	mux.HandleFunc("/fapi/v1/openOrders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":-2015,"msg":"Invalid API-key"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	client := connect(t, srv)

	_, err := client.GetRealizedPnL(context.Background(), broker.HistoryQuery{})
	var brokerErr *broker.BrokerError
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, "RATE_LIMIT", brokerErr.Code)
	assert.True(t, broker.IsTemporaryError(err))

	_, err = client.GetOpenOrders(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, broker.ErrInvalidCredentials)
	assert.False(t, broker.IsTemporaryError(err))
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
		is        error
	}{
		{"rate limit", &common.APIError{Code: -1015, Message: "too many orders"}, broker.CodeRateLimit, true, nil},
		{"server busy", &common.APIError{Code: -1001, Message: "disconnected"}, broker.CodeServer, true, nil},
		{"stale timestamp", &common.APIError{Code: -1021, Message: "outside recvWindow"}, broker.CodeTimestamp, true, nil},
		{"bad symbol", &common.APIError{Code: -1121, Message: "Invalid symbol."}, broker.CodeInvalidSymbol, false, broker.ErrInvalidSymbol},
		{"bad key", &common.APIError{Code: -2014, Message: "API-key format invalid."}, broker.CodeInvalidCredentials, false, broker.ErrInvalidCredentials},
		{"other api error", &common.APIError{Code: -4000, Message: "nope"}, "INCOME_HISTORY_FAILED", false, nil},
		{"deadline", context.DeadlineExceeded, broker.CodeTimeout, true, broker.ErrTimeout},
		{"network", &net.DNSError{Err: "no such host", Name: "fapi.binance.com"}, broker.CodeNetwork, true, broker.ErrNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(name, "INCOME_HISTORY_FAILED", "Failed to get income history", tt.err)
			var brokerErr *broker.BrokerError
			require.ErrorAs(t, err, &brokerErr)
			assert.Equal(t, tt.code, brokerErr.Code)
			assert.Equal(t, tt.retryable, broker.IsRetryableError(err))
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestConversionFunctions(t *testing.T) {
	assert.Equal(t, broker.PositionSideLong, convertPositionSideFromString("LONG"))
	assert.Equal(t, broker.PositionSideShort, convertPositionSideFromString("SHORT"))
	assert.Equal(t, broker.PositionSideBoth, convertPositionSideFromString("BOTH"))

	assert.Equal(t, broker.OrderSideBuy, convertFromBinanceSide(futures.SideTypeBuy))
	assert.Equal(t, broker.OrderSideSell, convertFromBinanceSide(futures.SideTypeSell))

	in := convertIncome(&futures.IncomeHistory{TradeID: "", Income: "bad"})
	assert.Zero(t, in.TradeID)
	assert.True(t, in.Amount.IsZero())
	assert.True(t, in.Time.IsZero())
}

func TestBrokerRegistration(t *testing.T) {
	assert.Contains(t, broker.GetRegisteredBrokers(), "binance")

	b, err := broker.Create("binance")
	require.NoError(t, err)
	assert.Equal(t, "binance", b.Name())
}
