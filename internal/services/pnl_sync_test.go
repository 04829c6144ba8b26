package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/Cyvadra/signal-desk/broker/brokertest"
	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var syncNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type syncFixture struct {
	db      *gorm.DB
	svc     *PnLSyncService
	brokers *broker.ConfigManager
	broker  *brokertest.MockBroker
	account *models.AccountRecord
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db := newTestDB(t)

	accounts := NewAccountService()
	accounts.SetDB(db)
	account := seedAccount(t, db, "main", true)

	mb := new(brokertest.MockBroker)
	mb.On("Name").Return("binance").Maybe()
	mb.On("IsConnected").Return(true).Maybe()

	brokers := broker.NewConfigManager(&broker.Config{
		Default: broker.Settings{RetryAttempts: 3},
		Accounts: []broker.AccountConfig{
			{Account: "main", Exchange: "binance", Enabled: true, Settings: broker.Settings{RetryAttempts: 2}},
		},
	})
	require.NoError(t, brokers.GetManager().AddBroker("main", mb))

	cfg := config.Default()
	cfg.Sync.Lookback = 24 * time.Hour
	cfg.Sync.Limit = 100

	svc := NewPnLSyncService(accounts, brokers)
	svc.SetDB(db)
	svc.SetConfig(cfg)
	svc.SetRetryDelay(time.Millisecond)
	svc.now = func() time.Time { return syncNow }

	return &syncFixture{db: db, svc: svc, brokers: brokers, broker: mb, account: account}
}

func TestPnLSyncUpsertsTrades(t *testing.T) {
	f := newSyncFixture(t)
	since := syncNow.Add(-24 * time.Hour)

	f.svc.SetAccountConfig(&config.AccountConfig{Accounts: []config.AccountEntry{
		{Name: "main", Symbols: []string{"eth-usdt"}},
	}})

	f.broker.On("GetRealizedPnL", mock.Anything, broker.HistoryQuery{Since: since, Limit: 100}).
		Return([]broker.Income{{TradeID: 11, Symbol: "BTCUSDT", Amount: dec("12.5"), Time: syncNow.Add(-time.Hour)}}, nil)

	f.broker.On("GetFills", mock.Anything, broker.HistoryQuery{Symbol: "BTCUSDT", Since: since, Limit: 100}).
		Return([]broker.Fill{
			{ID: 10, Symbol: "BTCUSDT", Side: broker.OrderSideBuy, Price: dec("60000"), Quantity: dec("0.02"),
				QuoteQuantity: dec("1200"), Time: syncNow.Add(-2 * time.Hour)},
			{ID: 11, Symbol: "BTCUSDT", Side: broker.OrderSideSell, Price: dec("60625"), Quantity: dec("0.01"),
				RealizedPnL: dec("12.5"), Time: syncNow.Add(-time.Hour)},
		}, nil)
	f.broker.On("GetFills", mock.Anything, broker.HistoryQuery{Symbol: "ETHUSDT", Since: since, Limit: 100}).
		Return([]broker.Fill{
			{ID: 20, Symbol: "ETHUSDT", Side: broker.OrderSideSell, Price: dec("3000"), Quantity: dec("0.5"),
				Time: syncNow.Add(-3 * time.Hour)},
		}, nil)

	f.broker.On("GetOpenOrders", mock.Anything, "BTCUSDT").Return([]broker.Order{
		{ID: "1", Symbol: "BTCUSDT", Type: broker.OrderTypeStopMarket, StopPrice: dec("58000"), ClosePosition: true},
		{ID: "2", Symbol: "BTCUSDT", Type: broker.OrderTypeTakeProfit, Price: dec("65000"), StopPrice: dec("64900"), Quantity: dec("0.01")},
		{ID: "3", Symbol: "BTCUSDT", Type: broker.OrderTypeLimit, Price: dec("50000"), Quantity: dec("0.01")},
	}, nil)
	f.broker.On("GetOpenOrders", mock.Anything, "ETHUSDT").Return([]broker.Order{}, nil)

	msg, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Synced 3 trades across 2 symbols", msg)

	trades := NewTradeService()
	trades.SetDB(f.db)
	list, err := trades.ListTrades(f.account.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	closing := list[0]
	assert.Equal(t, int64(11), closing.TradeID)
	assert.Equal(t, models.SideClose, closing.Side)
	assert.True(t, closing.Notional.Equal(dec("606.25")))
	require.Len(t, closing.RelatedOrders, 2)
	assert.Equal(t, models.OrderKindStopLoss, closing.RelatedOrders[0].Type)
	assert.True(t, closing.RelatedOrders[0].Price.Equal(dec("58000")))
	assert.True(t, closing.RelatedOrders[0].Quantity.Equal(dec("0.01")))
	assert.Equal(t, models.OrderKindTakeProfit, closing.RelatedOrders[1].Type)
	assert.True(t, closing.RelatedOrders[1].Price.Equal(dec("64900")))

	assert.Equal(t, models.SideBuy, list[1].Side)
	assert.Empty(t, list[1].RelatedOrders)
	assert.Equal(t, models.SideSell, list[2].Side)

	account, err := f.svc.accounts.GetAccount(f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, account.LastSyncedAt)
	assert.True(t, account.LastSyncedAt.Equal(syncNow))
	f.broker.AssertExpectations(t)
}

func TestPnLSyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	f.svc.SetConfig(&config.Config{Sync: config.SyncConfig{Lookback: time.Hour, Limit: 10, Symbols: []string{"BTCUSDT"}}})

	f.broker.On("GetRealizedPnL", mock.Anything, mock.Anything).Return([]broker.Income{}, nil)
	f.broker.On("GetFills", mock.Anything, mock.Anything).Return([]broker.Fill{
		{ID: 1, Symbol: "BTCUSDT", Side: broker.OrderSideBuy, Price: dec("100"), Quantity: dec("1"), Time: syncNow},
	}, nil)
	f.broker.On("GetOpenOrders", mock.Anything, "BTCUSDT").Return([]broker.Order{
		{ID: "9", Symbol: "BTCUSDT", Type: broker.OrderTypeStop, StopPrice: dec("90"), Quantity: dec("1")},
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := f.svc.SyncAccount(context.Background(), f.account.ID)
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.TradeRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, f.db.Model(&models.RelatedOrderRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The second run starts from the last sync time
	f.broker.AssertCalled(t, "GetRealizedPnL", mock.Anything, mock.MatchedBy(func(q broker.HistoryQuery) bool {
		return q.Since.Equal(syncNow) && q.Limit == 10
	}))
}

func TestPnLSyncRetriesTemporaryErrors(t *testing.T) {
	f := newSyncFixture(t)

	rateLimited := broker.NewBrokerError("binance", "RATE_LIMIT", "too many requests", nil)
	f.broker.On("GetRealizedPnL", mock.Anything, mock.Anything).Return(nil, rateLimited).Once()
	f.broker.On("GetRealizedPnL", mock.Anything, mock.Anything).Return([]broker.Income{}, nil).Once()

	msg, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Synced 0 trades across 0 symbols", msg)
	f.broker.AssertNumberOfCalls(t, "GetRealizedPnL", 2)
}

func TestPnLSyncUsesAccountRetryAttempts(t *testing.T) {
	f := newSyncFixture(t)

	rateLimited := broker.NewBrokerError("binance", "RATE_LIMIT", "too many requests", nil)
	f.broker.On("GetRealizedPnL", mock.Anything, mock.Anything).Return(nil, rateLimited)

	_, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	require.Error(t, err)
	assert.True(t, broker.IsTemporaryError(err))
	// one call plus retry_attempts=2 retries from the account settings
	f.broker.AssertNumberOfCalls(t, "GetRealizedPnL", 3)
}

func TestPnLSyncDoesNotRetryPermanentErrors(t *testing.T) {
	f := newSyncFixture(t)

	invalid := broker.NewBrokerError("binance", "INVALID_SYMBOL", "invalid symbol", broker.ErrInvalidSymbol)
	f.broker.On("GetRealizedPnL", mock.Anything, mock.Anything).Return(nil, invalid)

	_, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	require.ErrorIs(t, err, broker.ErrInvalidSymbol)
	f.broker.AssertNumberOfCalls(t, "GetRealizedPnL", 1)
}

func TestPnLSyncReconnectsLostConnection(t *testing.T) {
	f := newSyncFixture(t)

	offline := new(brokertest.MockBroker)
	offline.On("Name").Return("reconnecting").Maybe()
	offline.On("IsConnected").Return(false)
	offline.On("Close").Return(nil)

	fresh := new(brokertest.MockBroker)
	fresh.On("Name").Return("reconnecting").Maybe()
	fresh.On("IsConnected").Return(true)
	fresh.On("Initialize", mock.Anything, &broker.Credentials{APIKey: "k", SecretKey: "s"}, mock.Anything).Return(nil)
	fresh.On("GetRealizedPnL", mock.Anything, mock.Anything).Return([]broker.Income{}, nil)

	broker.Register("reconnecting", func() broker.Broker { return fresh })
	t.Cleanup(func() { delete(broker.Registry, "reconnecting") })

	brokers := broker.NewConfigManager(&broker.Config{Accounts: []broker.AccountConfig{
		{Account: "main", Exchange: "reconnecting", Enabled: true, Credentials: broker.Credentials{APIKey: "k", SecretKey: "s"}},
	}})
	require.NoError(t, brokers.GetManager().AddBroker("main", offline))
	f.svc.SetBrokers(brokers)

	msg, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Synced 0 trades across 0 symbols", msg)
	offline.AssertCalled(t, "Close")
	fresh.AssertExpectations(t)

	got, err := brokers.GetManager().GetBroker("main")
	require.NoError(t, err)
	assert.Same(t, fresh, got)
}

func TestPnLSyncReconnectFailure(t *testing.T) {
	f := newSyncFixture(t)

	offline := new(brokertest.MockBroker)
	offline.On("Name").Return("binance").Maybe()
	offline.On("IsConnected").Return(false)
	offline.On("Close").Return(nil).Maybe()

	// no credentials, so reconnecting cannot succeed
	brokers := broker.NewConfigManager(&broker.Config{Accounts: []broker.AccountConfig{
		{Account: "main", Exchange: "binance", Enabled: true},
	}})
	require.NoError(t, brokers.GetManager().AddBroker("main", offline))
	f.svc.SetBrokers(brokers)

	_, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	assert.ErrorIs(t, err, ErrNoBroker)
}

func TestPnLSyncErrors(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.svc.SyncAccount(context.Background(), 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	other := seedAccount(t, f.db, "other", true)
	_, err = f.svc.SyncAccount(context.Background(), other.ID)
	assert.ErrorIs(t, err, ErrNoBroker)

	f.broker.On("GetRealizedPnL", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	_, err = f.svc.SyncAccount(context.Background(), f.account.ID)
	assert.ErrorContains(t, err, "boom")

	account, err := f.svc.accounts.GetAccount(f.account.ID)
	require.NoError(t, err)
	assert.Nil(t, account.LastSyncedAt)
}

func TestPnLSyncRejectsConcurrentRun(t *testing.T) {
	f := newSyncFixture(t)
	require.True(t, f.svc.acquire(f.account.ID))
	defer f.svc.release(f.account.ID)

	_, err := f.svc.SyncAccount(context.Background(), f.account.ID)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}
