package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoBroker       = errors.New("no exchange connection for account")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// PnLSyncService pulls executed trades, realized PnL and bracket orders from
// the exchange of an account into the trade table
type PnLSyncService struct {
	db            *gorm.DB
	accounts      *AccountService
	brokers       *broker.ConfigManager
	config        *config.Config
	accountConfig *config.AccountConfig
	logger        zerolog.Logger

	retryDelay time.Duration
	now        func() time.Time

	mu      sync.Mutex
	running map[uint]bool
}

// NewPnLSyncService creates a new PnL sync service
func NewPnLSyncService(accounts *AccountService, brokers *broker.ConfigManager) *PnLSyncService {
	return &PnLSyncService{
		db:         database.GetDB(),
		accounts:   accounts,
		brokers:    brokers,
		config:     config.Default(),
		logger:     log.With().Str("component", "pnl_sync").Logger(),
		retryDelay: time.Second,
		now:        time.Now,
		running:    make(map[uint]bool),
	}
}

// SetDB sets the database used by the service
func (s *PnLSyncService) SetDB(db *gorm.DB) { s.db = db }

// SetBrokers sets the connected exchange accounts
func (s *PnLSyncService) SetBrokers(brokers *broker.ConfigManager) {
	s.brokers = brokers
}

// SetConfig sets the configuration for the sync service
func (s *PnLSyncService) SetConfig(cfg *config.Config) {
	s.config = cfg
}

// SetAccountConfig sets the account list providing per-account symbols
func (s *PnLSyncService) SetAccountConfig(cfg *config.AccountConfig) {
	s.accountConfig = cfg
}

// SetLogger sets the logger for the sync service
func (s *PnLSyncService) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetRetryDelay sets the base backoff delay of exchange calls. The number
// of retries comes from the account's retry_attempts setting.
func (s *PnLSyncService) SetRetryDelay(delay time.Duration) {
	s.retryDelay = delay
}

// SyncAccount syncs one account and returns a short summary
func (s *PnLSyncService) SyncAccount(ctx context.Context, accountID uint) (string, error) {
	account, err := s.accounts.GetAccount(accountID)
	if err != nil {
		return "", err
	}

	if !s.acquire(accountID) {
		return "", fmt.Errorf("%w: %s", ErrSyncInProgress, account.Name)
	}
	defer s.release(accountID)

	if s.brokers == nil {
		return "", fmt.Errorf("%w: %s", ErrNoBroker, account.Name)
	}

	var summary string
	run := func(b broker.Broker) error {
		var err error
		summary, err = s.syncWith(ctx, b, account)
		return err
	}

	manager := s.brokers.GetManager()
	err = manager.ExecuteOnBroker(ctx, account.Name, run)
	if errors.Is(err, broker.ErrNotConnected) {
		s.logger.Warn().Str("account", account.Name).Msg("Exchange connection lost, reconnecting")
		if rerr := s.brokers.ReconnectBroker(ctx, account.Name); rerr != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrNoBroker, account.Name, rerr)
		}
		err = manager.ExecuteOnBroker(ctx, account.Name, run)
	}
	if errors.Is(err, broker.ErrBrokerNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNoBroker, account.Name)
	}
	if err != nil {
		return "", err
	}
	return summary, nil
}

func (s *PnLSyncService) syncWith(ctx context.Context, b broker.Broker, account *models.AccountRecord) (string, error) {
	startedAt := s.now()
	since := startedAt.Add(-s.config.Sync.Lookback)
	if account.LastSyncedAt != nil {
		since = *account.LastSyncedAt
	}

	attempts := s.brokers.RetryAttempts(account.Name)
	retry := func(fn func() error) error {
		return broker.RetryWithBackoff(ctx, attempts, s.retryDelay, fn)
	}

	logger := s.logger.With().Str("account", account.Name).Time("since", since).Logger()
	logger.Info().Int("retry_attempts", attempts).Msg("Syncing realized PnL")

	var income []broker.Income
	err := retry(func() error {
		var err error
		income, err = b.GetRealizedPnL(ctx, broker.HistoryQuery{Since: since, Limit: s.config.Sync.Limit})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch realized PnL: %w", err)
	}

	symbols := s.symbolsFor(account.Name, income)
	synced := 0
	for _, symbol := range symbols {
		n, err := s.syncSymbol(ctx, retry, b, account, symbol, since)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to sync symbol")
			return "", fmt.Errorf("failed to sync %s: %w", symbol, err)
		}
		synced += n
	}

	if err := s.accounts.MarkSynced(account.ID, startedAt); err != nil {
		return "", fmt.Errorf("failed to mark account synced: %w", err)
	}

	logger.Info().Int("trades", synced).Int("symbols", len(symbols)).Msg("Synced realized PnL")
	return fmt.Sprintf("Synced %d trades across %d symbols", synced, len(symbols)), nil
}

func (s *PnLSyncService) syncSymbol(ctx context.Context, retry func(func() error) error, b broker.Broker, account *models.AccountRecord, symbol string, since time.Time) (int, error) {
	var fills []broker.Fill
	err := retry(func() error {
		var err error
		fills, err = b.GetFills(ctx, broker.HistoryQuery{Symbol: symbol, Since: since, Limit: s.config.Sync.Limit})
		return err
	})
	if err != nil {
		return 0, err
	}

	var orders []broker.Order
	err = retry(func() error {
		var err error
		orders, err = b.GetOpenOrders(ctx, symbol)
		return err
	})
	if err != nil {
		return 0, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(fills) > 0 {
			records := make([]models.TradeRecord, 0, len(fills))
			for _, f := range fills {
				records = append(records, tradeFromFill(account.ID, f))
			}
			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}, {Name: "trade_id"}, {Name: "symbol"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"trade_time", "side", "price", "quantity", "notional", "realized_pnl", "updated_at",
				}),
			}).Create(&records).Error; err != nil {
				return fmt.Errorf("failed to upsert trades: %w", err)
			}
		}
		return attachBrackets(tx, account.ID, symbol, orders)
	})
	if err != nil {
		return 0, err
	}
	return len(fills), nil
}

// attachBrackets replaces the bracket orders of the symbol's trades with the
// currently open ones, attached to the latest trade
func attachBrackets(tx *gorm.DB, accountID uint, symbol string, orders []broker.Order) error {
	tradeIDs := tx.Model(&models.TradeRecord{}).
		Select("id").
		Where("account_id = ? AND symbol = ?", accountID, symbol)
	if err := tx.Where("trade_record_id IN (?)", tradeIDs).Delete(&models.RelatedOrderRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear bracket orders: %w", err)
	}

	var latest models.TradeRecord
	err := tx.Where("account_id = ? AND symbol = ?", accountID, symbol).
		Order("trade_time DESC").Order("trade_id DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var related []models.RelatedOrderRecord
	for _, o := range orders {
		var kind models.OrderKind
		switch {
		case o.IsStopLoss():
			kind = models.OrderKindStopLoss
		case o.IsTakeProfit():
			kind = models.OrderKindTakeProfit
		default:
			continue
		}

		quantity := o.Quantity
		if quantity.IsZero() && o.ClosePosition {
			quantity = latest.Quantity
		}
		related = append(related, models.RelatedOrderRecord{
			TradeRecordID: latest.ID,
			Type:          kind,
			Price:         o.TriggerPrice(),
			Quantity:      quantity,
		})
	}

	if len(related) == 0 {
		return nil
	}
	if err := tx.Create(&related).Error; err != nil {
		return fmt.Errorf("failed to save bracket orders: %w", err)
	}
	return nil
}

func tradeFromFill(accountID uint, f broker.Fill) models.TradeRecord {
	side := models.Side(f.Side)
	if f.IsClosing() {
		side = models.SideClose
	}

	notional := f.QuoteQuantity
	if notional.IsZero() {
		notional = f.Price.Mul(f.Quantity)
	}

	return models.TradeRecord{
		AccountID:   accountID,
		TradeID:     f.ID,
		Symbol:      f.Symbol,
		TradeTime:   f.Time,
		Side:        side,
		Price:       f.Price,
		Quantity:    f.Quantity,
		Notional:    notional,
		RealizedPnL: f.RealizedPnL,
	}
}

// symbolsFor returns the symbols with realized PnL plus the configured ones
func (s *PnLSyncService) symbolsFor(account string, income []broker.Income) []string {
	seen := make(map[string]bool)
	add := func(symbol string) {
		if symbol = broker.NormalizeSymbol(symbol); symbol != "" {
			seen[symbol] = true
		}
	}

	for _, in := range income {
		add(in.Symbol)
	}
	for _, symbol := range s.config.Sync.Symbols {
		add(symbol)
	}
	if s.accountConfig != nil {
		if entry := s.accountConfig.GetAccount(account); entry != nil {
			for _, symbol := range entry.Symbols {
				add(symbol)
			}
		}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (s *PnLSyncService) acquire(accountID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[accountID] {
		return false
	}
	s.running[accountID] = true
	return true
}

func (s *PnLSyncService) release(accountID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, accountID)
}
