package services

import (
	"fmt"

	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"gorm.io/gorm"
)

// TradeService reads executed trades
type TradeService struct {
	db *gorm.DB
}

// NewTradeService creates a new trade service
func NewTradeService() *TradeService {
	return &TradeService{
		db: database.GetDB(),
	}
}

// SetDB sets the database used by the service
func (s *TradeService) SetDB(db *gorm.DB) { s.db = db }

// ListTrades returns trades newest first. A zero accountID lists every
// account and a non-positive limit returns all trades.
func (s *TradeService) ListTrades(accountID uint, limit int) ([]models.Trade, error) {
	query := s.db.Model(&models.TradeRecord{}).
		Preload("Account").
		Preload("RelatedOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	if accountID != 0 {
		query = query.Where("account_id = ?", accountID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.TradeRecord
	if err := query.Order("trade_time DESC").Order("trade_id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	trades := make([]models.Trade, 0, len(records))
	for _, r := range records {
		trades = append(trades, r.ToModel())
	}
	return trades, nil
}
