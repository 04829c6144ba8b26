package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrAccountNotFound is returned for unknown account ids
var ErrAccountNotFound = errors.New("account not found")

// AccountService handles trading account records
type AccountService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewAccountService creates a new account service
func NewAccountService() *AccountService {
	return &AccountService{
		db:     database.GetDB(),
		logger: log.With().Str("component", "accounts").Logger(),
	}
}

// SetDB sets the database used by the service
func (s *AccountService) SetDB(db *gorm.DB) { s.db = db }

// SyncFromConfig creates or updates an account record for every configured
// account. Records of accounts no longer configured are deactivated.
func (s *AccountService) SyncFromConfig(cfg *config.AccountConfig) error {
	if cfg == nil {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		names := make([]string, 0, len(cfg.Accounts))
		for _, entry := range cfg.Accounts {
			names = append(names, entry.Name)

			var record models.AccountRecord
			err := tx.Where("name = ?", entry.Name).First(&record).Error
			switch {
			case err == nil:
				record.Exchange = entry.Exchange
				record.IsActive = entry.IsActive
				if err := tx.Save(&record).Error; err != nil {
					return fmt.Errorf("failed to update account %s: %w", entry.Name, err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				record = models.AccountRecord{Name: entry.Name, Exchange: entry.Exchange, IsActive: entry.IsActive}
				if err := tx.Create(&record).Error; err != nil {
					return fmt.Errorf("failed to create account %s: %w", entry.Name, err)
				}
				// gorm skips zero values that have a column default on create
				if !entry.IsActive {
					if err := tx.Model(&record).Update("is_active", false).Error; err != nil {
						return fmt.Errorf("failed to create account %s: %w", entry.Name, err)
					}
				}
				s.logger.Info().Str("account", entry.Name).Msg("Created account")
			default:
				return fmt.Errorf("failed to query account %s: %w", entry.Name, err)
			}
		}

		query := tx.Model(&models.AccountRecord{}).Where("is_active = ?", true)
		if len(names) > 0 {
			query = query.Where("name NOT IN ?", names)
		}
		return query.Update("is_active", false).Error
	})
}

// ListAccounts returns all accounts ordered by id
func (s *AccountService) ListAccounts() ([]models.Account, error) {
	var records []models.AccountRecord
	if err := s.db.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]models.Account, 0, len(records))
	for _, r := range records {
		accounts = append(accounts, r.ToModel())
	}
	return accounts, nil
}

// GetAccount retrieves an account by id
func (s *AccountService) GetAccount(id uint) (*models.AccountRecord, error) {
	var record models.AccountRecord
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &record, nil
}

// MarkSynced records the time of the last successful PnL sync
func (s *AccountService) MarkSynced(id uint, at time.Time) error {
	return s.db.Model(&models.AccountRecord{}).Where("id = ?", id).Update("last_synced_at", at).Error
}
