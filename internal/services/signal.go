package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrInvalidSignal is returned for configs that fail validation
var ErrInvalidSignal = errors.New("invalid signal config")

// SignalService persists signals and pools created from chat proposals
type SignalService struct {
	db      *gorm.DB
	forward *ForwardService
	logger  zerolog.Logger
}

// NewSignalService creates a new signal service
func NewSignalService(forward *ForwardService) *SignalService {
	return &SignalService{
		db:      database.GetDB(),
		forward: forward,
		logger:  log.With().Str("component", "signals").Logger(),
	}
}

// SetDB sets the database used by the service
func (s *SignalService) SetDB(db *gorm.DB) { s.db = db }

// SetLogger sets the logger for the signal service
func (s *SignalService) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// CreateSignal stores a single signal
func (s *SignalService) CreateSignal(cfg models.SignalConfig) (*models.SignalRecord, error) {
	if cfg.Type == "" {
		cfg.Type = models.ConfigTypeSignal
	}
	if cfg.IsPool() {
		return nil, fmt.Errorf("%w: expected a signal, got a pool", ErrInvalidSignal)
	}
	return s.create(cfg)
}

// CreatePool stores a signal pool
func (s *SignalService) CreatePool(cfg models.SignalConfig) (*models.SignalRecord, error) {
	if cfg.Type == "" {
		cfg.Type = models.ConfigTypePool
	}
	if !cfg.IsPool() {
		return nil, fmt.Errorf("%w: expected a pool, got %q", ErrInvalidSignal, cfg.Type)
	}
	return s.create(cfg)
}

// ListSignals returns stored signals and pools, newest first
func (s *SignalService) ListSignals() ([]models.SignalRecord, error) {
	var records []models.SignalRecord
	if err := s.db.Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return records, nil
}

func (s *SignalService) create(cfg models.SignalConfig) (*models.SignalRecord, error) {
	if !signals.IsValid(cfg) {
		return nil, ErrInvalidSignal
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signal config: %w", err)
	}

	record := &models.SignalRecord{
		Type:    cfg.Type,
		Name:    cfg.Name,
		Symbol:  cfg.Symbol,
		Payload: string(payload),
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save signal: %w", err)
	}
	s.logger.Info().Uint("id", record.ID).Str("type", string(record.Type)).Str("name", record.Name).Msg("Created signal")

	if s.forward != nil {
		if err := s.forward.ForwardSignal(record, cfg); err != nil {
			s.logger.Warn().Err(err).Msg("Signal not forwarded")
		}
	}
	return record, nil
}
