package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager holds one connected broker per trading account
type Manager struct {
	brokers map[string]Broker
	mutex   sync.RWMutex
	logger  zerolog.Logger
}

// NewManager creates a new broker manager
func NewManager() *Manager {
	return &Manager{
		brokers: make(map[string]Broker),
		logger:  log.With().Str("component", "broker_manager").Logger(),
	}
}

// SetLogger sets a custom logger
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// AddBroker adds the broker of an account
func (m *Manager) AddBroker(account string, broker Broker) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if broker == nil {
		return fmt.Errorf("broker cannot be nil")
	}

	m.brokers[account] = broker
	m.logger.Info().Str("account", account).Str("exchange", broker.Name()).Msg("Added broker")
	return nil
}

// RemoveBroker closes and removes the broker of an account
func (m *Manager) RemoveBroker(account string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	broker, exists := m.brokers[account]
	if !exists {
		return fmt.Errorf("broker for account %s: %w", account, ErrBrokerNotFound)
	}

	if err := broker.Close(); err != nil {
		m.logger.Warn().Err(err).Str("account", account).Msg("Error closing broker")
	}

	delete(m.brokers, account)
	m.logger.Info().Str("account", account).Msg("Removed broker")
	return nil
}

// GetBroker retrieves the broker of an account
func (m *Manager) GetBroker(account string) (Broker, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	broker, exists := m.brokers[account]
	if !exists {
		return nil, fmt.Errorf("broker for account %s: %w", account, ErrBrokerNotFound)
	}

	return broker, nil
}

// InitializeBroker creates an exchange broker for an account and connects it
func (m *Manager) InitializeBroker(ctx context.Context, account, exchange string, credentials *Credentials, settings Settings) error {
	broker, err := Create(exchange)
	if err != nil {
		return fmt.Errorf("failed to create broker %s: %w", exchange, err)
	}

	if err := broker.Initialize(ctx, credentials, settings); err != nil {
		return fmt.Errorf("failed to initialize broker %s for account %s: %w", exchange, account, err)
	}

	if err := m.AddBroker(account, broker); err != nil {
		broker.Close()
		return fmt.Errorf("failed to add broker for account %s: %w", account, err)
	}

	return nil
}

// ExecuteOnBroker runs operation against the connected broker of an account
func (m *Manager) ExecuteOnBroker(ctx context.Context, account string, operation func(Broker) error) error {
	broker, err := m.GetBroker(account)
	if err != nil {
		return err
	}

	if !broker.IsConnected() {
		return fmt.Errorf("broker for account %s: %w", account, ErrNotConnected)
	}

	return operation(broker)
}

// Close closes all broker connections
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var errs []error
	for account, broker := range m.brokers {
		if err := broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close broker for account %s: %w", account, err))
		}
	}

	m.brokers = make(map[string]Broker)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing brokers: %v", errs)
	}

	return nil
}

// GetConnectedBrokers returns the sorted accounts whose broker is connected
func (m *Manager) GetConnectedBrokers() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var connected []string
	for account, broker := range m.brokers {
		if broker.IsConnected() {
			connected = append(connected, account)
		}
	}
	sort.Strings(connected)

	return connected
}
