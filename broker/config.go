package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultRequestTimeout = 30 * time.Second

// Config lists the exchange accounts to connect
type Config struct {
	Accounts []AccountConfig `yaml:"accounts" json:"accounts"`
	Default  Settings        `yaml:"default" json:"default"`
}

// AccountConfig represents the exchange connection of one trading account
type AccountConfig struct {
	Account     string      `yaml:"account" json:"account"`
	Exchange    string      `yaml:"exchange" json:"exchange"`
	Enabled     bool        `yaml:"enabled" json:"enabled"`
	Credentials Credentials `yaml:"credentials" json:"credentials"`
	Settings    Settings    `yaml:"settings" json:"settings"`
}

// ConfigManager connects the brokers described by a Config
type ConfigManager struct {
	config  *Config
	manager *Manager
	logger  zerolog.Logger
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(config *Config) *ConfigManager {
	return &ConfigManager{
		config:  config,
		manager: NewManager(),
		logger:  log.With().Str("component", "broker_config").Logger(),
	}
}

// SetLogger sets a custom logger
func (cm *ConfigManager) SetLogger(logger zerolog.Logger) {
	cm.logger = logger
	cm.manager.SetLogger(logger)
}

// GetManager returns the broker manager
func (cm *ConfigManager) GetManager() *Manager {
	return cm.manager
}

// InitializeBrokers connects every enabled account. An account that fails
// to connect does not prevent the others from connecting.
func (cm *ConfigManager) InitializeBrokers(ctx context.Context) error {
	if cm.config == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []error
	for i := range cm.config.Accounts {
		acc := &cm.config.Accounts[i]
		if !acc.Enabled {
			cm.logger.Debug().Str("account", acc.Account).Msg("Skipping disabled account")
			continue
		}

		if err := cm.initializeBroker(ctx, acc); err != nil {
			cm.logger.Error().Err(err).Str("account", acc.Account).Msg("Failed to initialize broker")
			errs = append(errs, fmt.Errorf("failed to initialize %s: %w", acc.Account, err))
			continue
		}

		cm.logger.Info().Str("account", acc.Account).Str("exchange", acc.Exchange).Msg("Initialized broker")
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to initialize some brokers: %v", errs)
	}

	return nil
}

func (cm *ConfigManager) initializeBroker(ctx context.Context, acc *AccountConfig) error {
	if err := validateCredentials(&acc.Credentials); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	settings := cm.settingsFor(acc)
	timeoutCtx, cancel := context.WithTimeout(ctx, settings.RequestTimeout)
	defer cancel()

	return cm.manager.InitializeBroker(timeoutCtx, acc.Account, acc.Exchange, &acc.Credentials, settings)
}

// settingsFor fills unset account settings from the defaults
func (cm *ConfigManager) settingsFor(acc *AccountConfig) Settings {
	s := acc.Settings
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = cm.config.Default.RequestTimeout
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = defaultRequestTimeout
	}
	if s.RetryAttempts <= 0 {
		s.RetryAttempts = cm.config.Default.RetryAttempts
	}
	if s.BaseURL == "" {
		s.BaseURL = cm.config.Default.BaseURL
	}
	return s
}

func validateCredentials(creds *Credentials) error {
	if creds.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidCredentials)
	}
	if creds.SecretKey == "" {
		return fmt.Errorf("%w: secret key is required", ErrInvalidCredentials)
	}
	return nil
}

// GetAccountConfig returns the configuration of an account
func (cm *ConfigManager) GetAccountConfig(account string) (*AccountConfig, error) {
	for i := range cm.config.Accounts {
		if cm.config.Accounts[i].Account == account {
			return &cm.config.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account %s not found in configuration", account)
}

// RetryAttempts returns the retry budget of an account's exchange calls
func (cm *ConfigManager) RetryAttempts(account string) int {
	acc, err := cm.GetAccountConfig(account)
	if err != nil {
		return cm.config.Default.RetryAttempts
	}
	return cm.settingsFor(acc).RetryAttempts
}

// BrokerHealth represents the health status of an account's broker
type BrokerHealth struct {
	Account   string `json:"account"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// GetHealthStatus returns the health of every enabled account in
// configuration order
func (cm *ConfigManager) GetHealthStatus(ctx context.Context) []BrokerHealth {
	var results []BrokerHealth
	for _, acc := range cm.config.Accounts {
		if !acc.Enabled {
			continue
		}
		health := BrokerHealth{Account: acc.Account}

		broker, err := cm.manager.GetBroker(acc.Account)
		switch {
		case err != nil:
			health.Error = err.Error()
		case !broker.IsConnected():
			health.Error = ErrNotConnected.Error()
		default:
			if err := broker.TestConnection(ctx); err != nil {
				health.Error = err.Error()
			} else {
				health.Connected = true
			}
		}
		results = append(results, health)
	}
	return results
}

// ReconnectBroker closes and reconnects the broker of an account
func (cm *ConfigManager) ReconnectBroker(ctx context.Context, account string) error {
	acc, err := cm.GetAccountConfig(account)
	if err != nil {
		return err
	}

	if !acc.Enabled {
		return fmt.Errorf("account %s is disabled", account)
	}

	if err := cm.manager.RemoveBroker(account); err != nil {
		cm.logger.Debug().Err(err).Str("account", account).Msg("No broker to remove")
	}

	return cm.initializeBroker(ctx, acc)
}

// Close closes all broker connections
func (cm *ConfigManager) Close() error {
	return cm.manager.Close()
}

// GetEnabledAccounts returns the sorted names of enabled accounts
func (cm *ConfigManager) GetEnabledAccounts() []string {
	var enabled []string
	for _, acc := range cm.config.Accounts {
		if acc.Enabled {
			enabled = append(enabled, acc.Account)
		}
	}
	sort.Strings(enabled)
	return enabled
}

// ValidateConfig validates the broker configuration
func (cm *ConfigManager) ValidateConfig() error {
	if cm.config == nil {
		return fmt.Errorf("configuration is nil")
	}

	seen := make(map[string]bool)
	for _, acc := range cm.config.Accounts {
		if acc.Account == "" {
			return fmt.Errorf("account name is required")
		}
		if seen[acc.Account] {
			return fmt.Errorf("duplicate account %s", acc.Account)
		}
		seen[acc.Account] = true

		if !acc.Enabled {
			continue
		}
		if _, ok := Registry[acc.Exchange]; !ok {
			return fmt.Errorf("account %s: exchange %q (supported: %s): %w",
				acc.Account, acc.Exchange, strings.Join(GetRegisteredBrokers(), ", "), ErrBrokerNotFound)
		}
		if err := validateCredentials(&acc.Credentials); err != nil {
			return fmt.Errorf("account %s: %w", acc.Account, err)
		}
	}

	return nil
}
