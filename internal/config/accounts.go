package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Cyvadra/signal-desk/broker"
	"gopkg.in/yaml.v3"
)

// AccountConfig lists the trading accounts the backend serves
type AccountConfig struct {
	Accounts []AccountEntry `yaml:"accounts"`
}

// AccountEntry represents a single trading account
type AccountEntry struct {
	Name     string `yaml:"name"`
	Exchange string `yaml:"exchange"` // binance
	IsActive bool   `yaml:"is_active" default:"true"`
	// Testnet routes exchange calls to the exchange's test environment
	Testnet bool     `yaml:"testnet"`
	Symbols []string `yaml:"symbols,omitempty"`
	// RetryAttempts and RequestTimeout override the exchange defaults
	RetryAttempts  int              `yaml:"retry_attempts,omitempty"`
	RequestTimeout time.Duration    `yaml:"request_timeout,omitempty"`
	Credentials    CredentialConfig `yaml:"credentials"`
}

// CredentialConfig represents exchange credentials. Values may reference
// environment variables as ${NAME}.
type CredentialConfig struct {
	APIKey     string `yaml:"api_key"`
	SecretKey  string `yaml:"secret_key"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// LoadAccountConfig loads account configuration from a YAML file and
// expands environment references in credentials
func LoadAccountConfig(filename string) (*AccountConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read account config file: %w", err)
	}

	var config AccountConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse account config file: %w", err)
	}

	seen := make(map[string]bool, len(config.Accounts))
	for i := range config.Accounts {
		acc := &config.Accounts[i]
		if acc.Name == "" {
			return nil, fmt.Errorf("account %d has no name", i)
		}
		if seen[acc.Name] {
			return nil, fmt.Errorf("duplicate account name %q", acc.Name)
		}
		seen[acc.Name] = true

		acc.Credentials.APIKey = os.ExpandEnv(acc.Credentials.APIKey)
		acc.Credentials.SecretKey = os.ExpandEnv(acc.Credentials.SecretKey)
		acc.Credentials.Passphrase = os.ExpandEnv(acc.Credentials.Passphrase)
	}

	return &config, nil
}

// SaveAccountConfig saves account configuration to a YAML file
func SaveAccountConfig(config *AccountConfig, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal account config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write account config file: %w", err)
	}

	return nil
}

// GetAccount finds an account by name
func (ac *AccountConfig) GetAccount(name string) *AccountEntry {
	for i := range ac.Accounts {
		if ac.Accounts[i].Name == name {
			return &ac.Accounts[i]
		}
	}
	return nil
}

// ActiveAccounts returns the active accounts in file order
func (ac *AccountConfig) ActiveAccounts() []AccountEntry {
	var out []AccountEntry
	for _, a := range ac.Accounts {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out
}

// HasCredentials reports whether the account can reach its exchange
func (a *AccountEntry) HasCredentials() bool {
	return a.Credentials.APIKey != "" && a.Credentials.SecretKey != ""
}

// BrokerConfig describes the exchange connections of active accounts that
// have credentials
func (ac *AccountConfig) BrokerConfig(defaults broker.Settings) *broker.Config {
	cfg := &broker.Config{Default: defaults}
	for _, a := range ac.Accounts {
		cfg.Accounts = append(cfg.Accounts, broker.AccountConfig{
			Account:  a.Name,
			Exchange: a.Exchange,
			Enabled:  a.IsActive && a.HasCredentials(),
			Credentials: broker.Credentials{
				APIKey:     a.Credentials.APIKey,
				SecretKey:  a.Credentials.SecretKey,
				Passphrase: a.Credentials.Passphrase,
			},
			Settings: broker.Settings{
				Testnet:        a.Testnet,
				RetryAttempts:  a.RetryAttempts,
				RequestTimeout: a.RequestTimeout,
			},
		})
	}
	return cfg
}
