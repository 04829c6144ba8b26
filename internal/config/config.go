package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SIGNALDESK_"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Client    ClientConfig     `yaml:"client"`
	Log       LogConfig        `yaml:"log"`
	Sync      SyncConfig       `yaml:"sync"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port" default:"8080"`
	Host string `yaml:"host" default:"localhost"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strings.TrimPrefix(s.Port, ":")
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" default:"sqlite"`
	DSN    string `yaml:"dsn" default:"signal-desk.db"`
	// Debug logs every SQL statement
	Debug bool `yaml:"debug"`
}

// ClientConfig configures the terminal client
type ClientConfig struct {
	BaseURL string        `yaml:"base_url" default:"http://localhost:8080/api/v1"`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
	// AccountLogos maps account display names to a short logo
	AccountLogos map[string]string `yaml:"account_logos,omitempty"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"pretty"` // pretty or json
}

// SyncConfig configures realized PnL syncing from exchanges
type SyncConfig struct {
	Lookback time.Duration `yaml:"lookback" default:"168h"`
	Limit    int           `yaml:"limit" default:"500"`
	// Symbols are always synced in addition to symbols with realized PnL
	Symbols []string `yaml:"symbols,omitempty"`
}

// EndpointConfig represents a downstream endpoint configuration
type EndpointConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // telegram, wechat, dingtalk, webhook
	URL      string `yaml:"url"`
	Token    string `yaml:"token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
	IsActive bool   `yaml:"is_active" default:"true"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file, fills defaults and
// applies SIGNALDESK_* environment overrides
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "signal-desk.db"
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://localhost:8080/api/v1"
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "pretty"
	}
	if c.Sync.Lookback == 0 {
		c.Sync.Lookback = 7 * 24 * time.Hour
	}
	if c.Sync.Limit == 0 {
		c.Sync.Limit = 500
	}
}

// ApplyEnv applies SIGNALDESK_* overrides from the process environment
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"HOST":       &c.Server.Host,
		"PORT":       &c.Server.Port,
		"DB_DSN":     &c.Database.DSN,
		"API_URL":    &c.Client.BaseURL,
		"LOG_LEVEL":  &c.Log.Level,
		"LOG_FORMAT": &c.Log.Format,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "SYNC_LOOKBACK"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sSYNC_LOOKBACK: %w", EnvPrefix, err)
		}
		c.Sync.Lookback = d
	}

	for i := range c.Endpoints {
		c.Endpoints[i].Token = os.Expand(c.Endpoints[i].Token, envMapper(lookup))
		c.Endpoints[i].URL = os.Expand(c.Endpoints[i].URL, envMapper(lookup))
	}
	return nil
}

func envMapper(lookup func(string) (string, bool)) func(string) string {
	return func(key string) string {
		v, _ := lookup(key)
		return v
	}
}
