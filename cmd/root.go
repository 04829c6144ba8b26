package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// options are the flags shared by every command
type options struct {
	configFile   string
	accountsFile string
	envFile      string
	logLevel     string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "signal-desk",
		Short: "Signal Desk - chat with a signal assistant and review trades",
		Long: `Signal Desk turns chat messages into trading signal proposals and lists
executed trades with realized PnL synced from the exchange.

Commands:
    serve     run the API backend
    chat      interactive chat with the signal assistant
    trades    list recent trades, optionally syncing PnL first`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.accountsFile, "accounts", "accounts.yaml", "Path to account configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newChatCmd(opts))
	rootCmd.AddCommand(newTradesCmd(opts))

	return rootCmd
}

// load reads .env, the configuration file and sets up logging. A missing
// configuration file falls back to defaults.
func (o *options) load() error {
	if err := config.LoadEnv(o.envFile); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(o.configFile)
	missing := errors.Is(err, fs.ErrNotExist)
	switch {
	case missing:
		cfg = config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "signal-desk",
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if missing {
		log.Warn().Str("file", o.configFile).Msg("Config file not found, using defaults")
	}

	o.cfg = cfg
	return nil
}
