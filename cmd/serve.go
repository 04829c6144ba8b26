package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cyvadra/signal-desk/broker"
	_ "github.com/Cyvadra/signal-desk/broker/binance"
	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/handlers"
	"github.com/Cyvadra/signal-desk/internal/logger"
	"github.com/Cyvadra/signal-desk/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API backend",
		Long: `Run the chat, signal and trade API.

Exchange connections are opened for every active account in the account
file that has credentials; POST /api/v1/accounts/{id}/sync-pnl pulls its
trades and realized PnL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *options) error {
	cfg := opts.cfg

	if err := database.InitDatabase(cfg.Database.DSN, database.Options{Debug: cfg.Database.Debug}); err != nil {
		return err
	}

	accounts, err := loadAccounts(opts.accountsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := handlers.NewHandler()
	h.SetConfig(cfg)
	h.SetAccountConfig(accounts)
	if err := h.Accounts().SyncFromConfig(accounts); err != nil {
		return fmt.Errorf("failed to sync accounts: %w", err)
	}

	brokers := broker.NewConfigManager(accounts.BrokerConfig(broker.Settings{RetryAttempts: 3}))
	brokers.SetLogger(logger.Component("brokers"))
	if err := brokers.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid account file %s: %w", opts.accountsFile, err)
	}
	if err := brokers.InitializeBrokers(ctx); err != nil {
		log.Warn().Err(err).Msg("Some exchange connections failed")
	}
	defer brokers.Close()
	log.Info().
		Strs("enabled", brokers.GetEnabledAccounts()).
		Strs("connected", brokers.GetManager().GetConnectedBrokers()).
		Msg("Exchange accounts ready")
	h.SetBrokers(brokers)
	defer h.Close()

	gin.SetMode(gin.ReleaseMode)
	accessLog := logger.Component("http")
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: routes.NewRouter(h, &accessLog),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		log.Info().Msgf("Chat stream endpoint: http://%s%s/chat-stream", srv.Addr, routes.APIPrefix)
		log.Info().Msgf("Health check: http://%s/health", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadAccounts reads the account file; a missing file means no accounts
func loadAccounts(filename string) (*config.AccountConfig, error) {
	accounts, err := config.LoadAccountConfig(filename)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("file", filename).Msg("Account file not found, serving without accounts")
		return &config.AccountConfig{}, nil
	}
	return accounts, err
}
