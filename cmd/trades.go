package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Cyvadra/signal-desk/internal/client"
	"github.com/Cyvadra/signal-desk/internal/tradelist"
	"github.com/spf13/cobra"
)

type tradesOptions struct {
	apiURL    string
	accountID uint
	sync      bool
	yes       bool
}

func newTradesCmd(opts *options) *cobra.Command {
	topts := &tradesOptions{}

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recent trades",
		Long: `List recent trades of every account, or of one account with --account.

With --sync the realized PnL of the account is pulled from the exchange
first, after a confirmation prompt unless --yes is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if topts.sync && topts.accountID == 0 {
				return errors.New("--sync requires --account")
			}
			if topts.apiURL == "" {
				topts.apiURL = opts.cfg.Client.BaseURL
			}
			api := client.New(topts.apiURL).SetTimeout(opts.cfg.Client.Timeout)
			logos := tradelist.LogoMap(opts.cfg.Client.AccountLogos)
			return runTrades(cmd.Context(), api, topts, logos, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&topts.apiURL, "api", "", "Backend API base URL (defaults to client.base_url)")
	cmd.Flags().UintVar(&topts.accountID, "account", 0, "Only list trades of this account id")
	cmd.Flags().BoolVar(&topts.sync, "sync", false, "Sync realized PnL of the account before listing")
	cmd.Flags().BoolVarP(&topts.yes, "yes", "y", false, "Skip the sync confirmation prompt")

	return cmd
}

func runTrades(ctx context.Context, api *client.Client, topts *tradesOptions, logos tradelist.LogoResolver, in io.Reader, out io.Writer) error {
	filter := tradelist.All
	if topts.accountID != 0 {
		filter = tradelist.Account(topts.accountID)
	}

	dialog := tradelist.NewSyncDialog(func(ctx context.Context) (string, error) {
		return api.SyncPnL(ctx, topts.accountID)
	})

	if topts.sync {
		name, err := accountName(ctx, api, topts.accountID)
		if err != nil {
			return err
		}

		dialog.Open()
		confirmed := topts.yes
		if !confirmed {
			fmt.Fprint(out, tradelist.RenderDialog(dialog, name)+" ")
			confirmed = readYes(in)
		}
		if confirmed {
			if err := dialog.Confirm(ctx); err != nil {
				return fmt.Errorf("failed to sync PnL: %w", err)
			}
		} else {
			dialog.Cancel()
		}
	}

	trades, err := api.ListTrades(ctx, topts.accountID)
	if err != nil {
		return fmt.Errorf("failed to list trades: %w", err)
	}

	fmt.Fprintln(out, tradelist.Render(tradelist.BuildView(trades, filter, logos)))
	if msg := tradelist.RenderDialog(dialog, ""); msg != "" {
		fmt.Fprintln(out, msg)
	}
	return nil
}

func accountName(ctx context.Context, api *client.Client, id uint) (string, error) {
	accounts, err := api.ListAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.ID == id {
			return a.Name, nil
		}
	}
	return "", fmt.Errorf("account %d not found", id)
}

func readYes(in io.Reader) bool {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
