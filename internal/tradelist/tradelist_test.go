package tradelist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade(id int64) models.Trade {
	return models.Trade{
		TradeID:     id,
		TradeTime:   time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
		AccountID:   1,
		AccountName: "Main",
		Symbol:      "BTCUSDT",
		Side:        models.SideBuy,
		Price:       decimal.RequireFromString("64000.456"),
		Quantity:    decimal.RequireFromString("0.0123456"),
		Notional:    decimal.RequireFromString("790.1"),
	}
}

func TestBuildViewTruncates(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 21, 45} {
		trades := make([]models.Trade, n)
		for i := range trades {
			trades[i] = sampleTrade(int64(n - i))
		}

		view := buildView(trades, All, nil, time.UTC)

		want := n
		if want > MaxRows {
			want = MaxRows
		}
		require.Len(t, view.Rows, want, "n=%d", n)
		assert.Equal(t, n, view.Total)
		for i, row := range view.Rows {
			assert.Equal(t, trades[i].TradeID, row.TradeID, "order preserved")
		}
	}
}

func TestSideColor(t *testing.T) {
	tests := []struct {
		side models.Side
		want Color
	}{
		{models.SideBuy, ColorEmerald},
		{models.SideSell, ColorRed},
		{models.SideClose, ColorBlue},
		{"buy", ColorGray},
		{"", ColorGray},
		{"LIQUIDATION", ColorGray},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SideColor(tt.side), "side %q", tt.side)
	}

	assert.Equal(t, ColorRed, OrderColor(models.OrderKindStopLoss))
	assert.Equal(t, ColorGreen, OrderColor(models.OrderKindTakeProfit))
	assert.Equal(t, ColorGray, OrderColor("TRAIL"))
}

func TestBuildRowFormatting(t *testing.T) {
	poolID := uint(12)
	trade := sampleTrade(1)
	trade.TriggerType = models.TriggerSignal
	trade.SignalPoolID = &poolID
	trade.PromptTemplateName = "momentum"
	trade.RelatedOrders = []models.RelatedOrder{
		{Type: models.OrderKindStopLoss, Price: decimal.RequireFromString("62000"), Quantity: decimal.RequireFromString("0.0123")},
		{Type: models.OrderKindTakeProfit, Price: decimal.RequireFromString("70000.129"), Quantity: decimal.RequireFromString("0.0123")},
	}

	view := buildView([]models.Trade{trade}, All, LogoMap{"Main": "[B]"}, time.UTC)
	require.Len(t, view.Rows, 1)
	row := view.Rows[0]

	assert.Equal(t, "2024-03-09 14:05:07", row.Time)
	assert.Equal(t, "64000.46", row.Price)
	assert.Equal(t, "0.0123", row.Quantity)
	assert.Equal(t, "790.10", row.Notional)
	assert.Equal(t, "BUY", row.Side)
	assert.Equal(t, ColorEmerald, row.SideColor)
	assert.Equal(t, "Pool: #12", row.TriggerBadge)
	assert.Equal(t, "Prompt: momentum", row.PromptBadge)
	assert.Equal(t, "Main", row.Account)
	assert.Equal(t, "[B]", row.Logo)

	require.Len(t, row.RelatedOrders, 2)
	assert.Equal(t, OrderRow{Kind: models.OrderKindStopLoss, Color: ColorRed, Price: "62000.00", Quantity: "0.0123"}, row.RelatedOrders[0])
	assert.Equal(t, "70000.13", row.RelatedOrders[1].Price)
	assert.Equal(t, ColorGreen, row.RelatedOrders[1].Color)
}

func TestTriggerBadge(t *testing.T) {
	trade := sampleTrade(1)
	assert.Empty(t, triggerBadge(trade))

	trade.TriggerType = models.TriggerScheduled
	assert.Equal(t, "Scheduled", triggerBadge(trade))

	trade.TriggerType = models.TriggerSignal
	trade.SignalPoolName = "Squeeze"
	assert.Equal(t, "Pool: Squeeze", triggerBadge(trade))
}

func TestBuildViewSingleAccountSuppressesLabels(t *testing.T) {
	view := buildView([]models.Trade{sampleTrade(1)}, Account(1), LogoMap{"Main": "[B]"}, time.UTC)

	assert.False(t, view.ShowAccount)
	assert.Empty(t, view.Rows[0].Account)
	assert.Empty(t, view.Rows[0].Logo)
	assert.NotContains(t, Render(view), "Main")
}

func TestRender(t *testing.T) {
	trades := make([]models.Trade, 25)
	for i := range trades {
		trades[i] = sampleTrade(int64(i))
	}
	trades[0].RelatedOrders = []models.RelatedOrder{{Type: models.OrderKindTakeProfit, Price: decimal.NewFromInt(70000), Quantity: decimal.RequireFromString("0.5")}}

	out := Render(buildView(trades, All, nil, time.UTC))
	assert.Contains(t, out, "Recent Trades (latest 20 of 25)")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "price 64000.46")
	assert.Contains(t, out, "TP @ 70000.00  qty 0.5000")
	assert.Contains(t, out, "Main")

	assert.Contains(t, Render(View{ShowAccount: true}), "No trades yet")
}

func TestSyncDialog(t *testing.T) {
	calls := 0
	dialog := NewSyncDialog(func(ctx context.Context) (string, error) {
		calls++
		return "Synced 4 trades", nil
	})

	assert.ErrorIs(t, dialog.Confirm(context.Background()), ErrDialogClosed)

	dialog.Open()
	assert.True(t, dialog.IsOpen())
	assert.Contains(t, RenderDialog(dialog, "Main"), "Sync realized PnL for Main")
	dialog.Cancel()
	assert.False(t, dialog.IsOpen())
	assert.Zero(t, calls)

	dialog.Open()
	require.NoError(t, dialog.Confirm(context.Background()))
	assert.False(t, dialog.IsOpen())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Synced 4 trades", dialog.Result())
	assert.Contains(t, RenderDialog(dialog, "Main"), "Synced 4 trades")

	assert.ErrorIs(t, dialog.Confirm(context.Background()), ErrDialogClosed)
	assert.Equal(t, 1, calls, "confirm runs the action once")

	dialog.SetResult("external message")
	assert.Equal(t, "external message", dialog.Result())
}

func TestSyncDialogActionError(t *testing.T) {
	calls := 0
	dialog := NewSyncDialog(func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("exchange unavailable")
	})

	dialog.Open()
	assert.EqualError(t, dialog.Confirm(context.Background()), "exchange unavailable")
	assert.False(t, dialog.IsOpen())
	assert.Equal(t, 1, calls)
	assert.Empty(t, dialog.Result())
}
