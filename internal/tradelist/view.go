// Package tradelist builds and renders the recent trades table.
package tradelist

import (
	"fmt"
	"time"

	"github.com/Cyvadra/signal-desk/internal/models"
)

// MaxRows is the maximum number of trades shown
const MaxRows = 20

const timeLayout = "2006-01-02 15:04:05"

// Color is a named display color
type Color string

const (
	ColorEmerald Color = "emerald"
	ColorRed     Color = "red"
	ColorBlue    Color = "blue"
	ColorGreen   Color = "green"
	ColorGray    Color = "gray"
)

// SideColor returns the display color of a trade side
func SideColor(side models.Side) Color {
	switch side {
	case models.SideBuy:
		return ColorEmerald
	case models.SideSell:
		return ColorRed
	case models.SideClose:
		return ColorBlue
	default:
		return ColorGray
	}
}

// OrderColor returns the badge color of a related order
func OrderColor(kind models.OrderKind) Color {
	switch kind {
	case models.OrderKindStopLoss:
		return ColorRed
	case models.OrderKindTakeProfit:
		return ColorGreen
	default:
		return ColorGray
	}
}

// Filter selects whose trades are listed. The zero value lists all accounts.
type Filter struct {
	AccountID uint
}

// All lists trades of every account
var All = Filter{}

// Account lists trades of a single account
func Account(id uint) Filter {
	return Filter{AccountID: id}
}

// IsAll reports whether the filter covers every account
func (f Filter) IsAll() bool {
	return f.AccountID == 0
}

// LogoResolver maps an account display name to a logo
type LogoResolver interface {
	Logo(accountName string) string
}

// LogoMap is a LogoResolver backed by a map
type LogoMap map[string]string

// Logo returns the logo registered for accountName
func (m LogoMap) Logo(accountName string) string {
	return m[accountName]
}

// OrderRow is a related stop-loss or take-profit order line
type OrderRow struct {
	Kind     models.OrderKind
	Color    Color
	Price    string
	Quantity string
}

// Row is one trade line
type Row struct {
	TradeID       int64
	Time          string
	Account       string
	Logo          string
	Symbol        string
	Side          string
	SideColor     Color
	Price         string
	Quantity      string
	Notional      string
	TriggerBadge  string
	PromptBadge   string
	RelatedOrders []OrderRow
}

// View is the renderable trade list
type View struct {
	ShowAccount bool
	Rows        []Row
	// Total is the number of trades before truncation.
	Total int
}

// BuildView builds the view of the first MaxRows trades in input order.
// Account labels and logos are only shown when the filter covers every
// account. The filter does not drop trades; the caller loads trades for the
// selected account.
func BuildView(trades []models.Trade, filter Filter, logos LogoResolver) View {
	return buildView(trades, filter, logos, time.Local)
}

func buildView(trades []models.Trade, filter Filter, logos LogoResolver, loc *time.Location) View {
	view := View{
		ShowAccount: filter.IsAll(),
		Total:       len(trades),
	}

	n := len(trades)
	if n > MaxRows {
		n = MaxRows
	}
	view.Rows = make([]Row, 0, n)
	for _, t := range trades[:n] {
		view.Rows = append(view.Rows, buildRow(t, view.ShowAccount, logos, loc))
	}
	return view
}

func buildRow(t models.Trade, showAccount bool, logos LogoResolver, loc *time.Location) Row {
	row := Row{
		TradeID:      t.TradeID,
		Time:         t.TradeTime.In(loc).Format(timeLayout),
		Symbol:       t.Symbol,
		Side:         string(t.Side),
		SideColor:    SideColor(t.Side),
		Price:        t.Price.StringFixed(2),
		Quantity:     t.Quantity.StringFixed(4),
		Notional:     t.Notional.StringFixed(2),
		TriggerBadge: triggerBadge(t),
	}
	if t.PromptTemplateName != "" {
		row.PromptBadge = "Prompt: " + t.PromptTemplateName
	}
	if showAccount {
		row.Account = t.AccountName
		if logos != nil {
			row.Logo = logos.Logo(t.AccountName)
		}
	}

	for _, o := range t.RelatedOrders {
		row.RelatedOrders = append(row.RelatedOrders, OrderRow{
			Kind:     o.Type,
			Color:    OrderColor(o.Type),
			Price:    o.Price.StringFixed(2),
			Quantity: o.Quantity.StringFixed(4),
		})
	}
	return row
}

func triggerBadge(t models.Trade) string {
	switch t.TriggerType {
	case models.TriggerSignal:
		if t.SignalPoolName != "" {
			return "Pool: " + t.SignalPoolName
		}
		if t.SignalPoolID != nil {
			return fmt.Sprintf("Pool: #%d", *t.SignalPoolID)
		}
		return ""
	case models.TriggerScheduled:
		return "Scheduled"
	default:
		return ""
	}
}
