package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the side of an executed trade
type Side string

const (
	SideBuy   Side = "BUY"
	SideSell  Side = "SELL"
	SideClose Side = "CLOSE"
)

// OrderKind represents the kind of a bracket order attached to a trade
type OrderKind string

const (
	OrderKindStopLoss   OrderKind = "SL"
	OrderKindTakeProfit OrderKind = "TP"
)

// TriggerType represents what caused a trade to be placed
type TriggerType string

const (
	TriggerSignal    TriggerType = "signal"
	TriggerScheduled TriggerType = "scheduled"
)

// Account represents a trading account that can be used for chat and trades
type Account struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	IsActive bool   `json:"is_active"`
}

// RelatedOrder is a stop-loss or take-profit order attached to a parent trade
type RelatedOrder struct {
	Type     OrderKind       `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Trade represents an executed trade. Trades are identified by
// (TradeID, TradeTime) and are read-only once loaded.
type Trade struct {
	TradeID            int64           `json:"trade_id"`
	TradeTime          time.Time       `json:"trade_time"`
	AccountID          uint            `json:"account_id"`
	AccountName        string          `json:"account_name"`
	Symbol             string          `json:"symbol"`
	Side               Side            `json:"side"`
	Price              decimal.Decimal `json:"price"`
	Quantity           decimal.Decimal `json:"quantity"`
	Notional           decimal.Decimal `json:"notional"`
	TriggerType        TriggerType     `json:"trigger_type,omitempty"`
	SignalPoolID       *uint           `json:"signal_pool_id,omitempty"`
	SignalPoolName     string          `json:"signal_pool_name,omitempty"`
	PromptTemplateName string          `json:"prompt_template_name,omitempty"`
	RelatedOrders      []RelatedOrder  `json:"related_orders,omitempty"`
}

