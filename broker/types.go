package broker

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents the side of an order or fill
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order
type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeLimit            OrderType = "LIMIT"
	OrderTypeStop             OrderType = "STOP"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfit       OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// PositionSide represents the side of a position for futures trading
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
	PositionSideBoth  PositionSide = "BOTH"
)

// Credentials represents the API credentials for a broker
type Credentials struct {
	APIKey     string `json:"api_key" yaml:"api_key"`
	SecretKey  string `json:"secret_key" yaml:"secret_key"`
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase,omitempty"` // For some exchanges like OKX
}

// Settings represents connection settings of a broker
type Settings struct {
	Testnet bool `json:"testnet" yaml:"testnet"`
	// BaseURL overrides the exchange endpoint
	BaseURL        string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	RetryAttempts  int           `json:"retry_attempts" yaml:"retry_attempts"`
}

// HistoryQuery selects account history
type HistoryQuery struct {
	// Symbol is required by exchanges that only list fills per symbol
	Symbol string
	Since  time.Time
	Limit  int
}

// Fill is an executed account trade
type Fill struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	PositionSide  PositionSide    `json:"position_side"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	QuoteQuantity decimal.Decimal `json:"quote_quantity"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	Commission    decimal.Decimal `json:"commission"`
	Time          time.Time       `json:"time"`
}

// IsClosing reports whether the fill realized PnL, which means it reduced
// an open position
func (f Fill) IsClosing() bool {
	return !f.RealizedPnL.IsZero()
}

// Income is a realized PnL entry of the account
type Income struct {
	TradeID int64           `json:"trade_id"`
	Symbol  string          `json:"symbol"`
	Asset   string          `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
	Time    time.Time       `json:"time"`
}

// Order represents an open order
type Order struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	Type          OrderType       `json:"type"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	PositionSide  PositionSide    `json:"position_side"`
	ReduceOnly    bool            `json:"reduce_only"`
	ClosePosition bool            `json:"close_position"`
	CreatedAt     time.Time       `json:"created_at"`
}

// IsStopLoss reports whether the order is a stop-loss bracket
func (o Order) IsStopLoss() bool {
	return o.Type == OrderTypeStop || o.Type == OrderTypeStopMarket
}

// IsTakeProfit reports whether the order is a take-profit bracket
func (o Order) IsTakeProfit() bool {
	return o.Type == OrderTypeTakeProfit || o.Type == OrderTypeTakeProfitMarket
}

// TriggerPrice is the stop price of a conditional order, or its limit price
func (o Order) TriggerPrice() decimal.Decimal {
	if !o.StopPrice.IsZero() {
		return o.StopPrice
	}
	return o.Price
}
