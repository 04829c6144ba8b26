package signals

var metricLabels = map[string]string{
	"oi_delta":          "OI Delta",
	"oi":                "Open Interest",
	"cvd":               "CVD",
	"funding":           "Funding Rate",
	"funding_rate":      "Funding Rate",
	"price_change":      "Price Change",
	"volume":            "Volume",
	"volatility":        "Volatility",
	"depth_ratio":       "Depth Ratio",
	"order_imbalance":   "Order Imbalance",
	"long_short_ratio":  "Long/Short Ratio",
	"liquidation":       "Liquidations",
	"taker_buy_ratio":   "Taker Buy Ratio",
	"taker_volume":      "Taker Volume",
	"spread":            "Spread",
	"basis":             "Basis",
	"rsi":               "RSI",
	"market_regime":     "Market Regime",
	"price_volatility":  "Price Volatility",
	"top_trader_ratio":  "Top Trader Ratio",
	"aggressor_ratio":   "Aggressor Ratio",
	"open_interest_usd": "Open Interest (USD)",
}

var operatorSymbols = map[string]string{
	"greater_than":       ">",
	"less_than":          "<",
	"greater_than_equal": ">=",
	"less_than_equal":    "<=",
	"gt":                 ">",
	"lt":                 "<",
	"gte":                ">=",
	"lte":                "<=",
	"eq":                 "=",
	"abs_greater_than":   "|x| >",
	"abs_less_than":      "|x| <",
	"crosses_above":      "crosses ↑",
	"crosses_below":      "crosses ↓",
}

// MetricLabel returns the display label for a metric code, or the code itself
func MetricLabel(code string) string {
	if label, ok := metricLabels[code]; ok {
		return label
	}
	return code
}

// OperatorSymbol returns the display symbol for an operator code, or the code itself
func OperatorSymbol(code string) string {
	if sym, ok := operatorSymbols[code]; ok {
		return sym
	}
	return code
}

// KnownMetric reports whether code is a metric with a display label
func KnownMetric(code string) bool {
	_, ok := metricLabels[code]
	return ok
}
