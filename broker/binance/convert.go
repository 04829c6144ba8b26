package binance

import (
	"strconv"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/adshao/go-binance/v2/futures"
)

func convertAccountTrade(t *futures.AccountTrade) broker.Fill {
	return broker.Fill{
		ID:            t.ID,
		OrderID:       t.OrderID,
		Symbol:        t.Symbol,
		Side:          convertFromBinanceSide(t.Side),
		PositionSide:  convertPositionSideFromString(string(t.PositionSide)),
		Price:         broker.ParseDecimal(t.Price),
		Quantity:      broker.ParseDecimal(t.Quantity),
		QuoteQuantity: broker.ParseDecimal(t.QuoteQuantity),
		RealizedPnL:   broker.ParseDecimal(t.RealizedPnl),
		Commission:    broker.ParseDecimal(t.Commission),
		Time:          broker.UnixMilli(t.Time),
	}
}

func convertIncome(in *futures.IncomeHistory) broker.Income {
	tradeID, _ := strconv.ParseInt(in.TradeID, 10, 64)
	return broker.Income{
		TradeID: tradeID,
		Symbol:  in.Symbol,
		Asset:   in.Asset,
		Amount:  broker.ParseDecimal(in.Income),
		Time:    broker.UnixMilli(in.Time),
	}
}

func convertOrder(o *futures.Order) broker.Order {
	return broker.Order{
		ID:            strconv.FormatInt(o.OrderID, 10),
		Symbol:        o.Symbol,
		Side:          convertFromBinanceSide(o.Side),
		Type:          broker.OrderType(o.Type),
		Price:         broker.ParseDecimal(o.Price),
		StopPrice:     broker.ParseDecimal(o.StopPrice),
		Quantity:      broker.ParseDecimal(o.OrigQuantity),
		PositionSide:  convertPositionSideFromString(string(o.PositionSide)),
		ReduceOnly:    o.ReduceOnly,
		ClosePosition: o.ClosePosition,
		CreatedAt:     broker.UnixMilli(o.Time),
	}
}

func convertPositionSideFromString(side string) broker.PositionSide {
	switch side {
	case "LONG":
		return broker.PositionSideLong
	case "SHORT":
		return broker.PositionSideShort
	default:
		return broker.PositionSideBoth
	}
}

func convertFromBinanceSide(side futures.SideType) broker.OrderSide {
	switch side {
	case futures.SideTypeBuy:
		return broker.OrderSideBuy
	case futures.SideTypeSell:
		return broker.OrderSideSell
	default:
		return broker.OrderSide(side)
	}
}
