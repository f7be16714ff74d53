package types

import "github.com/shopspring/decimal"

// Order instructs the engine to bring a symbol to a target fraction of total
// portfolio value. A zero target closes the position. Orders are produced
// fresh by the decision policy on every simulated date and never persisted.
type Order struct {
	Symbol        string
	TargetPercent decimal.Decimal
}

func NewOrder(symbol string, targetPercent decimal.Decimal) Order {
	return Order{
		Symbol:        symbol,
		TargetPercent: targetPercent,
	}
}
