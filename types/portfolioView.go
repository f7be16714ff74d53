package types

import "github.com/shopspring/decimal"

// PortfolioView is the read-only snapshot handed to decision policies. The
// live ledger is owned by the engine; policies express intent through Orders
// only.
type PortfolioView struct {
	Cash      decimal.Decimal
	Positions map[string]PositionSnapshot
}

type PositionSnapshot struct {
	Symbol   string
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// Symbols returns the held symbols in no particular order.
func (v PortfolioView) Symbols() []string {
	symbols := make([]string, 0, len(v.Positions))
	for sym := range v.Positions {
		symbols = append(symbols, sym)
	}
	return symbols
}
