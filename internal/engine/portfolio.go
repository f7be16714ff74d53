package engine

import (
	"errors"
	"sort"

	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

var InsufficientFundsErr = errors.New("insufficient cash to fill buy")

// portfolio tracks cash and open positions for a single backtest run. It is
// owned exclusively by the engine; strategies only ever see snapshots.
type portfolio struct {
	cash      decimal.Decimal
	positions map[string]*Position
}

type Position struct {
	Symbol   string
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// MarketValue returns Quantity × price. The caller is responsible for the
// validity of the price.
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

func (p *portfolio) getOrCreate(symbol string) *Position {
	pos := p.positions[symbol]
	if pos == nil {
		pos = &Position{Symbol: symbol}
		p.positions[symbol] = pos
	}
	return pos
}

func (p *portfolio) remove(symbol string) {
	delete(p.positions, symbol)
}

// totalValue returns cash plus the market value of every position that has a
// price in the lookup. Symbols without a price contribute zero; a missing
// price is a data gap, not an error.
func (p *portfolio) totalValue(prices map[string]decimal.Decimal) decimal.Decimal {
	value := p.cash
	for symbol, pos := range p.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		value = value.Add(pos.MarketValue(price))
	}
	return value
}

// buy is all-or-nothing: if the cost exceeds available cash it returns
// InsufficientFundsErr and leaves both cash and the position untouched.
// On success the average cost is the quantity-weighted blend of the old
// basis and the fill price.
func (p *portfolio) buy(symbol string, quantity, price decimal.Decimal) error {
	if !quantity.IsPositive() {
		return nil
	}
	cost := quantity.Mul(price)
	if cost.GreaterThan(p.cash) {
		return InsufficientFundsErr
	}
	pos := p.getOrCreate(symbol)
	totalCost := pos.AvgCost.Mul(pos.Quantity).Add(cost)
	pos.Quantity = pos.Quantity.Add(quantity)
	pos.AvgCost = totalCost.Div(pos.Quantity)
	p.cash = p.cash.Sub(cost)
	return nil
}

// sell clamps the quantity to the held amount, so selling more than held
// closes the position and selling an unheld symbol is a no-op. It never
// fails and cash can never go negative through it.
func (p *portfolio) sell(symbol string, quantity, price decimal.Decimal) {
	pos := p.getOrCreate(symbol)
	if quantity.GreaterThan(pos.Quantity) {
		quantity = pos.Quantity
	}
	proceeds := quantity.Mul(price)
	pos.Quantity = pos.Quantity.Sub(quantity)
	if pos.Quantity.IsZero() {
		pos.AvgCost = decimal.Zero
		p.remove(symbol)
	}
	p.cash = p.cash.Add(proceeds)
}

func (p *portfolio) snapshot() types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.PositionSnapshot, len(p.positions)),
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = types.PositionSnapshot{
			Symbol:   pos.Symbol,
			Quantity: pos.Quantity,
			AvgCost:  pos.AvgCost,
		}
	}
	return view
}

// PositionSummary is a read-only inspection row; it has no effect on the run.
type PositionSummary struct {
	Symbol      string
	Quantity    decimal.Decimal
	AvgCost     decimal.Decimal
	MarketPrice decimal.Decimal
	MarketValue decimal.Decimal
	Priced      bool
}

// summary lists held positions sorted by symbol, valued with the given
// prices. Positions without a price are reported with Priced=false.
func (p *portfolio) summary(prices map[string]decimal.Decimal) []PositionSummary {
	rows := make([]PositionSummary, 0, len(p.positions))
	for symbol, pos := range p.positions {
		row := PositionSummary{
			Symbol:   symbol,
			Quantity: pos.Quantity,
			AvgCost:  pos.AvgCost,
		}
		if price, ok := prices[symbol]; ok {
			row.MarketPrice = price
			row.MarketValue = pos.MarketValue(price)
			row.Priced = true
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}
