package engine

import (
	"context"
	"errors"
	"time"

	"dailybacktest/types"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// run drives the calendar. For each date pair (current, next): ask the
// strategy for orders on current, rebalance against current's closing
// prices, then mark the account to market on next's opening prices. The
// first calendar date only seeds the initial decision, so an n-date calendar
// yields n-1 equity points.
func (e *Engine) run(ctx context.Context, dates []time.Time) (*BacktestResult, error) {
	points := make([]types.EquityPoint, 0, len(dates)-1)

	var bar *progressbar.ProgressBar
	if e.showProgress {
		bar = initProgressBar(len(dates) - 1)
	}

	for i := 0; i < len(dates)-1; i++ {
		current, next := dates[i], dates[i+1]

		sctx := StrategyContext{
			Date:      current,
			Data:      e.data,
			Portfolio: e.portfolio.snapshot(),
		}
		orders, err := e.strategy.OnDate(ctx, sctx)
		if err != nil {
			return nil, err
		}

		if err := e.executeOrders(ctx, current, orders); err != nil {
			return nil, err
		}

		value, err := e.markToMarket(ctx, next)
		if err != nil {
			return nil, err
		}
		points = append(points, types.EquityPoint{Date: next, AccountValue: value})

		if bar != nil {
			bar.Add(1)
		}
	}
	return &BacktestResult{Points: points}, nil
}

// executeOrders translates target-percent orders into trades against the
// date's closing prices. Orders are processed in the order the strategy
// returned them, so earlier buys consume cash that later orders can no
// longer spend. There is no two-pass reconciliation; the ordering
// sensitivity is intentional.
func (e *Engine) executeOrders(ctx context.Context, date time.Time, orders []types.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderSymbols := uniqueOrderSymbols(orders)
	closePrices, err := e.data.ClosePrices(ctx, orderSymbols, date)
	if err != nil {
		return err
	}
	if len(closePrices) == 0 {
		// Nothing ordered traded today; treat as a no-trade day.
		return nil
	}

	// Size trades against the account value under today's closes for the
	// union of held and ordered symbols. Held positions that did not trade
	// today count as zero in this one computation; mark-to-market still
	// values them via next-day opens.
	valuationPrices, err := e.data.ClosePrices(ctx, e.heldAndOrdered(orderSymbols), date)
	if err != nil {
		return err
	}
	totalValue := e.portfolio.totalValue(valuationPrices)

	for _, order := range orders {
		price, ok := closePrices[order.Symbol]
		if !ok {
			continue
		}
		targetValue := totalValue.Mul(order.TargetPercent)
		currentValue := decimal.Zero
		if pos, held := e.portfolio.positions[order.Symbol]; held {
			currentValue = pos.MarketValue(price)
		}
		quantity := targetValue.Sub(currentValue).Div(price)

		switch {
		case quantity.IsPositive():
			err := e.portfolio.buy(order.Symbol, quantity, price)
			if errors.Is(err, InsufficientFundsErr) {
				// Best-effort rebalancing: skip what we cannot afford and
				// keep the run going.
				continue
			}
			if err != nil {
				return err
			}
		case quantity.IsNegative():
			e.portfolio.sell(order.Symbol, quantity.Neg(), price)
		}
	}
	return nil
}

// markToMarket values the account on next's opening prices. A held symbol
// with no open that day is frozen, not liquidated: it contributes zero until
// it trades again.
func (e *Engine) markToMarket(ctx context.Context, next time.Time) (decimal.Decimal, error) {
	held := make([]string, 0, len(e.portfolio.positions))
	for symbol := range e.portfolio.positions {
		held = append(held, symbol)
	}
	openPrices, err := e.data.OpenPrices(ctx, held, next)
	if err != nil {
		return decimal.Zero, err
	}
	return e.portfolio.totalValue(openPrices), nil
}

func (e *Engine) heldAndOrdered(orderSymbols []string) []string {
	seen := make(map[string]bool, len(e.portfolio.positions)+len(orderSymbols))
	all := make([]string, 0, len(e.portfolio.positions)+len(orderSymbols))
	for symbol := range e.portfolio.positions {
		seen[symbol] = true
		all = append(all, symbol)
	}
	for _, symbol := range orderSymbols {
		if !seen[symbol] {
			seen[symbol] = true
			all = append(all, symbol)
		}
	}
	return all
}

func uniqueOrderSymbols(orders []types.Order) []string {
	seen := make(map[string]bool, len(orders))
	symbols := make([]string, 0, len(orders))
	for _, order := range orders {
		if !seen[order.Symbol] {
			seen[order.Symbol] = true
			symbols = append(symbols, order.Symbol)
		}
	}
	return symbols
}

func initProgressBar(days int) *progressbar.ProgressBar {
	return progressbar.NewOptions(days,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Simulating trading days..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
