package engine

import (
	"context"
	"time"

	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

// DataProvider is the engine's contract with the market-data collaborator.
// Price maps contain entries only for symbols that actually traded on the
// given date; a missing symbol/date combination is absent, never an error.
// Genuine provider faults (network, storage) are returned as errors and
// propagated unmodified by the engine.
type DataProvider interface {
	// TradingCalendar returns the ordered trading dates driving the run,
	// ascending and without duplicates.
	TradingCalendar(ctx context.Context) ([]time.Time, error)
	ClosePrices(ctx context.Context, symbols []string, date time.Time) (map[string]decimal.Decimal, error)
	OpenPrices(ctx context.Context, symbols []string, date time.Time) (map[string]decimal.Decimal, error)
}

// Strategy is the decision policy. It is invoked once per simulated date and
// may return no orders at all. Any internal state (universe caches, score
// history) is the strategy's own responsibility.
type Strategy interface {
	OnDate(ctx context.Context, sctx StrategyContext) ([]types.Order, error)
}

// StrategyContext is what a strategy sees on one simulated date: the date
// itself, the shared data provider, and a read-only snapshot of the
// portfolio taken before any of this date's trades.
type StrategyContext struct {
	Date      time.Time
	Data      DataProvider
	Portfolio types.PortfolioView
}
