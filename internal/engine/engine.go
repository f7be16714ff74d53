package engine

import (
	"context"
	"errors"

	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

var (
	InsufficientDataErr = errors.New("not enough trading dates to run the backtest")
	InvalidCapitalErr   = errors.New("initial capital must be positive")
	NoProviderErr       = errors.New("data provider is required")
	NoStrategyErr       = errors.New("strategy is required")
)

// Engine wires a data provider, a decision policy and a fresh portfolio into
// one backtest run. Construct with NewEngine and call Run once; the engine is
// not meant to be reused across runs.
type Engine struct {
	data      DataProvider
	strategy  Strategy
	portfolio *portfolio

	showProgress bool
}

type Option func(*Engine)

// WithProgress enables the terminal progress bar during Run.
func WithProgress() Option {
	return func(e *Engine) { e.showProgress = true }
}

func NewEngine(data DataProvider, strategy Strategy, initialCapital decimal.Decimal, opts ...Option) (*Engine, error) {
	if data == nil {
		return nil, NoProviderErr
	}
	if strategy == nil {
		return nil, NoStrategyErr
	}
	if !initialCapital.IsPositive() {
		return nil, InvalidCapitalErr
	}
	e := &Engine{
		data:      data,
		strategy:  strategy,
		portfolio: newPortfolio(initialCapital),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the full simulation and returns the account value series.
// It fails before simulating anything when the calendar has fewer than two
// dates, and propagates strategy and provider errors unmodified. Degraded
// data (a symbol without a price on some date) never fails the run; affected
// trades and valuations are skipped instead.
func (e *Engine) Run(ctx context.Context) (*BacktestResult, error) {
	dates, err := e.data.TradingCalendar(ctx)
	if err != nil {
		return nil, err
	}
	if len(dates) < 2 {
		return nil, InsufficientDataErr
	}
	return e.run(ctx, dates)
}

// Snapshot returns a read-only view of the portfolio, typically inspected
// after Run to see the final holdings.
func (e *Engine) Snapshot() types.PortfolioView {
	return e.portfolio.snapshot()
}

// Summary values the current holdings with the given prices for inspection.
func (e *Engine) Summary(prices map[string]decimal.Decimal) []PositionSummary {
	return e.portfolio.summary(prices)
}
