// Package momentum ranks an index universe by trailing close-to-close
// return and holds the top names at equal weight.
package momentum

import (
	"context"
	"errors"
	"sort"
	"time"

	"dailybacktest/internal/engine"
	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

var (
	InvalidLookbackErr   = errors.New("lookback must be at least 1")
	InvalidTopNErr       = errors.New("top-n must be at least 1")
	MissingUniverseErr   = errors.New("universe index is required")
	UnsupportedSourceErr = errors.New("data provider does not expose daily history")
)

// HistoryProvider is the wider data surface this strategy needs on top of
// the engine's price lookups. The provider in internal/marketdata
// satisfies it.
type HistoryProvider interface {
	DailyHistory(ctx context.Context, symbol string) ([]types.Bar, error)
	IndexConstituents(ctx context.Context, indexCode string) ([]string, error)
}

type Strategy struct {
	universeIndex string
	lookback      int
	topN          int

	// universe is resolved once per run and kept by the strategy itself.
	universe []string
}

func New(universeIndex string, lookback, topN int) (*Strategy, error) {
	if universeIndex == "" {
		return nil, MissingUniverseErr
	}
	if lookback < 1 {
		return nil, InvalidLookbackErr
	}
	if topN < 1 {
		return nil, InvalidTopNErr
	}
	return &Strategy{
		universeIndex: universeIndex,
		lookback:      lookback,
		topN:          topN,
	}, nil
}

type score struct {
	symbol   string
	momentum decimal.Decimal
}

// OnDate scores every universe member that traded today and has enough
// history, selects the topN by momentum, and targets an equal weight in
// each. Held symbols that fell out of the selection are closed with a zero
// target. When nothing qualifies, no orders are emitted at all.
func (s *Strategy) OnDate(ctx context.Context, sctx engine.StrategyContext) ([]types.Order, error) {
	data, ok := sctx.Data.(HistoryProvider)
	if !ok {
		return nil, UnsupportedSourceErr
	}

	universe, err := s.resolveUniverse(ctx, data)
	if err != nil {
		return nil, err
	}

	today := types.Day(sctx.Date)
	var scores []score
	for _, symbol := range universe {
		history, err := data.DailyHistory(ctx, symbol)
		if err != nil {
			return nil, err
		}

		idx := barIndexOn(history, today)
		if idx < 0 {
			// Not traded today; out of the running.
			continue
		}
		if idx < s.lookback {
			continue
		}
		start := history[idx-s.lookback].Close
		end := history[idx].Close
		if !start.IsPositive() {
			continue
		}
		scores = append(scores, score{
			symbol:   symbol,
			momentum: end.Div(start).Sub(decimal.NewFromInt(1)),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].momentum.GreaterThan(scores[j].momentum)
	})
	if len(scores) > s.topN {
		scores = scores[:s.topN]
	}
	if len(scores) == 0 {
		return nil, nil
	}

	selected := make(map[string]bool, len(scores))
	weight := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(scores))))
	orders := make([]types.Order, 0, len(scores))
	for _, sc := range scores {
		selected[sc.symbol] = true
		orders = append(orders, types.NewOrder(sc.symbol, weight))
	}

	// Close out positions that are no longer selected.
	held := sctx.Portfolio.Symbols()
	sort.Strings(held)
	for _, symbol := range held {
		if !selected[symbol] {
			orders = append(orders, types.NewOrder(symbol, decimal.Zero))
		}
	}
	return orders, nil
}

func (s *Strategy) resolveUniverse(ctx context.Context, data HistoryProvider) ([]string, error) {
	if s.universe != nil {
		return s.universe, nil
	}
	universe, err := data.IndexConstituents(ctx, s.universeIndex)
	if err != nil {
		return nil, err
	}
	s.universe = universe
	return universe, nil
}

// barIndexOn finds the bar dated exactly day. History is sorted ascending,
// so the scan walks back from the end and stops at the first earlier date.
func barIndexOn(history []types.Bar, day time.Time) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Date.Equal(day) {
			return i
		}
		if history[i].Date.Before(day) {
			break
		}
	}
	return -1
}
