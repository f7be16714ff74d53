// Package marketdata assembles the engine's data provider from the AkShare
// HTTP client and the optional Postgres bar cache. All lookups are memoized
// in process-local maps; the caches belong to one provider instance and are
// never shared across runs.
package marketdata

import (
	"context"
	"errors"
	"log"
	"time"

	"dailybacktest/internal/repository"
	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

// BarFetcher is the upstream data source, satisfied by akshare.Client.
type BarFetcher interface {
	StockDaily(ctx context.Context, symbol string) ([]types.Bar, error)
	IndexDaily(ctx context.Context, symbol string) ([]types.Bar, error)
	IndexConstituents(ctx context.Context, indexCode string) ([]string, error)
}

// BarStore is the persistent cache tier, satisfied by repository.Database.
// A nil store means HTTP-only operation.
type BarStore interface {
	GetDailyBars(ctx context.Context, symbol string) ([]types.Bar, error)
	SaveDailyBars(ctx context.Context, symbol string, bars []types.Bar) error
}

type Config struct {
	// IndexSymbol drives the trading calendar, e.g. sh000001.
	IndexSymbol string
	// Start and End clip the calendar; zero values mean unbounded.
	Start time.Time
	End   time.Time
	// Store is the optional persistent bar cache.
	Store BarStore
}

type Provider struct {
	fetcher     BarFetcher
	store       BarStore
	indexSymbol string
	start, end  time.Time

	calendar  []time.Time
	histories map[string][]types.Bar
	barIndex  map[string]map[time.Time]types.Bar
}

func NewProvider(fetcher BarFetcher, cfg Config) *Provider {
	indexSymbol := cfg.IndexSymbol
	if indexSymbol == "" {
		indexSymbol = "sh000001"
	}
	return &Provider{
		fetcher:     fetcher,
		store:       cfg.Store,
		indexSymbol: indexSymbol,
		start:       cfg.Start,
		end:         cfg.End,
		histories:   make(map[string][]types.Bar),
		barIndex:    make(map[string]map[time.Time]types.Bar),
	}
}

// TradingCalendar returns the benchmark index's trading dates clipped to the
// configured range, ascending. The index series is fetched once and cached.
func (p *Provider) TradingCalendar(ctx context.Context) ([]time.Time, error) {
	if p.calendar != nil {
		return p.calendar, nil
	}
	bars, err := p.fetcher.IndexDaily(ctx, p.indexSymbol)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(bars))
	for _, bar := range bars {
		if !p.start.IsZero() && bar.Date.Before(p.start) {
			continue
		}
		if !p.end.IsZero() && bar.Date.After(p.end) {
			continue
		}
		dates = append(dates, bar.Date)
	}
	p.calendar = dates
	return dates, nil
}

func (p *Provider) ClosePrices(ctx context.Context, symbols []string, date time.Time) (map[string]decimal.Decimal, error) {
	return p.prices(ctx, symbols, date, func(bar types.Bar) decimal.Decimal { return bar.Close })
}

func (p *Provider) OpenPrices(ctx context.Context, symbols []string, date time.Time) (map[string]decimal.Decimal, error) {
	return p.prices(ctx, symbols, date, func(bar types.Bar) decimal.Decimal { return bar.Open })
}

// DailyHistory returns the full daily history for one symbol. Strategies use
// it to compute lookback scores; the engine itself never calls it.
func (p *Provider) DailyHistory(ctx context.Context, symbol string) ([]types.Bar, error) {
	return p.history(ctx, symbol)
}

// IndexConstituents returns the member symbols of the given index.
func (p *Provider) IndexConstituents(ctx context.Context, indexCode string) ([]string, error) {
	return p.fetcher.IndexConstituents(ctx, indexCode)
}

func (p *Provider) prices(ctx context.Context, symbols []string, date time.Time, pick func(types.Bar) decimal.Decimal) (map[string]decimal.Decimal, error) {
	day := types.Day(date)
	out := make(map[string]decimal.Decimal)
	for _, symbol := range symbols {
		bar, ok, err := p.bar(ctx, symbol, day)
		if err != nil {
			return nil, err
		}
		if !ok {
			// The symbol did not trade that day; it is simply absent.
			continue
		}
		out[symbol] = pick(bar)
	}
	return out, nil
}

func (p *Provider) bar(ctx context.Context, symbol string, day time.Time) (types.Bar, bool, error) {
	index, ok := p.barIndex[symbol]
	if !ok {
		bars, err := p.history(ctx, symbol)
		if err != nil {
			return types.Bar{}, false, err
		}
		index = make(map[time.Time]types.Bar, len(bars))
		for _, bar := range bars {
			index[bar.Date] = bar
		}
		p.barIndex[symbol] = index
	}
	bar, ok := index[day]
	return bar, ok, nil
}

func (p *Provider) history(ctx context.Context, symbol string) ([]types.Bar, error) {
	if bars, ok := p.histories[symbol]; ok {
		return bars, nil
	}

	if p.store != nil {
		bars, err := p.store.GetDailyBars(ctx, symbol)
		switch {
		case err == nil:
			p.histories[symbol] = bars
			return bars, nil
		case !errors.Is(err, repository.ErrNoBars):
			return nil, err
		}
	}

	bars, err := p.fetcher.StockDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.store.SaveDailyBars(ctx, symbol, bars); err != nil {
			// A cache write failure degrades later runs, not this one.
			log.Printf("bar cache write for %s failed (ignored): %v", symbol, err)
		}
	}
	p.histories[symbol] = bars
	return bars, nil
}
