package repository

import (
	"context"
	"fmt"
	"time"

	"dailybacktest/types"
)

// GetDailyBars returns the cached history for one symbol sorted by date.
// ErrNoBars signals a cache miss, not a failure.
func (db *Database) GetDailyBars(ctx context.Context, symbol string) ([]types.Bar, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT date, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = $1
		ORDER BY date`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		bar := types.Bar{Symbol: symbol}
		var date time.Time
		if err := rows.Scan(&date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan bar for %s: %w", symbol, err)
		}
		bar.Date = types.Day(date)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	return bars, nil
}

// SaveDailyBars upserts a symbol's history into the cache.
func (db *Database) SaveDailyBars(ctx context.Context, symbol string, bars []types.Bar) error {
	batch := make([][]interface{}, 0, len(bars))
	for _, bar := range bars {
		batch = append(batch, []interface{}{bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume})
	}

	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save bars: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, args := range batch {
		_, err := tx.Exec(ctx, `
			INSERT INTO daily_bars (symbol, date, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (symbol, date) DO UPDATE
			SET open = EXCLUDED.open,
			    high = EXCLUDED.high,
			    low = EXCLUDED.low,
			    close = EXCLUDED.close,
			    volume = EXCLUDED.volume`,
			append([]interface{}{symbol}, args...)...)
		if err != nil {
			return fmt.Errorf("save bar for %s: %w", symbol, err)
		}
	}
	return tx.Commit(ctx)
}
