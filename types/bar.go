package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single daily OHLCV observation for one symbol. Bars are produced
// by the data provider and never mutated afterwards. Dates are normalized to
// midnight UTC so they can be used directly as map keys.
type Bar struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Day truncates t to midnight UTC, the canonical form for bar dates.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
