package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is one entry of the account value time series produced by a
// backtest run.
type EquityPoint struct {
	Date         time.Time       `json:"date"`
	AccountValue decimal.Decimal `json:"accountValue"`
}
