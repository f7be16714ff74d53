package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"dailybacktest/types"
)

// BacktestResult is the ordered account value series of one run, one point
// per simulated date after the first, chronological. Treat it as immutable
// once returned by Run.
type BacktestResult struct {
	Points []types.EquityPoint
}

// Len returns the number of equity points.
func (r *BacktestResult) Len() int {
	return len(r.Points)
}

// Final returns the last equity point, or false when the series is empty.
func (r *BacktestResult) Final() (types.EquityPoint, bool) {
	if len(r.Points) == 0 {
		return types.EquityPoint{}, false
	}
	return r.Points[len(r.Points)-1], true
}

// WriteCSVFile writes the equity curve to a CSV file at the given path.
func (r *BacktestResult) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity file: %w", err)
	}
	defer f.Close()

	return r.WriteCSV(f)
}

// WriteCSV writes the equity curve to any io.Writer as CSV. Pass os.Stdout
// for debugging, or a file.
func (r *BacktestResult) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", "account_value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, point := range r.Points {
		record := []string{
			point.Date.Format("2006-01-02"),
			point.AccountValue.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// tradingDaysPerYear is the annualization base for CAGR and Sharpe.
const tradingDaysPerYear = 252

func yearsBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24 / 365.25
}
