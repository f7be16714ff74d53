package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

type Report struct {
	// Meta / period info
	StartDate   time.Time
	EndDate     time.Time
	TotalPeriod time.Duration
	TradingDays int

	// Absolute performance
	InitialValue decimal.Decimal
	FinalValue   decimal.Decimal
	NetProfit    decimal.Decimal
	TotalReturn  decimal.Decimal
	CAGR         decimal.Decimal

	// Drawdown metrics
	MaxDrawdown        decimal.Decimal
	MaxDrawdownPercent decimal.Decimal
	MaxDrawdownDays    time.Duration

	// Risk-adjusted metrics
	SharpeRatio decimal.Decimal

	// Daily distribution
	BestDay  decimal.Decimal
	WorstDay decimal.Decimal
}

// GenerateReport derives performance metrics from the equity series of one
// run. initialValue is the capital the run started with; riskFree is the
// annual risk-free rate used by the Sharpe ratio.
func GenerateReport(result *BacktestResult, initialValue, riskFree decimal.Decimal) *Report {
	report := &Report{InitialValue: initialValue}
	points := result.Points
	if len(points) == 0 {
		return report
	}

	report.StartDate = points[0].Date
	report.EndDate = points[len(points)-1].Date
	report.TotalPeriod = report.EndDate.Sub(report.StartDate).Truncate(time.Hour * 24)
	report.TradingDays = len(points)
	report.FinalValue = points[len(points)-1].AccountValue
	report.NetProfit = report.FinalValue.Sub(initialValue)
	if initialValue.IsPositive() {
		report.TotalReturn = report.NetProfit.Div(initialValue)
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		report.CAGR = calcCAGR(points, initialValue, &wg)
	}()
	go func() {
		report.MaxDrawdown, report.MaxDrawdownPercent, report.MaxDrawdownDays = calcDrawdownMetrics(points, &wg)
	}()
	go func() {
		report.SharpeRatio = calcSharpeRatio(points, riskFree, &wg)
	}()
	go func() {
		report.BestDay, report.WorstDay = calcBestWorstDay(points, &wg)
	}()
	wg.Wait()

	return report
}

func (r *Report) Print() {
	fmt.Println("===== Backtest Report =====")
	fmt.Printf("Start Date:            %s\n", r.StartDate.Format("2006-01-02"))
	fmt.Printf("End Date:              %s\n", r.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Period:          %d days\n", r.TotalPeriod/(24*time.Hour))
	fmt.Printf("Trading Days:          %d\n", r.TradingDays)

	fmt.Println("\n-- Absolute Performance --")
	fmt.Printf("Initial Value:         %s\n", r.InitialValue)
	fmt.Printf("Final Value:           %s\n", r.FinalValue)
	fmt.Printf("Net Profit:            %s\n", r.NetProfit)
	fmt.Printf("Total Return:          %s%%\n", r.TotalReturn.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Printf("CAGR:                  %s%%\n", r.CAGR.Mul(decimal.NewFromInt(100)).StringFixed(2))

	fmt.Println("\n-- Drawdown Metrics --")
	fmt.Printf("Max Drawdown:          %s\n", r.MaxDrawdown)
	fmt.Printf("Max Drawdown %%:        %s%%\n", r.MaxDrawdownPercent.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Printf("Max Drawdown Days:     %v\n", r.MaxDrawdownDays)

	fmt.Println("\n-- Risk-Adjusted Metrics --")
	fmt.Printf("Sharpe Ratio:          %s\n", r.SharpeRatio.StringFixed(2))

	fmt.Println("\n-- Daily Distribution --")
	fmt.Printf("Best Day:              %s%%\n", r.BestDay.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Printf("Worst Day:             %s%%\n", r.WorstDay.Mul(decimal.NewFromInt(100)).StringFixed(2))

	fmt.Println("===========================")
}

func calcCAGR(points []types.EquityPoint, initialValue decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(points) < 2 {
		return decimal.Zero
	}

	endVal := points[len(points)-1].AccountValue

	// CAGR is not well-defined for non-positive start or end values.
	if !initialValue.IsPositive() || !endVal.IsPositive() {
		return decimal.Zero
	}

	years := yearsBetween(points[0].Date, points[len(points)-1].Date)
	if years <= 0 {
		return decimal.Zero
	}

	ratio := endVal.Div(initialValue)
	cagr := math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0
	return decimal.NewFromFloat(cagr)
}

func calcDrawdownMetrics(points []types.EquityPoint, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()
	if len(points) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := decimal.Zero
	var peakTime time.Time

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for i, point := range points {
		equity := point.AccountValue

		if i == 0 || equity.GreaterThan(peak) || peak.IsZero() {
			peak = equity
			peakTime = point.Date
		}

		if peak.GreaterThan(decimal.Zero) {
			dd := peak.Sub(equity)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
				maxDDPct = dd.Div(peak)
				maxDDDuration = point.Date.Sub(peakTime)
			}
		}
	}

	return maxDD, maxDDPct, maxDDDuration
}

func calcSharpeRatio(points []types.EquityPoint, annualRiskFree decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	returns := dailyReturns(points)
	if len(returns) < 2 {
		// Need at least 2 returns to compute a sample stddev.
		return decimal.Zero
	}

	// Convert annual risk-free to a per-trading-day rate:
	// rf_daily = (1 + rf_annual)^(1/252) - 1
	rfDaily := math.Pow(1.0+annualRiskFree.InexactFloat64(), 1.0/tradingDaysPerYear) - 1.0

	excess := make([]float64, 0, len(returns))
	for _, r := range returns {
		excess = append(excess, r.InexactFloat64()-rfDaily)
	}

	var sum float64
	for _, x := range excess {
		sum += x
	}
	mean := sum / float64(len(excess))

	var varianceSum float64
	for _, x := range excess {
		diff := x - mean
		varianceSum += diff * diff
	}
	std := math.Sqrt(varianceSum / float64(len(excess)-1))
	if std == 0 {
		return decimal.Zero
	}

	// Daily Sharpe annualized by sqrt(252).
	return decimal.NewFromFloat(mean / std * math.Sqrt(tradingDaysPerYear))
}

func calcBestWorstDay(points []types.EquityPoint, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()
	returns := dailyReturns(points)
	if len(returns) == 0 {
		return decimal.Zero, decimal.Zero
	}
	best, worst := returns[0], returns[0]
	for _, r := range returns[1:] {
		if r.GreaterThan(best) {
			best = r
		}
		if r.LessThan(worst) {
			worst = r
		}
	}
	return best, worst
}

func dailyReturns(points []types.EquityPoint) []decimal.Decimal {
	var returns []decimal.Decimal
	for i := 1; i < len(points); i++ {
		prev := points[i-1].AccountValue
		if !prev.IsPositive() {
			continue
		}
		returns = append(returns, points[i].AccountValue.Sub(prev).Div(prev))
	}
	return returns
}
