package cmd

import (
	"context"
	"fmt"

	"dailybacktest/internal/akshare"
	"dailybacktest/internal/chart"
	"dailybacktest/internal/config"
	"dailybacktest/internal/engine"
	"dailybacktest/internal/marketdata"
	"dailybacktest/internal/repository"
	"dailybacktest/strategies/momentum"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a momentum backtest",
	Long: `Run replays the trading calendar with a momentum strategy.

All parameters have working defaults; a YAML config file and individual
flags can override them. Flags win over the config file.

Example:
  backtester run --universe 000300 --lookback 60 --top-n 3 --capital 1000000`,
	RunE: runBacktest,
}

var (
	runConfigPath    string
	runAkToolsURL    string
	runDatabaseURL   string
	runCalendarIndex string
	runStart         string
	runEnd           string
	runUniverse      string
	runCapital       float64
	runLookback      int
	runTopN          int
	runEquityCSV     string
	runEquityChart   string
	runRiskFree      float64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to a YAML config file")
	runCmd.Flags().StringVar(&runAkToolsURL, "aktools-url", akshare.DefaultBaseURL, "base URL of the AkTools API")
	runCmd.Flags().StringVar(&runDatabaseURL, "db", "", "Postgres URL for the bar cache (cache disabled when empty)")
	runCmd.Flags().StringVar(&runCalendarIndex, "calendar-index", "sh000001", "index symbol that drives the trading calendar")
	runCmd.Flags().StringVar(&runStart, "start", "", "first trading date (YYYY-MM-DD, unbounded when empty)")
	runCmd.Flags().StringVar(&runEnd, "end", "", "last trading date (YYYY-MM-DD, unbounded when empty)")
	runCmd.Flags().StringVarP(&runUniverse, "universe", "u", "000300", "index whose constituents form the universe")
	runCmd.Flags().Float64Var(&runCapital, "capital", 1_000_000, "initial capital")
	runCmd.Flags().IntVar(&runLookback, "lookback", 60, "momentum lookback in trading days")
	runCmd.Flags().IntVar(&runTopN, "top-n", 3, "number of names to hold")
	runCmd.Flags().StringVar(&runEquityCSV, "csv", "equity.csv", "equity curve CSV path (disabled when empty)")
	runCmd.Flags().StringVar(&runEquityChart, "chart", "equity.html", "equity curve HTML chart path (disabled when empty)")
	runCmd.Flags().Float64Var(&runRiskFree, "risk-free", 0, "annual risk-free rate for the Sharpe ratio")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := akshare.NewClient(cfg.Data.AkToolsURL)

	var store marketdata.BarStore
	if cfg.Data.DatabaseURL != "" {
		db, err := repository.NewDatabase(ctx, cfg.Data.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect bar cache: %w", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		store = db
	}

	dates, err := cfg.DateRange()
	if err != nil {
		return err
	}
	provider := marketdata.NewProvider(client, marketdata.Config{
		IndexSymbol: cfg.Data.CalendarIndex,
		Start:       dates.Start,
		End:         dates.End,
		Store:       store,
	})

	strategy, err := momentum.New(cfg.Strategy.UniverseIndex, cfg.Strategy.Lookback, cfg.Strategy.TopN)
	if err != nil {
		return err
	}

	capital := decimal.NewFromFloat(cfg.Account.InitialCapital)
	eng, err := engine.NewEngine(provider, strategy, capital, engine.WithProgress())
	if err != nil {
		return err
	}

	result, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	report := engine.GenerateReport(result, capital, decimal.NewFromFloat(runRiskFree))
	report.Print()

	if cfg.Output.EquityCSV != "" {
		if err := result.WriteCSVFile(cfg.Output.EquityCSV); err != nil {
			return err
		}
		fmt.Printf("Equity curve written to %s\n", cfg.Output.EquityCSV)
	}
	if cfg.Output.EquityChart != "" {
		title := fmt.Sprintf("Momentum %s top %d", cfg.Strategy.UniverseIndex, cfg.Strategy.TopN)
		if err := chart.WriteEquityCurve(result.Points, title, cfg.Output.EquityChart); err != nil {
			return err
		}
		fmt.Printf("Equity chart written to %s\n", cfg.Output.EquityChart)
	}
	return nil
}

// resolveConfig layers defaults, the optional config file and explicit
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("aktools-url") {
		cfg.Data.AkToolsURL = runAkToolsURL
	}
	if flags.Changed("db") {
		cfg.Data.DatabaseURL = runDatabaseURL
	}
	if flags.Changed("calendar-index") {
		cfg.Data.CalendarIndex = runCalendarIndex
	}
	if flags.Changed("start") {
		cfg.Data.Start = runStart
	}
	if flags.Changed("end") {
		cfg.Data.End = runEnd
	}
	if flags.Changed("universe") {
		cfg.Strategy.UniverseIndex = runUniverse
	}
	if flags.Changed("capital") {
		cfg.Account.InitialCapital = runCapital
	}
	if flags.Changed("lookback") {
		cfg.Strategy.Lookback = runLookback
	}
	if flags.Changed("top-n") {
		cfg.Strategy.TopN = runTopN
	}
	if flags.Changed("csv") {
		cfg.Output.EquityCSV = runEquityCSV
	}
	if flags.Changed("chart") {
		cfg.Output.EquityChart = runEquityChart
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
