package engine

import (
	"testing"

	"dailybacktest/types"

	"github.com/shopspring/decimal"
)

func TestPortfolioBuy(t *testing.T) {
	tests := []struct {
		name           string
		startPortfolio *portfolio
		symbol         string
		quantity       string
		price          string
		wantErr        error
		wantCash       string
		wantPositions  map[string]*Position
	}{
		{
			name:           "open new position",
			startPortfolio: newPortfolio(decimal.RequireFromString("10000")),
			symbol:         "600519",
			quantity:       "10",
			price:          "100",
			wantCash:       "9000",
			wantPositions: map[string]*Position{
				"600519": {
					Symbol:   "600519",
					Quantity: decimal.RequireFromString("10"),
					AvgCost:  decimal.RequireFromString("100"),
				},
			},
		},
		{
			name: "scale in blends average cost",
			startPortfolio: &portfolio{
				cash: decimal.RequireFromString("10000"),
				positions: map[string]*Position{
					"600519": {
						Symbol:   "600519",
						Quantity: decimal.RequireFromString("10"),
						AvgCost:  decimal.RequireFromString("100"),
					},
				},
			},
			symbol:   "600519",
			quantity: "5",
			price:    "110",
			wantCash: "9450",
			wantPositions: map[string]*Position{
				"600519": {
					Symbol:   "600519",
					Quantity: decimal.RequireFromString("15"),
					AvgCost:  decimal.RequireFromString("103.3333333333333333"),
				},
			},
		},
		{
			name:           "zero quantity is a no-op",
			startPortfolio: newPortfolio(decimal.RequireFromString("10000")),
			symbol:         "600519",
			quantity:       "0",
			price:          "100",
			wantCash:       "10000",
			wantPositions:  map[string]*Position{},
		},
		{
			name:           "negative quantity is a no-op",
			startPortfolio: newPortfolio(decimal.RequireFromString("10000")),
			symbol:         "600519",
			quantity:       "-5",
			price:          "100",
			wantCash:       "10000",
			wantPositions:  map[string]*Position{},
		},
		{
			name:           "insufficient funds leaves state untouched",
			startPortfolio: newPortfolio(decimal.RequireFromString("100")),
			symbol:         "600519",
			quantity:       "20",
			price:          "10",
			wantErr:        InsufficientFundsErr,
			wantCash:       "100",
			wantPositions:  map[string]*Position{},
		},
		{
			name: "insufficient funds does not touch an existing position",
			startPortfolio: &portfolio{
				cash: decimal.RequireFromString("50"),
				positions: map[string]*Position{
					"600519": {
						Symbol:   "600519",
						Quantity: decimal.RequireFromString("10"),
						AvgCost:  decimal.RequireFromString("100"),
					},
				},
			},
			symbol:   "600519",
			quantity: "1",
			price:    "100",
			wantErr:  InsufficientFundsErr,
			wantCash: "50",
			wantPositions: map[string]*Position{
				"600519": {
					Symbol:   "600519",
					Quantity: decimal.RequireFromString("10"),
					AvgCost:  decimal.RequireFromString("100"),
				},
			},
		},
		{
			name:           "cost equal to cash is allowed",
			startPortfolio: newPortfolio(decimal.RequireFromString("1000")),
			symbol:         "600519",
			quantity:       "10",
			price:          "100",
			wantCash:       "0",
			wantPositions: map[string]*Position{
				"600519": {
					Symbol:   "600519",
					Quantity: decimal.RequireFromString("10"),
					AvgCost:  decimal.RequireFromString("100"),
				},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.startPortfolio.buy(tc.symbol, decimal.RequireFromString(tc.quantity), decimal.RequireFromString(tc.price))
			if tc.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if err.Error() != tc.wantErr.Error() {
					t.Fatalf("got error %q, want %q", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertPortfolio(t, tc.startPortfolio, tc.wantCash, tc.wantPositions)
		})
	}
}

func TestPortfolioSell(t *testing.T) {
	tests := []struct {
		name           string
		startPortfolio *portfolio
		symbol         string
		quantity       string
		price          string
		wantCash       string
		wantPositions  map[string]*Position
	}{
		{
			name: "partial sell keeps average cost",
			startPortfolio: &portfolio{
				cash: decimal.RequireFromString("0"),
				positions: map[string]*Position{
					"600519": {
						Symbol:   "600519",
						Quantity: decimal.RequireFromString("10"),
						AvgCost:  decimal.RequireFromString("100"),
					},
				},
			},
			symbol:   "600519",
			quantity: "4",
			price:    "105",
			wantCash: "420",
			wantPositions: map[string]*Position{
				"600519": {
					Symbol:   "600519",
					Quantity: decimal.RequireFromString("6"),
					AvgCost:  decimal.RequireFromString("100"),
				},
			},
		},
		{
			name: "oversell clamps to held quantity and closes the position",
			startPortfolio: &portfolio{
				cash: decimal.RequireFromString("0"),
				positions: map[string]*Position{
					"600519": {
						Symbol:   "600519",
						Quantity: decimal.RequireFromString("3"),
						AvgCost:  decimal.RequireFromString("100"),
					},
				},
			},
			symbol:   "600519",
			quantity: "10",
			price:    "110",
			// Proceeds from the 3 shares actually held, not the 10 requested.
			wantCash:      "330",
			wantPositions: map[string]*Position{},
		},
		{
			name:           "selling an unheld symbol is a no-op",
			startPortfolio: newPortfolio(decimal.RequireFromString("500")),
			symbol:         "000001",
			quantity:       "5",
			price:          "50",
			wantCash:       "500",
			wantPositions:  map[string]*Position{},
		},
		{
			name: "exact sell removes the position",
			startPortfolio: &portfolio{
				cash: decimal.RequireFromString("100"),
				positions: map[string]*Position{
					"600519": {
						Symbol:   "600519",
						Quantity: decimal.RequireFromString("5"),
						AvgCost:  decimal.RequireFromString("80"),
					},
				},
			},
			symbol:        "600519",
			quantity:      "5",
			price:         "90",
			wantCash:      "550",
			wantPositions: map[string]*Position{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.startPortfolio.sell(tc.symbol, decimal.RequireFromString(tc.quantity), decimal.RequireFromString(tc.price))
			assertPortfolio(t, tc.startPortfolio, tc.wantCash, tc.wantPositions)
		})
	}
}

func TestPortfolioTotalValueSkipsUnpricedSymbols(t *testing.T) {
	p := &portfolio{
		cash: decimal.RequireFromString("1000"),
		positions: map[string]*Position{
			"600519": {Symbol: "600519", Quantity: decimal.RequireFromString("10"), AvgCost: decimal.RequireFromString("100")},
			"000001": {Symbol: "000001", Quantity: decimal.RequireFromString("5"), AvgCost: decimal.RequireFromString("50")},
		},
	}

	prices := map[string]decimal.Decimal{
		"600519": decimal.RequireFromString("120"),
		// 000001 has no price today; it must contribute zero.
	}

	got := p.totalValue(prices)
	want := decimal.RequireFromString("2200") // 1000 + 10*120
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

// Trading at one price is value-neutral: a buy/sell round trip neither
// creates nor destroys account value.
func TestPortfolioValueConservation(t *testing.T) {
	p := newPortfolio(decimal.RequireFromString("1000000"))
	price := decimal.RequireFromString("123.45")
	prices := map[string]decimal.Decimal{"600519": price}

	before := p.totalValue(prices)

	if err := p.buy("600519", decimal.RequireFromString("2000"), price); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := p.totalValue(prices); !got.Equal(before) {
		t.Fatalf("value after buy: got %s, want %s", got, before)
	}

	p.sell("600519", decimal.RequireFromString("750"), price)
	if got := p.totalValue(prices); !got.Equal(before) {
		t.Fatalf("value after sell: got %s, want %s", got, before)
	}

	p.sell("600519", decimal.RequireFromString("1250"), price)
	if got := p.totalValue(prices); !got.Equal(before) {
		t.Fatalf("value after round trip: got %s, want %s", got, before)
	}
	if p.cash.LessThan(decimal.Zero) {
		t.Fatalf("cash went negative: %s", p.cash)
	}
	if len(p.positions) != 0 {
		t.Fatalf("expected flat portfolio, got %+v", p.positions)
	}
}

func TestPortfolioSnapshotIsDetached(t *testing.T) {
	p := newPortfolio(decimal.RequireFromString("1000"))
	if err := p.buy("600519", decimal.RequireFromString("5"), decimal.RequireFromString("100")); err != nil {
		t.Fatalf("buy: %v", err)
	}

	view := p.snapshot()
	view.Positions["600519"] = types.PositionSnapshot{
		Symbol:   "600519",
		Quantity: decimal.RequireFromString("999"),
	}

	if !p.positions["600519"].Quantity.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("mutating the snapshot leaked into the ledger")
	}
}

func TestPortfolioSummary(t *testing.T) {
	p := &portfolio{
		cash: decimal.RequireFromString("100"),
		positions: map[string]*Position{
			"600519": {Symbol: "600519", Quantity: decimal.RequireFromString("10"), AvgCost: decimal.RequireFromString("100")},
			"000001": {Symbol: "000001", Quantity: decimal.RequireFromString("2"), AvgCost: decimal.RequireFromString("30")},
		},
	}
	prices := map[string]decimal.Decimal{"600519": decimal.RequireFromString("111")}

	rows := p.summary(prices)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Sorted by symbol: 000001 first.
	if rows[0].Symbol != "000001" || rows[0].Priced {
		t.Fatalf("row 0: got %+v, want unpriced 000001", rows[0])
	}
	if rows[1].Symbol != "600519" || !rows[1].Priced {
		t.Fatalf("row 1: got %+v, want priced 600519", rows[1])
	}
	if !rows[1].MarketValue.Equal(decimal.RequireFromString("1110")) {
		t.Fatalf("market value: got %s, want 1110", rows[1].MarketValue)
	}
}

// Helper functions

func assertPortfolio(t *testing.T, got *portfolio, wantCash string, wantPositions map[string]*Position) {
	t.Helper()

	if want := decimal.RequireFromString(wantCash); want.Cmp(got.cash) != 0 {
		t.Fatalf("cash mismatch: got %s want %s", got.cash, want)
	}

	for sym, wantPos := range wantPositions {
		gotPos := got.positions[sym]
		if gotPos == nil {
			t.Fatalf("position for %s missing", sym)
		}
		if !gotPos.Quantity.Equal(wantPos.Quantity) {
			t.Fatalf("qty mismatch: got %s want %s", gotPos.Quantity, wantPos.Quantity)
		}
		if !gotPos.AvgCost.RoundBank(6).Equal(wantPos.AvgCost.RoundBank(6)) {
			t.Fatalf("avgCost mismatch: got %s want %s", gotPos.AvgCost, wantPos.AvgCost)
		}
	}

	if len(got.positions) != len(wantPositions) {
		t.Fatalf("unexpected extra positions: got %+v, want %+v", got.positions, wantPositions)
	}
}
