// Package akshare talks to an AkTools instance, the HTTP frontend of the
// AkShare market-data library. Every dataset is exposed as
// GET /api/public/<name> returning a JSON array of records; historical
// stock data comes back with Chinese column names.
package akshare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"dailybacktest/types"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "http://127.0.0.1:8080"

var NoDataErr = errors.New("no historical data returned")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// StockDaily returns the full forward-adjusted daily history for one A-share
// symbol, sorted by date ascending. An empty history is an error: it means
// the symbol itself is unknown, not that a day is missing.
func (c *Client) StockDaily(ctx context.Context, symbol string) ([]types.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("period", "daily")
	params.Set("adjust", "qfq")

	body, err := c.get(ctx, "stock_zh_a_hist", params)
	if err != nil {
		return nil, err
	}
	bars, err := parseBars(body, symbol, barColumns{
		date: "日期", open: "开盘", high: "最高", low: "最低", close: "收盘", volume: "成交量",
	})
	if err != nil {
		return nil, fmt.Errorf("stock_zh_a_hist %s: %w", symbol, err)
	}
	return bars, nil
}

// IndexDaily returns the daily history of a benchmark index (e.g. sh000001).
// Unlike the stock dataset, this one uses English column names.
func (c *Client) IndexDaily(ctx context.Context, symbol string) ([]types.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "index_zh_a_daily", params)
	if err != nil {
		return nil, err
	}
	bars, err := parseBars(body, symbol, barColumns{
		date: "date", open: "open", high: "high", low: "low", close: "close", volume: "volume",
	})
	if err != nil {
		return nil, fmt.Errorf("index_zh_a_daily %s: %w", symbol, err)
	}
	return bars, nil
}

// IndexConstituents returns the member symbols of an index such as 000300.
func (c *Client) IndexConstituents(ctx context.Context, indexCode string) ([]string, error) {
	params := url.Values{}
	params.Set("symbol", indexCode)

	body, err := c.get(ctx, "index_stock_cons", params)
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, fmt.Errorf("index_stock_cons %s: unexpected response shape", indexCode)
	}
	var symbols []string
	result.ForEach(func(_, record gjson.Result) bool {
		if code := record.Get("品种代码").String(); code != "" {
			symbols = append(symbols, code)
		}
		return true
	})
	if len(symbols) == 0 {
		return nil, fmt.Errorf("index_stock_cons %s: %w", indexCode, NoDataErr)
	}
	return symbols, nil
}

func (c *Client) get(ctx context.Context, dataset string, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/api/public/%s?%s", c.baseURL, dataset, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", dataset, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", dataset, err)
	}
	return body, nil
}

type barColumns struct {
	date, open, high, low, close, volume string
}

func parseBars(body []byte, symbol string, cols barColumns) ([]types.Bar, error) {
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, errors.New("unexpected response shape")
	}

	var bars []types.Bar
	var parseErr error
	result.ForEach(func(_, record gjson.Result) bool {
		date, err := parseDate(record.Get(cols.date).String())
		if err != nil {
			parseErr = err
			return false
		}
		bar := types.Bar{Symbol: symbol, Date: date}
		for _, field := range []struct {
			key string
			dst *decimal.Decimal
		}{
			{cols.open, &bar.Open},
			{cols.high, &bar.High},
			{cols.low, &bar.Low},
			{cols.close, &bar.Close},
			{cols.volume, &bar.Volume},
		} {
			value, err := decimal.NewFromString(record.Get(field.key).String())
			if err != nil {
				parseErr = fmt.Errorf("column %s: %w", field.key, err)
				return false
			}
			*field.dst = value
		}
		bars = append(bars, bar)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(bars) == 0 {
		return nil, NoDataErr
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"20060102",
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return types.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
