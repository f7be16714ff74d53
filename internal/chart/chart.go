// Package chart renders the equity curve of a finished run as a
// standalone HTML page.
package chart

import (
	"errors"
	"io"
	"os"

	"dailybacktest/types"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var NoPointsErr = errors.New("no equity points to chart")

// WriteEquityCurve renders points as a line chart and writes the HTML to
// path. The file is overwritten if it already exists.
func WriteEquityCurve(points []types.EquityPoint, title, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return RenderEquityCurve(points, title, f)
}

// RenderEquityCurve writes the chart HTML to w.
func RenderEquityCurve(points []types.EquityPoint, title string, w io.Writer) error {
	if len(points) == 0 {
		return NoPointsErr
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "1200px",
			Height: "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Left:  "left",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	xAxis := make([]string, len(points))
	series := make([]opts.LineData, len(points))
	for i, point := range points {
		xAxis[i] = point.Date.Format("2006-01-02")
		series[i] = opts.LineData{Value: point.AccountValue.InexactFloat64()}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Account Value", series)

	return line.Render(w)
}
