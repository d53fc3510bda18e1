package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"spiketrend/internal/model"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Curve is an extra series drawn next to the raw and filtered data.
type Curve struct {
	Name   string
	Values []float64
}

// ChartOptions labels the chart.
type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
}

// DefaultChartOptions returns the default axis labels.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		XLabel: "Day",
		YLabel: "Servings of Beer",
	}
}

const (
	rawColor    = "red"
	filterColor = "blue"
)

var curveColors = []string{"green", "purple", "orange", "brown"}

// RenderChart writes an HTML line chart of the run's raw and cleaned data,
// the given reference curves and a marker at every toggle.
func RenderChart(w io.Writer, run model.Run, curves []Curve, o ChartOptions) error {
	if len(run.Cleaned) == 0 {
		return fmt.Errorf("chart: run %s has no samples", run.ID)
	}
	if o.Title == "" {
		o.Title = run.Series
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Title,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Title,
			Subtitle: fmt.Sprintf("window=%d threshold=%g toggles=%d", run.Window, run.Threshold, len(run.Toggles)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: o.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: o.YLabel}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	xs := make([]string, len(run.Cleaned))
	for i := range xs {
		xs[i] = strconv.Itoa(i)
	}
	line.SetXAxis(xs)

	if len(run.Raw) > 0 {
		line.AddSeries("Raw", lineData(run.Raw),
			charts.WithLineStyleOpts(opts.LineStyle{Color: rawColor}))
	}
	for i, c := range curves {
		line.AddSeries(c.Name, lineData(c.Values),
			charts.WithLineStyleOpts(opts.LineStyle{Color: curveColors[i%len(curveColors)]}))
	}

	marks := make([]opts.MarkPointNameCoordItem, 0, len(run.Toggles))
	for _, tg := range run.Toggles {
		marks = append(marks, opts.MarkPointNameCoordItem{
			Name:       Action(tg),
			Coordinate: []interface{}{strconv.Itoa(tg.Index), tg.Value},
		})
	}
	line.AddSeries("Filter", lineData(run.Cleaned),
		charts.WithLineStyleOpts(opts.LineStyle{Color: filterColor}),
		charts.WithMarkPointNameCoordItemOpts(marks...),
	)

	return line.Render(w)
}

// lineData maps undefined (NaN) samples to gaps.
func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = opts.LineData{Value: "-"}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}
