package report

import (
	"fmt"
	"log"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 800
	chartHeight = 500
)

// writeChartPNG renders through fn into a temporary PNG and returns its path
// with a cleanup func that removes it.
func writeChartPNG(prefix string, fn func(f *os.File) error) (string, func(), error) {
	f, err := os.CreateTemp("", "taskflow-"+prefix+"-*.png")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create chart file: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove chart file %s: %v", f.Name(), err)
		}
	}

	renderErr := fn(f)
	if err := f.Close(); err != nil && renderErr == nil {
		renderErr = fmt.Errorf("failed to close chart file: %w", err)
	}
	if renderErr != nil {
		cleanup()
		return "", func() {}, renderErr
	}

	return f.Name(), cleanup, nil
}

func renderPieChart(series ChartSeries) (string, func(), error) {
	values := make([]chart.Value, 0, len(series.Points))
	for _, p := range series.Points {
		if p.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%.0f)", p.Label, p.Value),
			Value: p.Value,
		})
	}

	pie := chart.PieChart{
		Title:  series.Title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}

	return writeChartPNG("pie", func(f *os.File) error {
		if err := pie.Render(chart.PNG, f); err != nil {
			return fmt.Errorf("failed to render pie chart: %w", err)
		}
		return nil
	})
}

func renderBarChart(series ChartSeries) (string, func(), error) {
	bars := make([]chart.Value, 0, len(series.Points))
	maxValue := 0.0
	for _, p := range series.Points {
		bars = append(bars, chart.Value{Label: p.Label, Value: p.Value})
		if p.Value > maxValue {
			maxValue = p.Value
		}
	}

	barWidth := 60
	if n := len(bars); n > 0 && (chartWidth-100)/n < barWidth {
		barWidth = max((chartWidth-100)/n, 8)
	}

	bar := chart.BarChart{
		Title:  series.Title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: barWidth,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue + 1},
		},
		Bars: bars,
	}

	return writeChartPNG("bar", func(f *os.File) error {
		if err := bar.Render(chart.PNG, f); err != nil {
			return fmt.Errorf("failed to render bar chart: %w", err)
		}
		return nil
	})
}
