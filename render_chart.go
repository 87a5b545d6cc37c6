package mirrorplot

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type ChartFormat string

const (
	ChartPNG ChartFormat = "png"
	ChartSVG ChartFormat = "svg"
)

// Guesses the format from a file extension, defaulting to PNG.
func ChartFormatFromPath(path string) ChartFormat {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return ChartSVG
	}
	return ChartPNG
}

type ChartOptions struct {
	Format ChartFormat
	Width  int
	Height int
}

var (
	namedColors = map[string]drawing.Color{
		HighlightColor: {R: 218, G: 165, B: 32, A: 255},
	}

	// Same default trace colors the browser widget uses, so the image and
	// the page look alike.
	defaultPalette = []drawing.Color{
		drawing.ColorFromHex("1f77b4"),
		drawing.ColorFromHex("ff7f0e"),
		drawing.ColorFromHex("2ca02c"),
		drawing.ColorFromHex("d62728"),
		drawing.ColorFromHex("9467bd"),
	}
)

func seriesColor(index int, style Style) drawing.Color {
	if c, ok := namedColors[style.Color]; ok {
		return c
	}
	return defaultPalette[index%len(defaultPalette)]
}

// Marker-only series are drawn as dots with no stroke. lines+markers series
// get both.
func chartStyle(index int, s Series) chart.Style {
	dotColor := seriesColor(index, s.Marker)

	if s.Mode != ModeLinesMarkers {
		return chart.Style{
			StrokeWidth: chart.Disabled,
			StrokeColor: drawing.ColorTransparent,
			DotWidth:    4,
			DotColor:    dotColor,
		}
	}

	return chart.Style{
		StrokeWidth: 2,
		StrokeColor: seriesColor(index, s.Line),
		DotWidth:    3,
		DotColor:    dotColor,
	}
}

// Renders the series as a static PNG or SVG image. Points with a missing
// coordinate are skipped. An empty series list still renders the axes and
// title.
func RenderChart(w io.Writer, series []Series, layout Layout, opts ChartOptions) error {
	chartSeries := make([]chart.Series, 0, len(series))
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)

	for i, s := range series {
		xs, ys := finitePoints(s.X, s.Y)
		if len(xs) == 0 {
			continue
		}

		for j := range xs {
			xMin, xMax = math.Min(xMin, xs[j]), math.Max(xMax, xs[j])
			yMin, yMax = math.Min(yMin, ys[j]), math.Max(yMax, ys[j])
		}

		chartSeries = append(chartSeries, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   chartStyle(i, s),
		})
	}

	hasData := len(chartSeries) > 0
	if !hasData {
		xMin, xMax, yMin, yMax = 0, 1, 0, 1
		// go-chart refuses to render without a series.
		chartSeries = append(chartSeries, chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				StrokeColor: drawing.ColorTransparent,
			},
		})
	}

	xMin, xMax = padRange(xMin, xMax)
	yMin, yMax = padRange(yMin, yMax)

	c := chart.Chart{
		Title:  layout.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:  layout.XAxis.Title,
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  layout.YAxis.Title,
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: chartSeries,
	}

	if hasData {
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}

	provider := chart.PNG
	if opts.Format == ChartSVG {
		provider = chart.SVG
	}

	if err := c.Render(provider, w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", opts.Format, err)
	}

	return nil
}

// Widens a degenerate range so the axis has a nonzero span.
func padRange(lo, hi float64) (float64, float64) {
	if hi > lo {
		return lo, hi
	}
	return lo - 1, hi + 1
}
