package mirrorplot

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
)

func loadTestSeries(t *testing.T) []Series {
	t.Helper()

	dataset, err := NewFileLoader("testdata/data.json").Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load test data: %v", err)
	}
	return BuildSeries(dataset)
}

func TestRenderChart(t *testing.T) {
	series := loadTestSeries(t)

	t.Run("PNG", func(t *testing.T) {
		var buf bytes.Buffer
		err := RenderChart(&buf, series, DefaultLayout(), ChartOptions{Format: ChartPNG, Width: 640, Height: 480})
		if err != nil {
			t.Fatalf("RenderChart() error = %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
			t.Fatalf("expected a PNG signature, got % x", buf.Bytes()[:Min(8, buf.Len())])
		}
	})

	t.Run("SVG", func(t *testing.T) {
		var buf bytes.Buffer
		err := RenderChart(&buf, series, DefaultLayout(), ChartOptions{Format: ChartSVG, Width: 640, Height: 480})
		if err != nil {
			t.Fatalf("RenderChart() error = %v", err)
		}

		svg := buf.String()
		if !strings.Contains(svg, "<svg") {
			t.Fatalf("expected an SVG document, got %.100s", svg)
		}
		for _, text := range []string{"Mirror A", "Mirror B", "Light"} {
			if !strings.Contains(svg, text) {
				t.Errorf("expected legend entry %q in the SVG", text)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderChart(&buf, []Series{}, DefaultLayout(), ChartOptions{Format: ChartSVG}); err != nil {
			t.Fatalf("RenderChart() error = %v", err)
		}
		if !strings.Contains(buf.String(), "<svg") {
			t.Fatalf("expected an SVG document for empty input")
		}
	})

	t.Run("SinglePointAndMissingCoordinates", func(t *testing.T) {
		dataset := mustDecodeDataset(t, `[[0,1,{"0":{"x":1,"y":1},"1":{"x":2}}]]`)

		var buf bytes.Buffer
		if err := RenderChart(&buf, BuildSeries(dataset), DefaultLayout(), ChartOptions{Format: ChartPNG}); err != nil {
			t.Fatalf("RenderChart() error = %v", err)
		}
	})
}

func TestChartStyle(t *testing.T) {
	series := BuildSeries(makeDataset([]string{"0", "1", "2"}))

	markers := chartStyle(0, series[0])
	if markers.StrokeWidth > 0 {
		t.Errorf("expected no stroke for marker-only series, got %v", markers.StrokeWidth)
	}
	if markers.DotWidth <= 0 {
		t.Errorf("expected dots for marker-only series, got %v", markers.DotWidth)
	}

	light := chartStyle(2, series[2])
	goldenrod := namedColors[HighlightColor]
	if light.StrokeWidth <= 0 || light.StrokeColor != goldenrod || light.DotColor != goldenrod {
		t.Errorf("expected goldenrod line and markers, got %+v", light)
	}

	if chartStyle(0, series[0]).DotColor == chartStyle(1, series[1]).DotColor {
		t.Errorf("expected distinct default colors for the first two series")
	}
}

func TestChartFormatFromPath(t *testing.T) {
	tests := map[string]ChartFormat{
		"plot.png": ChartPNG,
		"plot.svg": ChartSVG,
		"PLOT.SVG": ChartSVG,
		"plot":     ChartPNG,
	}

	for path, want := range tests {
		if got := ChartFormatFromPath(path); got != want {
			t.Errorf("ChartFormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestPadRange(t *testing.T) {
	if lo, hi := padRange(1, 3); lo != 1 || hi != 3 {
		t.Errorf("padRange(1, 3) = %v, %v", lo, hi)
	}
	if lo, hi := padRange(2, 2); lo != 1 || hi != 3 {
		t.Errorf("padRange(2, 2) = %v, %v", lo, hi)
	}
}

func TestRenderASCII(t *testing.T) {
	t.Run("Series", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderASCII(&buf, loadTestSeries(t), DefaultLayout(), ASCIIOptions{Height: 10}); err != nil {
			t.Fatalf("RenderASCII() error = %v", err)
		}

		out := buf.String()
		for _, text := range []string{"Mirror A", "Mirror B", "Light", "position coordinate x"} {
			if !strings.Contains(out, text) {
				t.Errorf("expected %q in output:\n%s", text, out)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderASCII(&buf, []Series{}, DefaultLayout(), ASCIIOptions{}); err != nil {
			t.Fatalf("RenderASCII() error = %v", err)
		}
		if !strings.Contains(buf.String(), "no plot data") {
			t.Fatalf("expected a no data notice, got %q", buf.String())
		}
	})

	t.Run("AllMissing", func(t *testing.T) {
		series := []Series{{X: Coords{math.NaN()}, Y: Coords{1}, Name: "Mirror A"}}

		var buf bytes.Buffer
		if err := RenderASCII(&buf, series, DefaultLayout(), ASCIIOptions{}); err != nil {
			t.Fatalf("RenderASCII() error = %v", err)
		}
		if !strings.Contains(buf.String(), "no plot data") {
			t.Fatalf("expected a no data notice, got %q", buf.String())
		}
	})
}
