package mirrorplot

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
)

const maxASCIIWidth = 120

type ASCIIOptions struct {
	Height int
	// Zero picks the length of the longest series, capped at maxASCIIWidth.
	Width int
}

// Renders each series' x coordinate against its sample index, one line per
// series. A terminal has no room for the scatter itself, so this is the
// position-over-time view of the same data.
func RenderASCII(w io.Writer, series []Series, layout Layout, opts ASCIIOptions) error {
	data := make([][]float64, 0, len(series))
	legends := make([]string, 0, len(series))
	colors := make([]asciigraph.AnsiColor, 0, len(series))
	longest := 0

	for _, s := range series {
		if !hasFinite(s.X) {
			continue
		}

		data = append(data, s.X)
		legends = append(legends, s.Name)
		colors = append(colors, asciiColor(s))
		longest = Max(longest, len(s.X))
	}

	if len(data) == 0 {
		_, err := fmt.Fprintf(w, "%s: no plot data\n", layout.Title)
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = Min(longest, maxASCIIWidth)
	}

	height := opts.Height
	if height <= 0 {
		height = 20
	}

	plot := asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s: %s by sample", layout.Title, layout.XAxis.Title)),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	)

	_, err := fmt.Fprintln(w, plot)
	return err
}

func asciiColor(s Series) asciigraph.AnsiColor {
	if s.Line.Color == HighlightColor {
		return asciigraph.Goldenrod
	}
	return asciigraph.Default
}

func hasFinite(values []float64) bool {
	for _, v := range values {
		if isFinite(v) {
			return true
		}
	}
	return false
}
