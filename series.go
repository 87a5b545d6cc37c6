package mirrorplot

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

const (
	ModeMarkers      = "markers"
	ModeLinesMarkers = "lines+markers"
	TraceScatter     = "scatter"

	// The one series drawn as a connected line gets this color on both its
	// marker and its line.
	HighlightColor = "goldenrod"

	// Styling is keyed on position, not on agent identity.
	highlightIndex = 2
)

// Display names, assigned positionally. A series past the end of this list
// has no name.
var SeriesNames = []string{"Mirror A", "Mirror B", "Light"}

type Style struct {
	Color string `json:"color,omitempty"`
}

// Coords is a coordinate array as the plotting widget expects it. NaN and
// infinities are written as null, which the widget draws as a gap.
type Coords []float64

func (c Coords) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range c {
		if i > 0 {
			buf.WriteByte(',')
		}

		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}

		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

func (c *Coords) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	coords := make(Coords, len(raw))
	for i, v := range raw {
		if v == nil {
			coords[i] = math.NaN()
			continue
		}
		coords[i] = *v
	}

	*c = coords
	return nil
}

// Series is one named trace of the plot, holding a single agent's positions
// across all records that contained it.
type Series struct {
	AgentID string `json:"-"`

	X      Coords `json:"x"`
	Y      Coords `json:"y"`
	Mode   string `json:"mode"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Marker Style  `json:"marker"`
	Line   Style  `json:"line"`
}

// Builds one series per agent identifier, in the order the identifiers are
// first seen across the dataset. No alignment is done: an agent missing from
// some frames ends up with shorter arrays than the others.
func BuildSeries(dataset Dataset) []Series {
	series := make([]Series, 0)
	indexByAgent := make(map[string]int)

	for _, record := range dataset {
		for _, entry := range record.Frame {
			i, ok := indexByAgent[entry.AgentID]
			if !ok {
				i = len(series)
				indexByAgent[entry.AgentID] = i
				series = append(series, newStyledSeries(i, entry.AgentID))
			}

			series[i].X = append(series[i].X, entry.Sample.X)
			series[i].Y = append(series[i].Y, entry.Sample.Y)
		}
	}

	return series
}

func newStyledSeries(index int, agentID string) Series {
	s := Series{
		AgentID: agentID,
		X:       Coords{},
		Y:       Coords{},
		Mode:    ModeMarkers,
		Type:    TraceScatter,
	}

	if index < len(SeriesNames) {
		s.Name = SeriesNames[index]
	}

	if index == highlightIndex {
		s.Mode = ModeLinesMarkers
		s.Marker = Style{Color: HighlightColor}
		s.Line = Style{Color: HighlightColor}
	}

	return s
}
