package mirrorplot

type AxisOptions struct {
	Title string `json:"title"`
}

// Layout is handed to the plotting widget alongside the series.
type Layout struct {
	Title string      `json:"title"`
	XAxis AxisOptions `json:"xaxis"`
	YAxis AxisOptions `json:"yaxis"`
}

// The y axis is labelled as time even though the series carry the simulator's
// y coordinate. The record timestamps are never plotted.
func DefaultLayout() Layout {
	return Layout{
		Title: "Light Between Translating Mirrors",
		XAxis: AxisOptions{Title: "position coordinate x"},
		YAxis: AxisOptions{Title: "time coordinate t"},
	}
}
