package dashboard

import "github.com/czerwonk/netperf_monitor/series"

// Figure describes the chart in the JSON shape Plotly expects.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one plotted series.
type Trace struct {
	Type   string    `json:"type"`
	X      []int     `json:"x"`
	Y      []float64 `json:"y"`
	Mode   string    `json:"mode"`
	Name   string    `json:"name"`
	Line   Line      `json:"line"`
	Marker Marker    `json:"marker"`
}

// Line styles the stroke of a trace.
type Line struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

// Marker sets the size of the points drawn on a trace.
type Marker struct {
	Size int `json:"size"`
}

// Layout holds the title, axes and colors of the whole chart.
type Layout struct {
	Title        Title  `json:"title"`
	XAxis        Axis   `json:"xaxis"`
	YAxis        Axis   `json:"yaxis"`
	HoverMode    string `json:"hovermode"`
	PlotBGColor  string `json:"plot_bgcolor"`
	PaperBGColor string `json:"paper_bgcolor"`
	Font         Font   `json:"font"`
	Margin       Margin `json:"margin"`
}

// Title is a text label of the chart or an axis.
type Title struct {
	Text string `json:"text"`
}

// Axis describes one chart axis and its line.
type Axis struct {
	Title     Title  `json:"title"`
	ShowLine  bool   `json:"showline"`
	LineWidth int    `json:"linewidth"`
	LineColor string `json:"linecolor"`
}

// Font is the default font of all chart text.
type Font struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
}

// Margin is the space in pixels around the plot area.
type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// newFigure expects a clamped series.
func newFigure(s series.Series) Figure {
	x := s.Index
	if x == nil {
		x = []int{}
	}

	return Figure{
		Data: []Trace{
			newTrace(latencyMetric, x, s.Latency),
			newTrace(uploadMetric, x, s.Upload),
			newTrace(downloadMetric, x, s.Download),
		},
		Layout: Layout{
			Title:        Title{Text: chartTitle},
			XAxis:        newAxis(xAxisTitle),
			YAxis:        newAxis(yAxisTitle),
			HoverMode:    "closest",
			PlotBGColor:  background,
			PaperBGColor: background,
			Font:         Font{Family: fontFamily, Size: 12},
			Margin:       Margin{L: chartMargin, R: chartMargin, T: chartMargin, B: chartMargin},
		},
	}
}

func newTrace(m metric, x []int, y []float64) Trace {
	if y == nil {
		y = []float64{}
	}

	return Trace{
		Type:   "scatter",
		X:      x,
		Y:      y,
		Mode:   traceMode,
		Name:   m.traceName,
		Line:   Line{Color: m.color, Width: lineWidth},
		Marker: Marker{Size: markerSize},
	}
}

func newAxis(title string) Axis {
	return Axis{
		Title:     Title{Text: title},
		ShowLine:  true,
		LineWidth: 1,
		LineColor: axisColor,
	}
}
