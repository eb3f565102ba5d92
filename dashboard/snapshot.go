// Package dashboard turns the sampled series into what the web dashboard
// shows: current readouts and a multi-series line chart.
package dashboard

import (
	"fmt"

	"github.com/czerwonk/netperf_monitor/series"
)

const (
	chartTitle  = "Internet Speed and Latency"
	xAxisTitle  = "Time (Intervals)"
	yAxisTitle  = "Speed (Mbps) / Latency (ms)"
	background  = "#f0f4f8"
	fontFamily  = "Arial, sans-serif"
	traceMode   = "lines+markers"
	lineWidth   = 2
	markerSize  = 5
	axisColor   = "black"
	chartMargin = 40
)

// metric describes how one reading is labelled and coloured.
type metric struct {
	id         string
	label      string
	traceName  string
	unit       string
	color      string
	background string
}

var (
	latencyMetric  = metric{"latency", "Latency (ms)", "Latency (ms)", "ms", "#ff6f00", "#ffe0b2"}
	uploadMetric   = metric{"upload", "Upload Speed", "Upload Speed (Mbps)", "Mbps", "#43a047", "#c8e6c9"}
	downloadMetric = metric{"download", "Download Speed", "Download Speed (Mbps)", "Mbps", "#1976d2", "#bbdefb"}
)

// Source provides the series to render.
type Source interface {
	Snapshot() series.Series
}

// Stat is one current-value readout.
type Stat struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Text       string  `json:"text"`
	Color      string  `json:"color"`
	Background string  `json:"background"`
}

// Snapshot is the payload computed for one refresh tick.
type Snapshot struct {
	Stats  []Stat `json:"stats"`
	Chart  Figure `json:"chart"`
	Points int    `json:"points"`

	// LatencyReachable is false when the last latency probe got no reply.
	LatencyReachable bool `json:"latency_reachable"`
}

// Stat returns the readout with the given id.
func (s Snapshot) Stat(id string) (Stat, bool) {
	for _, st := range s.Stats {
		if st.ID == id {
			return st, true
		}
	}

	return Stat{}, false
}

// Presenter computes snapshots from a Source. It never modifies the source.
type Presenter struct {
	source Source
}

// NewPresenter returns a presenter reading from source.
func NewPresenter(source Source) *Presenter {
	return &Presenter{source: source}
}

// ComputeSnapshot reads the current series and builds the readouts and the
// chart. An empty series yields zero readouts and empty traces.
func (p *Presenter) ComputeSnapshot() Snapshot {
	s := p.source.Snapshot().Clamp()
	latest, ok := s.Latest()

	return Snapshot{
		Stats: []Stat{
			newStat(latencyMetric, latest.LatencyMs),
			newStat(uploadMetric, latest.UploadMbps),
			newStat(downloadMetric, latest.DownloadMbps),
		},
		Chart:            newFigure(s),
		Points:           s.Len(),
		LatencyReachable: !ok || latest.Reachable,
	}
}

func newStat(m metric, v float64) Stat {
	return Stat{
		ID:         m.id,
		Label:      m.label,
		Value:      v,
		Unit:       m.unit,
		Text:       fmt.Sprintf("%.2f %s", v, m.unit),
		Color:      m.color,
		Background: m.background,
	}
}
