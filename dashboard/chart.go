package dashboard

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultChartWidth  = 1024
	defaultChartHeight = 600
)

// RenderPNG draws the figure as a PNG image. go-chart cannot draw a range of
// zero width, so single points are padded to two X values and flat data gets
// an explicit Y range.
func RenderPNG(w io.Writer, fig Figure, width, height int) error {
	if width <= 0 {
		width = defaultChartWidth
	}
	if height <= 0 {
		height = defaultChartHeight
	}

	bg := hexColor(fig.Layout.PaperBGColor)
	c := chart.Chart{
		Title:  fig.Layout.Title.Text,
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: bg,
			Padding: chart.Box{
				Top:    fig.Layout.Margin.T,
				Left:   fig.Layout.Margin.L,
				Right:  fig.Layout.Margin.R,
				Bottom: fig.Layout.Margin.B,
			},
		},
		Canvas: chart.Style{FillColor: hexColor(fig.Layout.PlotBGColor)},
		XAxis:  chart.XAxis{Name: fig.Layout.XAxis.Title.Text},
		YAxis:  chart.YAxis{Name: fig.Layout.YAxis.Title.Text},
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, tr := range fig.Data {
		n := len(tr.X)
		if len(tr.Y) < n {
			n = len(tr.Y)
		}
		if n == 0 {
			continue
		}

		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := 0; i < n; i++ {
			xs[i] = float64(tr.X[i])
			ys[i] = tr.Y[i]
			minY = math.Min(minY, ys[i])
			maxY = math.Max(maxY, ys[i])
		}
		if n == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}

		col := hexColor(tr.Line.Color)
		c.Series = append(c.Series, chart.ContinuousSeries{
			Name:    tr.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: float64(tr.Line.Width),
				DotColor:    col,
				DotWidth:    float64(tr.Marker.Size) / 2,
			},
		})
	}

	if len(c.Series) == 0 {
		c.Series = []chart.Series{chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 0},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
		}}
		c.YAxis.Range = &chart.ContinuousRange{Min: 0, Max: 1}
	} else {
		if maxY <= minY {
			c.YAxis.Range = &chart.ContinuousRange{Min: minY, Max: minY + 1}
		}
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}

	if err := c.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("could not render chart: %w", err)
	}

	return nil
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
