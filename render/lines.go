package render

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/hb9tf/plotuv/display"
)

// lineSeries turns a display line into a chart series, dropping masked
// points. ok is false when no point is left.
func lineSeries(l display.Line, idx int) (chart.ContinuousSeries, bool) {
	var xs, ys []float64
	for i, y := range l.Y {
		if math.IsNaN(y) || i >= len(l.X) {
			continue
		}
		xs = append(xs, l.X[i])
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return chart.ContinuousSeries{}, false
	}
	if len(xs) == 1 {
		// Pad to at least two X values for go-chart.
		xs = append(xs, xs[0]+1e-9)
		ys = append(ys, ys[0])
	}
	col := chart.GetDefaultColor(idx)
	return chart.ContinuousSeries{
		Name:    l.Label,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: col,
			StrokeWidth: 1,
			DotColor:    col,
			DotWidth:    1.5,
		},
	}, true
}

// span widens a degenerate range so that go-chart accepts it.
func span(lo, hi float64) *chart.ContinuousRange {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = 0, 1
	}
	if hi <= lo {
		lo, hi = lo-0.5, lo+0.5
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func drawLinePanel(canvas *image.RGBA, tile image.Rectangle, p *display.Panel, legend bool) error {
	var series []chart.Series
	xlo, xhi := math.Inf(1), math.Inf(-1)
	for i, l := range p.Lines {
		s, ok := lineSeries(l, i)
		if !ok {
			continue
		}
		for _, x := range s.XValues {
			xlo, xhi = math.Min(xlo, x), math.Max(xhi, x)
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		drawString(canvas, tile.Min.X+(tile.Dx()-stringWidth(p.Title))/2, tile.Min.Y+fontHeight+2, p.Title, gridColor)
		return nil
	}

	ch := chart.Chart{
		Title:      p.Title,
		Width:      tile.Dx(),
		Height:     tile.Dy(),
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{Name: p.XLabel, Range: span(xlo, xhi)},
		YAxis:      chart.YAxis{Name: p.YLabel, Range: span(p.Min, p.Max)},
		Series:     series,
	}
	if legend {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return err
	}
	draw.Draw(canvas, tile, img, img.Bounds().Min, draw.Src)
	return nil
}
