// Package export writes the values behind rendered panels to CSV, SQL
// databases or a remote plotuv server.
package export

import (
	"context"
	"math"

	"github.com/hb9tf/plotuv/display"
)

type Exporter interface {
	Write(context.Context, <-chan Sample) error
}

// Sample is one displayed image cell or line point.
type Sample struct {
	// Identifier groups the samples of one run.
	Identifier string `json:"identifier"`
	Baseline   string `json:"baseline"`
	Mode       string `json:"mode"`
	// Series is the line label, empty for image cells.
	Series string `json:"series,omitempty"`
	// Row and Col index the image cell, or the line and point.
	Row int `json:"row"`
	Col int `json:"col"`
	// X and Y are the axis coordinates of an image cell. Line points only
	// carry X.
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Value  float64 `json:"value"`
	Masked bool    `json:"masked"`
}

func coord(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func emit(ctx context.Context, out chan<- Sample, s Sample) bool {
	if math.IsNaN(s.Value) {
		s.Value, s.Masked = 0, true
	}
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stream produces one sample per displayed value of panels. The returned
// channel is closed once every sample was sent or ctx is done.
func Stream(ctx context.Context, id, mode string, panels []*display.Panel) <-chan Sample {
	out := make(chan Sample, 1000)
	go func() {
		defer close(out)
		for _, p := range panels {
			if p.Layout == display.LayoutImage {
				d := p.Data
				for r := 0; r < d.Rows; r++ {
					for c := 0; c < d.Cols; c++ {
						if !emit(ctx, out, Sample{
							Identifier: id,
							Baseline:   p.Title,
							Mode:       mode,
							Row:        r,
							Col:        c,
							X:          coord(p.ColCoords, c),
							Y:          coord(p.RowCoords, r),
							Value:      d.At(r, c),
							Masked:     d.Masked(r, c),
						}) {
							return
						}
					}
				}
				continue
			}
			for li, l := range p.Lines {
				for i, v := range l.Y {
					if !emit(ctx, out, Sample{
						Identifier: id,
						Baseline:   p.Title,
						Mode:       mode,
						Series:     l.Label,
						Row:        li,
						Col:        i,
						X:          coord(l.X, i),
						Value:      v,
					}) {
						return
					}
				}
			}
		}
	}()
	return out
}

// Panels exports panels through e. The producer is stopped once e returns,
// including when e gives up before draining every sample.
func Panels(ctx context.Context, e Exporter, id, mode string, panels []*display.Panel) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	samples := Stream(ctx, id, mode, panels)
	err := e.Write(ctx, samples)
	cancel()
	for range samples {
	}
	return err
}
