// Package display decides how reduced visibilities are laid out and labels
// their axes.
package display

import (
	"fmt"
	"math"

	"github.com/hb9tf/plotuv/accum"
	"github.com/hb9tf/plotuv/axis"
	"github.com/hb9tf/plotuv/marray"
	"github.com/hb9tf/plotuv/uv"
)

type Layout int

const (
	// LayoutImage plots time against channel as a 2D image.
	LayoutImage Layout = iota
	// LayoutChannelLines plots one line per time sample against channel.
	LayoutChannelLines
	// LayoutTimeLines plots one line per channel against time.
	LayoutTimeLines
)

func (l Layout) String() string {
	switch l {
	case LayoutImage:
		return "image"
	case LayoutChannelLines:
		return "channel-lines"
	case LayoutTimeLines:
		return "time-lines"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// AmbiguousAxisError is returned when neither axis is a range.
type AmbiguousAxisError struct{}

func (e *AmbiguousAxisError) Error() string {
	return "either time or channel must be a range"
}

// InvalidTimeAxisError reports a time axis keyword that cannot label a plot.
type InvalidTimeAxisError struct {
	Axis string
}

func (e *InvalidTimeAxisError) Error() string {
	return fmt.Sprintf("unrecognized time axis type %q", e.Axis)
}

// Params describes the selections and transforms shared by every panel.
type Params struct {
	ChanIsRange bool
	TimeIsRange bool
	SumChan     bool

	Delay  bool
	Fringe bool
	// DetrendFreq and DetrendTime shrink the data by two samples along
	// their axis.
	DetrendFreq bool
	DetrendTime bool

	ChanAxis string
	TimeAxis string

	// Chans are the selected channels or delay bins.
	Chans  []int
	Freqs  []float64 // GHz, one per entry of Chans
	Delays []float64 // ns, one per entry of Chans
	Times  accum.TimeAxis
	// IntTime is the decimated integration time in seconds.
	IntTime float64

	PlotMax *float64
	DynRng  *float64
}

// ChooseLayout picks the panel layout from the range flags of both axes.
func ChooseLayout(p *Params) (Layout, error) {
	chanRange := p.ChanIsRange && !p.SumChan
	switch {
	case chanRange && p.TimeIsRange:
		return LayoutImage, nil
	case chanRange:
		return LayoutChannelLines, nil
	case p.TimeIsRange:
		return LayoutTimeLines, nil
	}
	return 0, &AmbiguousAxisError{}
}

// Legend reports whether line labels should be shown, which is the case
// whenever at least one axis is not a full range.
func Legend(p *Params) bool {
	return !(p.ChanIsRange && !p.SumChan && p.TimeIsRange)
}

// Extent locates the image corners in axis coordinates. Row 0 is drawn at
// Top.
type Extent struct {
	Left, Right float64
	Top, Bottom float64
}

type Line struct {
	Label string
	X     []float64
	// Y is NaN where the value is masked.
	Y []float64
}

type Panel struct {
	Title  string
	Layout Layout
	Data   *marray.Real

	// RowCoords and ColCoords label every row and column of Data.
	RowCoords []float64
	ColCoords []float64

	Extent Extent
	Lines  []Line

	// Min and Max bound the color scale of images and the y axis of lines.
	Min, Max float64

	XLabel string
	YLabel string
}

func (p *Params) chanCoords() []float64 {
	n := len(p.Chans)
	out := make([]float64, n)
	for i := range out {
		switch {
		case p.Delay && p.ChanAxis == axis.CoordIndex:
			out[i] = float64(n/2 - n + i)
		case p.Delay:
			out[i] = p.Delays[i]
		case p.ChanAxis == axis.CoordIndex:
			out[i] = float64(p.Chans[i])
		default:
			out[i] = p.Freqs[i]
		}
	}
	return out
}

func (p *Params) chanLabel() string {
	switch {
	case p.Delay && p.ChanAxis == axis.CoordIndex:
		return "Delay (bins)"
	case p.Delay:
		return "Delay (ns)"
	case p.ChanAxis == axis.CoordIndex:
		return "Frequency (chan)"
	}
	return "Frequency (GHz)"
}

// fringeStep is the width of one fringe rate bin in milliHz.
func (p *Params) fringeStep() float64 {
	return 1000 / (p.IntTime * float64(p.Times.Len()))
}

func (p *Params) timeCoords() []float64 {
	n := p.Times.Len()
	out := make([]float64, n)
	for i := range out {
		switch {
		case p.Fringe && p.TimeAxis == axis.CoordIndex:
			out[i] = float64(n/2 - n + i)
		case p.Fringe:
			out[i] = -500/p.IntTime + float64(i)*p.fringeStep()
		case p.TimeAxis == axis.CoordIndex:
			out[i] = float64(p.Times.Cnt[i])
		default:
			out[i] = p.Times.JD[i]
		}
	}
	return out
}

func (p *Params) timeLabel() string {
	switch {
	case p.Fringe && p.TimeAxis == axis.CoordIndex:
		return "Fringe Rate (bins)"
	case p.Fringe:
		return "Fringe Rate (milliHz)"
	case p.TimeAxis == axis.CoordIndex:
		return "Time (integrations)"
	}
	return "Time (Julian Date)"
}

func first(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}

// extent places the image corners. rows and cols are the coordinates left
// after trimming; a detrended axis spans exactly those.
func (p *Params) extent(rows, cols []float64) Extent {
	var e Extent
	n := p.Times.Len()
	switch {
	case p.DetrendTime:
		e.Top, e.Bottom = first(rows), last(rows)
	case p.Fringe && p.TimeAxis == axis.CoordIndex:
		e.Top, e.Bottom = float64(n/2-n), float64(n/2)
	case p.Fringe:
		e.Top = -500 / p.IntTime
		e.Bottom = 500/p.IntTime - p.fringeStep()
	default:
		e.Top, e.Bottom = first(rows), last(rows)
	}
	c := len(p.Chans)
	switch {
	case p.DetrendFreq:
		e.Left, e.Right = first(cols), last(cols)
	case p.Delay && p.ChanAxis == axis.CoordIndex:
		e.Left, e.Right = float64(c/2-c), float64(c/2)
	case p.ChanAxis == axis.CoordIndex && !p.Delay:
		e.Left, e.Right = 0, float64(c-1)
	default:
		e.Left, e.Right = first(cols), last(cols)
	}
	return e
}

// trim drops the outer samples of a detrended axis so that every remaining
// coordinate labels the center of its three-sample stencil.
func trim(v []float64, detrended bool) []float64 {
	if !detrended {
		return v
	}
	if len(v) < 2 {
		return nil
	}
	return v[1 : len(v)-1]
}

func (p *Params) bounds(data *marray.Real) (float64, float64) {
	min, max, _ := data.MinMax()
	if p.PlotMax != nil {
		max = *p.PlotMax
	}
	if p.DynRng != nil {
		min = max - *p.DynRng
	}
	return min, max
}

func value(data *marray.Real, r, c int) float64 {
	if data.Masked(r, c) {
		return math.NaN()
	}
	return data.At(r, c)
}

// Build lays out one baseline's reduced data.
func Build(p *Params, bl uv.Baseline, data *marray.Real) (*Panel, error) {
	layout, err := ChooseLayout(p)
	if err != nil {
		return nil, err
	}
	panel := &Panel{
		Title:     bl.String(),
		Layout:    layout,
		Data:      data,
		RowCoords: trim(p.timeCoords(), p.DetrendTime),
		ColCoords: trim(p.chanCoords(), p.DetrendFreq),
	}
	panel.Min, panel.Max = p.bounds(data)

	switch layout {
	case LayoutImage:
		panel.Extent = p.extent(panel.RowCoords, panel.ColCoords)
		panel.XLabel = p.chanLabel()
		panel.YLabel = p.timeLabel()

	case LayoutChannelLines:
		panel.XLabel = p.chanLabel()
		labels := trim(p.Times.JD, p.DetrendTime)
		format := "jd%f"
		if p.TimeAxis == axis.CoordIndex {
			labels = trim(intsToFloats(p.Times.Cnt), p.DetrendTime)
			format = "#%d"
		}
		for r := 0; r < data.Rows && r < len(labels); r++ {
			line := Line{X: panel.ColCoords}
			if format == "#%d" {
				line.Label = fmt.Sprintf(format, int(labels[r]))
			} else {
				line.Label = fmt.Sprintf(format, labels[r])
			}
			for c := 0; c < data.Cols && c < len(line.X); c++ {
				line.Y = append(line.Y, value(data, r, c))
			}
			line.X = line.X[:len(line.Y)]
			panel.Lines = append(panel.Lines, line)
		}

	case LayoutTimeLines:
		var x []float64
		switch p.TimeAxis {
		case axis.CoordIndex:
			x = make([]float64, p.Times.Len())
			for i := range x {
				x[i] = float64(i)
			}
			panel.XLabel = "Time (integrations)"
		case axis.CoordPhysical:
			x = p.Times.JD
			panel.XLabel = "Time (Julian Date)"
		case axis.CoordLST:
			x = p.Times.LST
			panel.XLabel = "Local Sidereal Time (radians)"
		default:
			return nil, &InvalidTimeAxisError{Axis: p.TimeAxis}
		}
		x = trim(x, p.DetrendTime)
		panel.RowCoords = x

		column := func(c int, label string) Line {
			line := Line{Label: label}
			for r := 0; r < data.Rows && r < len(x); r++ {
				line.X = append(line.X, x[r])
				line.Y = append(line.Y, value(data, r, c))
			}
			return line
		}
		if p.SumChan {
			panel.Lines = append(panel.Lines, column(0, "(+)"))
			break
		}
		chanLabels := trim(intsToFloats(p.Chans), p.DetrendFreq)
		format := "#%d"
		if p.ChanAxis != axis.CoordIndex {
			chanLabels = trim(p.Freqs, p.DetrendFreq)
			format = "%f GHz"
		}
		for c := 0; c < data.Cols && c < len(chanLabels); c++ {
			label := fmt.Sprintf(format, chanLabels[c])
			if format == "#%d" {
				label = fmt.Sprintf(format, int(chanLabels[c]))
			}
			panel.Lines = append(panel.Lines, column(c, label))
		}
	}
	return panel, nil
}

func intsToFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
