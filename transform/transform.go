package transform

import (
	"math"

	"github.com/hb9tf/plotuv/deconv"
	"github.com/hb9tf/plotuv/marray"
)

// Engine applies the delay and fringe-rate transforms.
type Engine struct {
	fft     *FFT
	cleaner deconv.Cleaner

	// CleanTol enables deconvolution of the flagging response when set.
	CleanTol *float64
	// Unmask transforms the raw samples, flagged ones included, without
	// compensating for the flags.
	Unmask bool
}

func NewEngine(cleaner deconv.Cleaner, cleanTol *float64, unmask bool) *Engine {
	if cleaner == nil {
		cleaner = deconv.NewHogbom()
	}
	return &Engine{
		fft:      NewFFT(),
		cleaner:  cleaner,
		CleanTol: cleanTol,
		Unmask:   unmask,
	}
}

func allZero(v []complex128) bool {
	for _, c := range v {
		if c != 0 {
			return false
		}
	}
	return true
}

// kernel returns the response of the sampling pattern and the gain needed to
// rescale CLEAN residuals.
func (e *Engine) kernel(valid []bool) ([]complex128, float64) {
	flags := make([]complex128, len(valid))
	n := 0
	for i, ok := range valid {
		if ok {
			flags[i] = 1
			n++
		}
	}
	gain := math.Sqrt(float64(n) / float64(len(valid)))
	return e.fft.Inverse(flags), gain
}

// clean deconvolves ker from d in place, adding back the rescaled residual.
func (e *Engine) clean(d, ker []complex128, gain float64) {
	if e.CleanTol == nil || allZero(d) {
		return
	}
	cleaned, res := e.cleaner.Clean(d, ker, *e.CleanTol)
	for i := range d {
		d[i] = cleaned[i] + res[i]/complex(gain, 0)
	}
}

// Delay transforms one spectrum into delay space with zero delay centered at
// len/2. The result carries no flags.
func (e *Engine) Delay(samples []complex128, flags []bool) []complex128 {
	n := len(samples)
	if n == 0 {
		return nil
	}
	d := make([]complex128, n)
	copy(d, samples)

	var ker []complex128
	gain := 1.0
	if e.Unmask {
		ker = make([]complex128, n)
		ker[0] = 1
	} else {
		valid := make([]bool, n)
		for i := range d {
			if flags != nil && flags[i] {
				d[i] = 0
				continue
			}
			valid[i] = true
		}
		ker, gain = e.kernel(valid)
	}

	d = e.fft.Inverse(d)
	e.clean(d, ker, gain)
	return Center(d)
}

// Fringe transforms every channel along time into fringe-rate space with
// zero rate centered at rows/2. A time sample counts as valid when its first
// channel is nonzero after flagged samples are zeroed.
func (e *Engine) Fringe(a *marray.Array) *marray.Array {
	d := a.Filled(0)
	if d.Rows == 0 || d.Cols == 0 {
		return d
	}
	valid := make([]bool, d.Rows)
	for r := range valid {
		valid[r] = d.At(r, 0) != 0
	}
	ker, gain := e.kernel(valid)

	out := marray.New(d.Rows, d.Cols)
	for c := 0; c < d.Cols; c++ {
		col, _ := d.Col(c)
		col = e.fft.Inverse(col)
		e.clean(col, ker, gain)
		out.SetCol(c, Center(col))
	}
	return out
}
