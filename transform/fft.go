// Package transform moves visibilities into the delay and fringe-rate
// domains and removes locally linear trends.
package transform

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT caches plans per length. It is not safe for concurrent use.
type FFT struct {
	plans map[int]*fourier.CmplxFFT
}

func NewFFT() *FFT {
	return &FFT{plans: map[int]*fourier.CmplxFFT{}}
}

func (f *FFT) plan(n int) *fourier.CmplxFFT {
	p, ok := f.plans[n]
	if !ok {
		p = fourier.NewCmplxFFT(n)
		f.plans[n] = p
	}
	return p
}

// Forward computes sum_k x[k] exp(-2πi jk/n).
func (f *FFT) Forward(x []complex128) []complex128 {
	if len(x) == 0 {
		return nil
	}
	return f.plan(len(x)).Coefficients(nil, x)
}

// Inverse computes (1/n) sum_k x[k] exp(+2πi jk/n). gonum leaves the
// backward transform unscaled.
func (f *FFT) Inverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return nil
	}
	out := f.plan(len(x)).Sequence(nil, x)
	scale := complex(1/float64(len(x)), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// Center swaps the two halves of v, split at len(v)/2, so that the zero
// bin lands in the middle.
func Center(v []complex128) []complex128 {
	h := len(v) / 2
	out := make([]complex128, 0, len(v))
	out = append(out, v[h:]...)
	return append(out, v[:h]...)
}

// Uncenter undoes Center.
func Uncenter(v []complex128) []complex128 {
	h := len(v) - len(v)/2
	out := make([]complex128, 0, len(v))
	out = append(out, v[h:]...)
	return append(out, v[:h]...)
}
