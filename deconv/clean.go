// Package deconv removes the response of a sampling kernel from a 1D dirty
// spectrum with a complex Högbom CLEAN.
package deconv

import (
	"math"
	"math/cmplx"

	"github.com/golang/glog"
)

const (
	DefaultGain    = 0.1
	DefaultMaxIter = 10000
)

// Cleaner deconvolves kernel from dirty, returning the clean components and
// the residual. Implementations must not modify their inputs.
type Cleaner interface {
	Clean(dirty, kernel []complex128, tol float64) (cleaned, residual []complex128)
}

// Hogbom is an iterative CLEAN over circularly shifted kernels.
type Hogbom struct {
	// Gain is the fraction of a peak removed per iteration.
	Gain float64
	// MaxIter bounds the number of iterations.
	MaxIter int
	// StopIfDiverging stops, and reverts the last step, once the residual
	// grows.
	StopIfDiverging bool
}

// NewHogbom returns a cleaner with the usual loop gain and iteration limit.
func NewHogbom() *Hogbom {
	return &Hogbom{
		Gain:            DefaultGain,
		MaxIter:         DefaultMaxIter,
		StopIfDiverging: true,
	}
}

func abs2(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

func rms(v []complex128) float64 {
	sum := 0.0
	for _, c := range v {
		sum += abs2(c)
	}
	return math.Sqrt(sum / float64(len(v)))
}

// Clean terminates once an iteration improves the residual RMS by less than
// tol relative to the initial RMS.
func (h *Hogbom) Clean(dirty, kernel []complex128, tol float64) ([]complex128, []complex128) {
	n := len(dirty)
	model := make([]complex128, n)
	res := make([]complex128, n)
	copy(res, dirty)
	if n == 0 || len(kernel) != n {
		return model, res
	}

	// Gain-normalize by the kernel peak.
	peak, nk := 0.0, 0
	for i, k := range kernel {
		if v := abs2(k); v > peak {
			peak, nk = v, i
		}
	}
	if peak == 0 {
		return model, res
	}
	q := 1 / kernel[nk]

	first := rms(res)
	if first == 0 {
		return model, res
	}
	score := first
	iter := 0
	for ; iter < h.MaxIter; iter++ {
		arg, best := 0, -1.0
		for i, r := range res {
			if v := abs2(r); v > best {
				arg, best = i, v
			}
		}
		step := res[arg] * q * complex(h.Gain, 0)
		model[arg] += step
		for i, k := range kernel {
			res[(i+arg)%n] -= k * step
		}

		next := rms(res)
		if h.StopIfDiverging && next > score {
			model[arg] -= step
			for i, k := range kernel {
				res[(i+arg)%n] += k * step
			}
			glog.V(3).Infof("clean diverged after %d iterations", iter)
			break
		}
		converged := (score-next)/first < tol
		score = next
		if converged {
			break
		}
	}
	glog.V(3).Infof("clean stopped after %d iterations, residual %g of %g (peak %g)", iter, score, first, cmplx.Abs(kernel[nk]))
	return model, res
}
