// Package reduce converts complex visibilities into real display values.
package reduce

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/hb9tf/plotuv/marray"
)

type Mode string

const (
	ModeLog   Mode = "log"
	ModeLin   Mode = "lin"
	ModePhase Mode = "phs"
	ModeReal  Mode = "real"
	ModeImag  Mode = "imag"
)

// Modes are matched in this order.
var Modes = []Mode{ModePhase, ModeLin, ModeReal, ModeImag, ModeLog}

// InvalidModeError reports a display mode that matches none of Modes.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("unrecognized plot mode %q, pick one of: log, lin, phs, real, imag", e.Mode)
}

// ParseMode resolves a mode by prefix, e.g. "linear" is ModeLin.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.HasPrefix(s, string(m)) {
			return m, nil
		}
	}
	return "", &InvalidModeError{Mode: s}
}

// Reduce maps a to real values under mode.
//
// Phase ignores the mask: flagged samples read as a phase of 0. Log drops
// non-positive magnitudes, flagged samples included, by masking them.
func Reduce(a *marray.Array, mode Mode) (*marray.Real, error) {
	switch mode {
	case ModePhase:
		out := marray.Map(a.Filled(0), cmplx.Phase)
		return out, nil
	case ModeLin:
		return marray.Abs(a), nil
	case ModeReal:
		return marray.Map(a, func(c complex128) float64 { return real(c) }), nil
	case ModeImag:
		return marray.Map(a, func(c complex128) float64 { return imag(c) }), nil
	case ModeLog:
		out := marray.Abs(a.Filled(0))
		out.Mask = make([]bool, len(out.Data))
		for i, v := range out.Data {
			if v <= 0 {
				out.Mask[i] = true
				continue
			}
			out.Data[i] = math.Log10(v)
		}
		return out, nil
	}
	return nil, &InvalidModeError{Mode: string(mode)}
}

// SumChannels collapses the channel axis with a masked sum.
func SumChannels(a *marray.Array) *marray.Array {
	return a.SumCols()
}
