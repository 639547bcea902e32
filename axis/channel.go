package axis

import (
	"fmt"
	"math"
	"sort"
)

// FreqAxis describes the frequency axis of a visibility file.
type FreqAxis struct {
	SFreq float64 // GHz
	SDF   float64 // GHz
	NChan int
}

// ChannelRangeError reports a channel range reaching past the frequency axis.
type ChannelRangeError struct {
	Chan  int
	NChan int
}

func (e *ChannelRangeError) Error() string {
	return fmt.Sprintf("channel %d out of range for %d channels", e.Chan, e.NChan)
}

type ChannelSelection struct {
	// Indices are channel numbers, or delay bins when a delay transform is
	// active. Always sorted ascending.
	Indices []int
	IsRange bool
	Demoted bool
}

// FreqToChan converts a frequency in GHz to the nearest channel.
func FreqToChan(freq float64, ax FreqAxis) float64 {
	return math.RoundToEven((freq - ax.SFreq) / ax.SDF)
}

// DelayToBin converts a delay in ns to the nearest delay bin, with zero delay
// at nchan/2.
func DelayToBin(delay float64, ax FreqAxis) float64 {
	return math.RoundToEven(delay*ax.SDF*float64(ax.NChan)) + float64(ax.NChan/2)
}

// IndexToBin shifts a signed delay index so that zero delay is at nchan/2.
func IndexToBin(idx float64, ax FreqAxis) float64 {
	return math.Trunc(idx) + float64(ax.NChan/2)
}

func channelConverter(coords string, delay bool) (func(float64, FreqAxis) float64, error) {
	switch {
	case coords == CoordIndex && delay:
		return IndexToBin, nil
	case coords == CoordIndex:
		return func(c float64, _ FreqAxis) float64 { return c }, nil
	case coords == CoordPhysical && delay:
		return DelayToBin, nil
	case coords == CoordPhysical:
		return FreqToChan, nil
	}
	return nil, fmt.Errorf("unknown channel axis %q, pick one of: %s, %s", coords, CoordIndex, CoordPhysical)
}

// SelectChannels resolves a channel option against the frequency axis.
// Ranges must lie within the axis. Discrete indices are not bounds checked.
func SelectChannels(opt string, ax FreqAxis, coords string, delay bool) (*ChannelSelection, error) {
	conv, err := channelConverter(coords, delay)
	if err != nil {
		return nil, err
	}
	if opt == All {
		sel := &ChannelSelection{IsRange: true, Indices: make([]int, ax.NChan)}
		for i := range sel.Indices {
			sel.Indices[i] = i
		}
		return sel, nil
	}

	spec, err := Classify(opt)
	if err != nil {
		return nil, err
	}
	sel := &ChannelSelection{IsRange: spec.IsRange, Demoted: spec.Demoted}
	if spec.IsRange {
		for _, r := range spec.Ranges {
			lo, hi := conv(r[0], ax), conv(r[1], ax)
			if lo >= hi {
				continue
			}
			if lo < 0 {
				return nil, &ChannelRangeError{Chan: int(math.Max(lo, math.MinInt32)), NChan: ax.NChan}
			}
			if hi > float64(ax.NChan) {
				return nil, &ChannelRangeError{Chan: ax.NChan, NChan: ax.NChan}
			}
			for c := lo; c < hi; c++ {
				sel.Indices = append(sel.Indices, int(c))
			}
		}
	} else {
		for _, v := range spec.Values {
			sel.Indices = append(sel.Indices, int(conv(v, ax)))
		}
	}
	sort.Ints(sel.Indices)
	return sel, nil
}
