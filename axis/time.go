package axis

import (
	"fmt"

	"github.com/hb9tf/plotuv/uv"
)

// TimePredicate decides whether a time sample is plotted, given its Julian
// date and its index after decimation.
type TimePredicate func(t float64, cnt int) bool

type TimeSelection struct {
	Accept  TimePredicate
	IsRange bool
	Demoted bool
}

// IntegrationWindow returns the span in days of one decimated sample.
func IntegrationWindow(inttime float64, decimate int) float64 {
	return inttime / uv.SecondsPerDay * float64(decimate)
}

func acceptAll(float64, int) bool { return true }

// SelectTimes resolves a time option. A fringe transform needs the full time
// series, so it selects everything regardless of opt.
func SelectTimes(opt string, inttime float64, coords string, decimate int, fringe bool) (*TimeSelection, error) {
	switch coords {
	case CoordIndex, CoordPhysical, CoordLST:
	default:
		return nil, fmt.Errorf("unknown time axis %q, pick one of: %s, %s, %s", coords, CoordIndex, CoordPhysical, CoordLST)
	}
	if opt == All || fringe {
		return &TimeSelection{Accept: acceptAll, IsRange: true}, nil
	}

	spec, err := Classify(opt)
	if err != nil {
		return nil, err
	}
	byIndex := coords == CoordIndex
	sel := &TimeSelection{IsRange: spec.IsRange, Demoted: spec.Demoted}
	if spec.IsRange {
		ranges := spec.Ranges
		sel.Accept = func(t float64, cnt int) bool {
			if byIndex {
				t = float64(cnt)
			}
			for _, r := range ranges {
				if t >= r[0] && t < r[1] {
					return true
				}
			}
			return false
		}
		return sel, nil
	}

	values := spec.Values
	window := IntegrationWindow(inttime, decimate)
	sel.Accept = func(t float64, cnt int) bool {
		for _, v := range values {
			if byIndex {
				if float64(cnt) == v {
					return true
				}
				continue
			}
			if t >= v && t < v+window {
				return true
			}
		}
		return false
	}
	return sel, nil
}
