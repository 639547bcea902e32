// Package axis turns textual channel and time options into concrete
// selections.
//
// Options follow the grammar "all" | "<n>" | "<lo>_<hi>" | comma list of
// either. A list in which every element is a "<lo>_<hi>" pair selects
// half-open ranges; anything else selects discrete values.
package axis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

const All = "all"

// Coordinate systems for axis options and plot axes.
const (
	CoordIndex    = "index"
	CoordPhysical = "physical"
	CoordLST      = "lst"
)

// ParseError reports a token of an axis option that is not a number.
type ParseError struct {
	Option string
	Token  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse %q in axis option %q: %s", e.Token, e.Option, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errNotFinite = errors.New("value is not finite")

// Parse splits opt on "," and each segment on "_" into numbers.
func Parse(opt string) ([][]float64, error) {
	var out [][]float64
	for _, seg := range strings.Split(opt, ",") {
		var vals []float64
		for _, tok := range strings.Split(seg, "_") {
			v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
			if err != nil {
				return nil, &ParseError{Option: opt, Token: tok, Err: err}
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, &ParseError{Option: opt, Token: tok, Err: errNotFinite}
			}
			vals = append(vals, v)
		}
		out = append(out, vals)
	}
	return out, nil
}

// Spec is a parsed axis option classified as ranges or discrete values.
type Spec struct {
	// Ranges holds [lo, hi) pairs when IsRange is set.
	Ranges [][2]float64
	// Values holds discrete values when IsRange is not set.
	Values  []float64
	IsRange bool
	// Demoted is set when the option mixed pairs with other element sizes
	// and was therefore read as a flat list of values.
	Demoted bool
}

// Classify parses opt and decides between range and list semantics.
func Classify(opt string) (*Spec, error) {
	segs, err := Parse(opt)
	if err != nil {
		return nil, err
	}
	spec := &Spec{IsRange: true}
	for _, seg := range segs {
		if len(seg) != 2 {
			spec.IsRange = false
			break
		}
	}
	if spec.IsRange {
		for _, seg := range segs {
			spec.Ranges = append(spec.Ranges, [2]float64{seg[0], seg[1]})
		}
		return spec, nil
	}
	for _, seg := range segs {
		if len(seg) != 1 {
			spec.Demoted = true
		}
		spec.Values = append(spec.Values, seg...)
	}
	if spec.Demoted {
		glog.Warningf("axis option %q mixes ranges and single values, treating it as a list of %d values", opt, len(spec.Values))
	}
	return spec, nil
}
