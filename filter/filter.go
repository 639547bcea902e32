package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hb9tf/plotuv/uv"
)

type Filterer interface {
	ShouldIgnore(*uv.Record) bool
}

// ShouldIgnore reports whether any of the filters rejects rec.
func ShouldIgnore(rec *uv.Record, filters []Filterer) bool {
	for _, f := range filters {
		if f.ShouldIgnore(rec) {
			return true
		}
	}
	return false
}

type antRule struct {
	exclude bool
	// j is -1 when the rule matches every baseline containing i.
	i, j int
}

func (r antRule) matches(bl uv.Baseline) bool {
	if r.j < 0 {
		return bl.I == r.i || bl.J == r.i
	}
	return (bl.I == r.i && bl.J == r.j) || (bl.I == r.j && bl.J == r.i)
}

// FilterAnt selects baselines by antenna. See ParseAnt for the grammar.
type FilterAnt struct {
	Auto  bool
	Cross bool
	rules []antRule
}

// ParseAnt parses "all", "auto", "cross" or a comma list of "<i>" (every
// baseline with antenna i) and "<i>_<j>" (one baseline). A leading "-"
// excludes the element instead.
func ParseAnt(opt string) (*FilterAnt, error) {
	f := &FilterAnt{Auto: true, Cross: true}
	switch opt {
	case "", "all":
		return f, nil
	case "auto":
		f.Cross = false
		return f, nil
	case "cross":
		f.Auto = false
		return f, nil
	}
	for _, tok := range strings.Split(opt, ",") {
		tok = strings.TrimSpace(tok)
		r := antRule{j: -1}
		if strings.HasPrefix(tok, "-") {
			r.exclude = true
			tok = tok[1:]
		}
		parts := strings.Split(tok, "_")
		if len(parts) > 2 {
			return nil, fmt.Errorf("invalid antenna selection %q", tok)
		}
		var err error
		if r.i, err = strconv.Atoi(parts[0]); err != nil {
			return nil, fmt.Errorf("invalid antenna %q: %w", parts[0], err)
		}
		if len(parts) == 2 {
			if r.j, err = strconv.Atoi(parts[1]); err != nil {
				return nil, fmt.Errorf("invalid antenna %q: %w", parts[1], err)
			}
		}
		f.rules = append(f.rules, r)
	}
	return f, nil
}

func (f *FilterAnt) ShouldIgnore(rec *uv.Record) bool {
	bl := rec.Baseline
	if bl.IsAuto() && !f.Auto {
		return true
	}
	if !bl.IsAuto() && !f.Cross {
		return true
	}
	included := true
	for _, r := range f.rules {
		if !r.exclude {
			// At least one inclusion rule means only listed baselines pass.
			included = false
			break
		}
	}
	for _, r := range f.rules {
		if !r.matches(bl) {
			continue
		}
		if r.exclude {
			return true
		}
		included = true
	}
	return !included
}

// FilterPol keeps the listed polarizations. An empty list keeps everything.
type FilterPol struct {
	Pols []string
}

// ParsePol parses "all" or a comma list of polarization codes such as "xx,yy".
func ParsePol(opt string) *FilterPol {
	if opt == "" || opt == "all" {
		return &FilterPol{}
	}
	f := &FilterPol{}
	for _, p := range strings.Split(opt, ",") {
		f.Pols = append(f.Pols, strings.ToLower(strings.TrimSpace(p)))
	}
	return f
}

func (f *FilterPol) ShouldIgnore(rec *uv.Record) bool {
	if len(f.Pols) == 0 {
		return false
	}
	for _, p := range f.Pols {
		if strings.EqualFold(p, rec.Polarization) {
			return false
		}
	}
	return true
}
