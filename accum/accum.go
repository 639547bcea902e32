// Package accum groups the selected, decimated samples of a record stream by
// baseline.
package accum

import (
	"fmt"
	"sort"

	"github.com/hb9tf/plotuv/axis"
	"github.com/hb9tf/plotuv/marray"
	"github.com/hb9tf/plotuv/uv"
)

// TimeAxis holds one entry per accepted decimated time sample.
type TimeAxis struct {
	JD  []float64
	LST []float64
	// Cnt is the index of the sample after decimation.
	Cnt []int
}

func (t *TimeAxis) Len() int {
	return len(t.JD)
}

// RowFunc transforms a full spectrum before channels are extracted. It
// returns the new samples and flags (nil when nothing is flagged).
type RowFunc func(samples []complex128, flags []bool) ([]complex128, []bool)

type buffer struct {
	rows  [][]complex128
	masks [][]bool
}

// Accumulator is fed records in file order. It is not safe for concurrent
// use.
type Accumulator struct {
	decimate int
	accept   axis.TimePredicate
	chans    []int
	rowFunc  RowFunc

	rawTimes int
	lastTime float64
	use      bool

	times   TimeAxis
	buffers map[uv.Baseline]*buffer
}

// New returns an accumulator keeping every decimate-th time sample accepted
// by accept, restricted to chans. rowFunc may be nil.
func New(decimate int, accept axis.TimePredicate, chans []int, rowFunc RowFunc) *Accumulator {
	if decimate < 1 {
		decimate = 1
	}
	return &Accumulator{
		decimate: decimate,
		accept:   accept,
		chans:    chans,
		rowFunc:  rowFunc,
		buffers:  map[uv.Baseline]*buffer{},
	}
}

// Add ingests one record and reports whether it was kept.
func (a *Accumulator) Add(rec *uv.Record) (bool, error) {
	if a.rawTimes == 0 || rec.Time != a.lastTime {
		raw := a.rawTimes
		a.rawTimes++
		a.lastTime = rec.Time
		cnt := raw / a.decimate
		a.use = raw%a.decimate == 0 && a.accept(rec.Time, cnt)
		if a.use {
			a.times.JD = append(a.times.JD, rec.Time)
			a.times.LST = append(a.times.LST, rec.LST)
			a.times.Cnt = append(a.times.Cnt, cnt)
		}
	}
	if !a.use {
		return false, nil
	}

	samples, flags := rec.Samples, rec.Flags
	if a.rowFunc != nil {
		samples, flags = a.rowFunc(samples, flags)
	}
	row := make([]complex128, len(a.chans))
	var mask []bool
	if flags != nil {
		mask = make([]bool, len(a.chans))
	}
	for i, c := range a.chans {
		if c < 0 || c >= len(samples) {
			return false, fmt.Errorf("channel %d out of range for baseline %s with %d channels", c, rec.Baseline, len(samples))
		}
		row[i] = samples[c]
		if mask != nil {
			mask[i] = flags[c]
		}
	}

	buf, ok := a.buffers[rec.Baseline]
	if !ok {
		buf = &buffer{}
		a.buffers[rec.Baseline] = buf
	}
	buf.rows = append(buf.rows, row)
	buf.masks = append(buf.masks, mask)
	return true, nil
}

// Times returns the accepted time samples so far.
func (a *Accumulator) Times() TimeAxis {
	return a.times
}

// Result is the finalized content of an Accumulator.
type Result struct {
	Baselines []uv.Baseline
	Data      map[uv.Baseline]*marray.Array
	Times     TimeAxis
}

// Finalize concatenates every baseline buffer into a [times, channels]
// array. Baselines are ordered by antenna numbers. The accumulator must not
// be used afterwards.
func (a *Accumulator) Finalize() (*Result, error) {
	res := &Result{
		Data:  map[uv.Baseline]*marray.Array{},
		Times: a.times,
	}
	for bl, buf := range a.buffers {
		arr, err := marray.FromRows(buf.rows, buf.masks)
		if err != nil {
			return nil, fmt.Errorf("unable to finalize baseline %s: %w", bl, err)
		}
		if arr.Rows == 0 {
			continue
		}
		res.Data[bl] = arr
		res.Baselines = append(res.Baselines, bl)
	}
	sort.Slice(res.Baselines, func(i, j int) bool {
		return res.Baselines[i].Less(res.Baselines[j])
	})
	a.buffers = nil
	return res, nil
}
