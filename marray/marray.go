// Package marray implements the small subset of masked 2D arrays needed to
// carry visibilities through the plotting pipeline.
//
// A mask entry of true means the value is masked (flagged), matching the
// convention of the visibility files. A nil mask means nothing is masked.
package marray

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Array is a row-major masked complex matrix.
type Array struct {
	Rows int
	Cols int
	Data []complex128
	Mask []bool
}

// New returns a zeroed, unmasked array.
func New(rows, cols int) *Array {
	return &Array{
		Rows: rows,
		Cols: cols,
		Data: make([]complex128, rows*cols),
	}
}

// FromRows concatenates equally sized rows into a single array. Masks may be
// nil for rows without flagged samples.
func FromRows(data [][]complex128, masks [][]bool) (*Array, error) {
	if len(data) == 0 {
		return New(0, 0), nil
	}
	cols := len(data[0])
	a := New(len(data), cols)
	for i, row := range data {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		copy(a.Data[i*cols:], row)
		if i < len(masks) && masks[i] != nil {
			if a.Mask == nil {
				a.Mask = make([]bool, len(a.Data))
			}
			copy(a.Mask[i*cols:], masks[i])
		}
	}
	return a, nil
}

// At returns the value at (r, c).
func (a *Array) At(r, c int) complex128 {
	return a.Data[r*a.Cols+c]
}

// Masked reports whether (r, c) is masked.
func (a *Array) Masked(r, c int) bool {
	return a.Mask != nil && a.Mask[r*a.Cols+c]
}

// Row returns a copy of row r and its mask (nil if unmasked).
func (a *Array) Row(r int) ([]complex128, []bool) {
	row := make([]complex128, a.Cols)
	copy(row, a.Data[r*a.Cols:(r+1)*a.Cols])
	if a.Mask == nil {
		return row, nil
	}
	mask := make([]bool, a.Cols)
	copy(mask, a.Mask[r*a.Cols:(r+1)*a.Cols])
	return row, mask
}

// Col returns a copy of column c and its mask (nil if unmasked).
func (a *Array) Col(c int) ([]complex128, []bool) {
	col := make([]complex128, a.Rows)
	var mask []bool
	if a.Mask != nil {
		mask = make([]bool, a.Rows)
	}
	for r := 0; r < a.Rows; r++ {
		col[r] = a.Data[r*a.Cols+c]
		if mask != nil {
			mask[r] = a.Mask[r*a.Cols+c]
		}
	}
	return col, mask
}

// SetCol overwrites column c with vals and clears its mask.
func (a *Array) SetCol(c int, vals []complex128) {
	for r := 0; r < a.Rows; r++ {
		a.Data[r*a.Cols+c] = vals[r]
		if a.Mask != nil {
			a.Mask[r*a.Cols+c] = false
		}
	}
}

// Filled returns an unmasked copy with every masked entry replaced by v.
func (a *Array) Filled(v complex128) *Array {
	out := New(a.Rows, a.Cols)
	for i, d := range a.Data {
		if a.Mask != nil && a.Mask[i] {
			d = v
		}
		out.Data[i] = d
	}
	return out
}

// Unmasked returns a copy with the mask dropped and the raw data kept.
func (a *Array) Unmasked() *Array {
	out := New(a.Rows, a.Cols)
	copy(out.Data, a.Data)
	return out
}

// SumCols collapses the column axis with a masked sum. A row whose entries
// are all masked stays masked.
func (a *Array) SumCols() *Array {
	out := New(a.Rows, 1)
	if a.Mask != nil {
		out.Mask = make([]bool, a.Rows)
	}
	for r := 0; r < a.Rows; r++ {
		var sum complex128
		valid := 0
		for c := 0; c < a.Cols; c++ {
			if a.Masked(r, c) {
				continue
			}
			sum += a.At(r, c)
			valid++
		}
		out.Data[r] = sum
		if out.Mask != nil && valid == 0 {
			out.Mask[r] = true
		}
	}
	return out
}

// Real is a row-major masked real matrix, the output of a display reduction.
type Real struct {
	Rows int
	Cols int
	Data []float64
	Mask []bool
}

// NewReal returns a zeroed, unmasked real array.
func NewReal(rows, cols int) *Real {
	return &Real{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// At returns the value at (r, c).
func (a *Real) At(r, c int) float64 {
	return a.Data[r*a.Cols+c]
}

// Masked reports whether (r, c) is masked.
func (a *Real) Masked(r, c int) bool {
	return a.Mask != nil && a.Mask[r*a.Cols+c]
}

// MinMax returns the extrema over unmasked, non-NaN entries. ok is false if
// no such entry exists.
func (a *Real) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for i, v := range a.Data {
		if (a.Mask != nil && a.Mask[i]) || math.IsNaN(v) {
			continue
		}
		ok = true
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// Map applies f elementwise to a complex array, keeping its mask.
func Map(a *Array, f func(complex128) float64) *Real {
	out := NewReal(a.Rows, a.Cols)
	for i, v := range a.Data {
		out.Data[i] = f(v)
	}
	if a.Mask != nil {
		out.Mask = make([]bool, len(a.Mask))
		copy(out.Mask, a.Mask)
	}
	return out
}

// Abs is a convenience for Map(a, cmplx.Abs).
func Abs(a *Array) *Real {
	return Map(a, cmplx.Abs)
}
