package transform

import (
	"github.com/hb9tf/plotuv/marray"
)

// secondDiff computes a[i]/2 + a[k]/2 - a[j] elementwise for the index
// triples produced by idx, OR-ing the masks of all three samples.
func secondDiff(a *marray.Array, rows, cols int, idx func(r, c int) (i, j, k int)) *marray.Array {
	out := marray.New(rows, cols)
	if a.Mask != nil {
		out.Mask = make([]bool, rows*cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i, j, k := idx(r, c)
			o := r*cols + c
			out.Data[o] = a.Data[i]/2 + a.Data[k]/2 - a.Data[j]
			if a.Mask != nil {
				out.Mask[o] = a.Mask[i] || a.Mask[j] || a.Mask[k]
			}
		}
	}
	return out
}

// DetrendFreq removes a linear extrapolation from adjacent channels. The
// result has two fewer columns.
func DetrendFreq(a *marray.Array) *marray.Array {
	cols := a.Cols - 2
	if cols < 0 {
		cols = 0
	}
	return secondDiff(a, a.Rows, cols, func(r, c int) (int, int, int) {
		base := r * a.Cols
		return base + c, base + c + 1, base + c + 2
	})
}

// DetrendTime removes a linear extrapolation from adjacent time samples. The
// result has two fewer rows.
func DetrendTime(a *marray.Array) *marray.Array {
	rows := a.Rows - 2
	if rows < 0 {
		rows = 0
	}
	return secondDiff(a, rows, a.Cols, func(r, c int) (int, int, int) {
		return r*a.Cols + c, (r+1)*a.Cols + c, (r+2)*a.Cols + c
	})
}
