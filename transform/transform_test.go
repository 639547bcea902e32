package transform

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/plotuv/marray"
)

func assertComplexSlice(t *testing.T, want, got []complex128, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, 0, cmplx.Abs(want[i]-got[i]), delta, "index %d: want %v, got %v", i, want[i], got[i])
	}
}

// tone returns a spectrum whose delay transform is a unit impulse at bin k.
func tone(n, k int) []complex128 {
	out := make([]complex128, n)
	for j := range out {
		out[j] = cmplx.Exp(complex(0, -2*math.Pi*float64(j*k)/float64(n)))
	}
	return out
}

func TestFFTRoundTrip(t *testing.T) {
	f := NewFFT()
	x := []complex128{1, 2 - 1i, 0, 3i, -4, 0.5, 2, 1 + 1i}
	assertComplexSlice(t, x, f.Forward(f.Inverse(x)), 1e-12)
	assertComplexSlice(t, x, f.Inverse(f.Forward(x)), 1e-12)
}

func TestCenter(t *testing.T) {
	even := []complex128{0, 1, 2, 3}
	assert.Equal(t, []complex128{2, 3, 0, 1}, Center(even))
	assert.Equal(t, even, Uncenter(Center(even)))

	odd := []complex128{0, 1, 2, 3, 4}
	assert.Equal(t, []complex128{2, 3, 4, 0, 1}, Center(odd))
	assert.Equal(t, odd, Uncenter(Center(odd)))
}

func TestDelayRoundTrip(t *testing.T) {
	e := NewEngine(nil, nil, false)
	x := []complex128{1, 2 - 1i, 0.25, 3i, -4, 0.5, 2, 1 + 1i, 7, -2i}
	d := e.Delay(x, nil)
	assertComplexSlice(t, x, e.fft.Forward(Uncenter(d)), 1e-12)
}

func TestDelayFlatSpectrumIsCentered(t *testing.T) {
	e := NewEngine(nil, nil, false)
	x := []complex128{1, 1, 1, 1, 1, 1}
	d := e.Delay(x, nil)
	assertComplexSlice(t, []complex128{0, 0, 0, 1, 0, 0}, d, 1e-12)
}

func TestDelayZeroesFlaggedSamples(t *testing.T) {
	e := NewEngine(nil, nil, false)
	x := []complex128{1, 1, 1e6, 1}
	flags := []bool{false, false, true, false}
	want := e.Delay([]complex128{1, 1, 0, 1}, nil)
	assertComplexSlice(t, want, e.Delay(x, flags), 1e-9)

	unmasked := NewEngine(nil, nil, true)
	assert.Greater(t, cmplx.Abs(unmasked.Delay(x, flags)[2]), 1e5)
}

func TestDelayClean(t *testing.T) {
	const n, k = 16, 3
	x := tone(n, k)
	flags := make([]bool, n)
	flags[5], flags[6] = true, true

	dirty := NewEngine(nil, nil, false).Delay(x, flags)
	assert.InDelta(t, 14.0/16, cmplx.Abs(dirty[n/2+k]), 1e-9)

	tol := 1e-9
	cleaned := NewEngine(nil, &tol, false).Delay(x, flags)
	assert.InDelta(t, 1, cmplx.Abs(cleaned[n/2+k]), 1e-3)
	for i, v := range cleaned {
		if i != n/2+k {
			assert.Less(t, cmplx.Abs(v), 1e-3, "bin %d", i)
		}
	}
}

func TestDelayCleanSkipsEmptyRows(t *testing.T) {
	tol := 1e-3
	d := NewEngine(nil, &tol, false).Delay(make([]complex128, 4), []bool{true, true, true, true})
	assertComplexSlice(t, make([]complex128, 4), d, 0)
}

func TestFringe(t *testing.T) {
	e := NewEngine(nil, nil, false)
	a := marray.New(8, 2)
	for i := range a.Data {
		a.Data[i] = 2
	}
	a.Mask = make([]bool, len(a.Data))
	a.Mask[3] = true // row 1, column 1

	out := e.Fringe(a)
	require.Equal(t, 8, out.Rows)
	require.Equal(t, 2, out.Cols)
	assert.Nil(t, out.Mask)

	col0, _ := out.Col(0)
	want := make([]complex128, 8)
	want[4] = 2
	assertComplexSlice(t, want, col0, 1e-12)

	// The flagged sample is zero-filled before the transform.
	col1, _ := out.Col(1)
	assert.InDelta(t, 14.0/8, real(col1[4]), 1e-12)
}

func TestFringeClean(t *testing.T) {
	const n, k = 16, 3
	x := tone(n, k)
	a := marray.New(n, 3)
	a.Mask = make([]bool, len(a.Data))
	for r := 0; r < n; r++ {
		a.Data[r*3] = x[r]
		a.Data[r*3+1] = 2 * x[r]
	}
	// Rows 5 and 6 are flagged in the first two channels.
	for _, r := range []int{5, 6} {
		a.Mask[r*3], a.Mask[r*3+1] = true, true
	}

	dirty, _ := NewEngine(nil, nil, false).Fringe(a).Col(0)
	assert.InDelta(t, 14.0/16, cmplx.Abs(dirty[n/2+k]), 1e-9)

	tol := 1e-9
	out := NewEngine(nil, &tol, false).Fringe(a)
	require.Equal(t, n, out.Rows)
	require.Equal(t, 3, out.Cols)
	for c, amp := range []float64{1, 2} {
		col, _ := out.Col(c)
		assert.InDelta(t, amp, cmplx.Abs(col[n/2+k]), 1e-3*amp, "column %d", c)
		for i, v := range col {
			if i != n/2+k {
				assert.Less(t, cmplx.Abs(v), 1e-3*amp, "column %d bin %d", c, i)
			}
		}
	}

	// An all-zero channel is left alone.
	empty, _ := out.Col(2)
	assertComplexSlice(t, make([]complex128, n), empty, 0)
}

func TestDetrendShapes(t *testing.T) {
	a := marray.New(5, 7)
	assert.Equal(t, 5, DetrendFreq(a).Rows)
	assert.Equal(t, 5, DetrendFreq(a).Cols)
	assert.Equal(t, 3, DetrendTime(a).Rows)
	assert.Equal(t, 7, DetrendTime(a).Cols)

	tiny := marray.New(1, 1)
	assert.Equal(t, 0, DetrendFreq(tiny).Cols)
	assert.Equal(t, 0, DetrendTime(tiny).Rows)
}

func TestDetrendRemovesLinearTrend(t *testing.T) {
	a := marray.New(4, 4)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			a.Data[r*4+c] = complex(float64(3*r+2*c), float64(r))
		}
	}
	for _, v := range DetrendFreq(a).Data {
		assert.Equal(t, complex128(0), v)
	}
	for _, v := range DetrendTime(a).Data {
		assert.Equal(t, complex128(0), v)
	}

	a.Data[5] = 10 // row 1, column 1
	df := DetrendFreq(a)
	// The spike is the center sample of the first triple in row 1.
	assert.Equal(t, complex(-5, 1), df.At(1, 0))
}

func TestDetrendPropagatesMask(t *testing.T) {
	a := marray.New(4, 1)
	a.Mask = []bool{false, true, false, false}
	dt := DetrendTime(a)
	assert.Equal(t, []bool{true, true}, dt.Mask)

	b := marray.New(1, 4)
	b.Mask = []bool{false, false, false, true}
	df := DetrendFreq(b)
	assert.Equal(t, []bool{false, true}, df.Mask)
}
