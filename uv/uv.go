package uv

import (
	"fmt"
	"math"
)

// SecondsPerDay converts integration times into Julian date spans.
const SecondsPerDay = 86400.0

type Baseline struct {
	I int
	J int
}

func (b Baseline) String() string {
	return fmt.Sprintf("%d,%d", b.I, b.J)
}

// Less orders baselines by first then second antenna.
func (b Baseline) Less(o Baseline) bool {
	if b.I != o.I {
		return b.I < o.I
	}
	return b.J < o.J
}

// IsAuto reports whether the baseline correlates an antenna with itself.
func (b Baseline) IsAuto() bool {
	return b.I == b.J
}

type Record struct {
	Baseline     Baseline
	Polarization string
	// Time is the Julian date of the integration.
	Time float64
	// LST is the local sidereal time in radians.
	LST float64

	Samples []complex128
	// Flags marks invalid samples (true = flagged).
	Flags []bool
}

type Metadata struct {
	Source string
	// NChan is the number of frequency channels per record.
	NChan int
	// SFreq is the frequency of the first channel in GHz.
	SFreq float64
	// SDF is the channel width in GHz.
	SDF float64
	// IntTime is the integration time of one record in seconds.
	IntTime float64
}

// Freqs returns the center frequency of every channel in GHz.
func (m Metadata) Freqs() []float64 {
	freqs := make([]float64, m.NChan)
	for i := range freqs {
		freqs[i] = m.SFreq + float64(i)*m.SDF
	}
	return freqs
}

// Delays returns the delay of every delay bin in ns, starting at -1/(2*sdf).
func (m Metadata) Delays() []float64 {
	delays := make([]float64, m.NChan)
	step := 1 / (m.SDF * float64(m.NChan))
	for i := range delays {
		delays[i] = -0.5/m.SDF + float64(i)*step
	}
	return delays
}

// Equal reports whether two metadata sets describe the same axes.
func (m Metadata) Equal(o Metadata) bool {
	const eps = 1e-12
	return m.NChan == o.NChan &&
		math.Abs(m.SFreq-o.SFreq) < eps &&
		math.Abs(m.SDF-o.SDF) < eps &&
		math.Abs(m.IntTime-o.IntTime) < eps
}

// Reader yields the records of one visibility file in time order.
type Reader interface {
	Metadata() Metadata
	// Next returns io.EOF once all records are consumed.
	Next() (*Record, error)
	Close() error
}

// Opener opens a visibility file by name.
type Opener interface {
	Open(name string) (Reader, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(name string) (Reader, error)

func (f OpenerFunc) Open(name string) (Reader, error) {
	return f(name)
}
