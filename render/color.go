package render

import (
	"image/color"
	"math"
)

var (
	// Colors defining the gradient in the heatmap. The higher the index, the warmer.
	gradient = []color.RGBA{
		{0, 0, 0, 255},       // black
		{0, 0, 255, 255},     // blue
		{0, 255, 255, 255},   // cyan
		{0, 255, 0, 255},     // green
		{255, 255, 0, 255},   // yellow
		{255, 0, 0, 255},     // red
		{255, 255, 255, 255}, // white
	}

	maskedColor     = color.RGBA{128, 128, 128, 255} // grey
	gridColor       = color.RGBA{0, 0, 0, 255}       // black
	backgroundColor = color.RGBA{255, 255, 255, 255} // white
)

// GetColor determines the color of a pixel based on a color gradient and a pixel "level".
// http://www.andrewnoske.com/wiki/Code_-_heatmaps_and_color_gradients
func GetColor(lvl uint16) color.RGBA {
	// Find the two gradient stops around the level and interpolate linearly between them.
	pos := float64(lvl) / math.MaxUint16 * float64(len(gradient)-1)
	i := int(pos)
	if i >= len(gradient)-1 {
		return gradient[len(gradient)-1]
	}
	fract := pos - float64(i)
	prev, next := gradient[i], gradient[i+1]
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*fract))
	}
	return color.RGBA{
		mix(prev.R, next.R),
		mix(prev.G, next.G),
		mix(prev.B, next.B),
		mix(prev.A, next.A),
	}
}

// Level maps v into the [min, max] color scale, clipping at both ends.
func Level(v, min, max float64) uint16 {
	if max <= min || math.IsNaN(v) {
		return 0
	}
	f := (v - min) / (max - min)
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return math.MaxUint16
	}
	return uint16(f * math.MaxUint16)
}
