package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	gridMarginTop    = 20 // pixels
	gridMarginLeft   = 70 // pixels
	gridMarginBottom = 34 // pixels
	gridMarginRight  = 60 // pixels
	gridTickLen      = 5  // pixels
	gridMinStepX     = 60 // pixels
	gridMinStepY     = 20 // pixels
	colorbarWidth    = 10 // pixels
	colorbarGap      = 6  // pixels
	fontHeight       = 13 // pixels
)

func drawString(dst draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func stringWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

func drawTick(canvas *image.RGBA, start image.Point, length int, horizontal bool) {
	for i := 0; i <= length; i++ {
		if horizontal {
			canvas.SetRGBA(start.X+i, start.Y, gridColor)
		} else {
			canvas.SetRGBA(start.X, start.Y+i, gridColor)
		}
	}
}

func findGridStepSize(step int, horizontal bool) int {
	gridMinStep := gridMinStepY
	if horizontal {
		gridMinStep = gridMinStepX
	}
	for step > gridMinStep {
		n := step / 2
		if n < gridMinStep {
			return step
		}
		step = n
	}
	return max(step, 1)
}

func tickLabel(v float64) string {
	if v != 0 && (math.Abs(v) >= 1e5 || math.Abs(v) < 1e-3) {
		return fmt.Sprintf("%.4g", v)
	}
	return fmt.Sprintf("%.5g", v)
}

// plotArea returns the rectangle of a tile left for the data once the
// margins are taken off. It never collapses below one pixel.
func plotArea(tile image.Rectangle) image.Rectangle {
	r := image.Rect(
		tile.Min.X+gridMarginLeft,
		tile.Min.Y+gridMarginTop,
		tile.Max.X-gridMarginRight,
		tile.Max.Y-gridMarginBottom,
	)
	if r.Dx() < 1 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() < 1 {
		r.Max.Y = r.Min.Y + 1
	}
	return r.Intersect(tile)
}

// drawGrid frames area and labels its ticks with values interpolated
// between left/right and top/bottom.
func drawGrid(canvas *image.RGBA, area image.Rectangle, left, right, top, bottom float64) {
	for x := area.Min.X - 1; x <= area.Max.X; x++ {
		canvas.SetRGBA(x, area.Min.Y-1, gridColor)
		canvas.SetRGBA(x, area.Max.Y, gridColor)
	}
	for y := area.Min.Y - 1; y <= area.Max.Y; y++ {
		canvas.SetRGBA(area.Min.X-1, y, gridColor)
		canvas.SetRGBA(area.Max.X, y, gridColor)
	}

	// Draw X ticks.
	w := area.Dx()
	xStep := findGridStepSize(w, true)
	for i := 0; i < w; i += xStep {
		drawTick(canvas, image.Point{area.Min.X + i, area.Max.Y}, gridTickLen, false)
		v := left + (right-left)*float64(i)/float64(w)
		drawString(canvas, area.Min.X+i-stringWidth(tickLabel(v))/2, area.Max.Y+gridTickLen+fontHeight, tickLabel(v), gridColor)
	}

	// Draw Y ticks.
	h := area.Dy()
	yStep := findGridStepSize(h, false)
	for i := 0; i < h; i += yStep {
		drawTick(canvas, image.Point{area.Min.X - gridTickLen - 1, area.Min.Y + i}, gridTickLen, true)
		v := top + (bottom-top)*float64(i)/float64(h)
		label := tickLabel(v)
		drawString(canvas, area.Min.X-gridTickLen-3-stringWidth(label), area.Min.Y+i+fontHeight/2-2, label, gridColor)
	}
}

// drawColorbar draws the gradient to the right of area, warmest on top.
func drawColorbar(canvas *image.RGBA, area image.Rectangle, min, max float64) {
	x0 := area.Max.X + colorbarGap
	h := area.Dy()
	for y := 0; y < h; y++ {
		f := 1.0
		if h > 1 {
			f = 1 - float64(y)/float64(h-1)
		}
		c := GetColor(uint16(f * math.MaxUint16))
		for x := x0; x < x0+colorbarWidth; x++ {
			canvas.SetRGBA(x, area.Min.Y+y, c)
		}
	}
	drawString(canvas, x0+colorbarWidth+2, area.Min.Y+fontHeight-3, tickLabel(max), gridColor)
	drawString(canvas, x0+colorbarWidth+2, area.Max.Y, tickLabel(min), gridColor)
}
