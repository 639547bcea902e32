package render

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/plotuv/display"
	"github.com/hb9tf/plotuv/marray"
)

func TestGetColor(t *testing.T) {
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, GetColor(0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, GetColor(math.MaxUint16))
	// Halfway through the gradient sits the green stop.
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, GetColor(math.MaxUint16/2+1))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, uint16(0), Level(-5, 0, 10))
	assert.Equal(t, uint16(math.MaxUint16), Level(50, 0, 10))
	assert.Equal(t, uint16(math.MaxUint16/2), Level(5, 0, 10))
	assert.Equal(t, uint16(0), Level(5, 3, 3))
	assert.Equal(t, uint16(0), Level(math.NaN(), 0, 1))
}

func TestGrid(t *testing.T) {
	tests := []struct {
		n, rows, cols int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 1, 2},
		{3, 1, 3},
		{4, 2, 2},
		{5, 2, 3},
		{10, 3, 4},
	}
	for _, tc := range tests {
		rows, cols := Grid(tc.n)
		assert.Equal(t, tc.rows, rows, "n=%d", tc.n)
		assert.Equal(t, tc.cols, cols, "n=%d", tc.n)
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/tmp/plot.png")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)
	f, err = FormatFromPath("/tmp/plot.JPG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, f)
	_, err = FormatFromPath("/tmp/plot.gif")
	assert.Error(t, err)
}

func imagePanel(rows, cols int) *display.Panel {
	data := marray.NewReal(rows, cols)
	for i := range data.Data {
		data.Data[i] = float64(i)
	}
	return &display.Panel{
		Title:  "0,1",
		Layout: display.LayoutImage,
		Data:   data,
		Extent: display.Extent{Left: 0, Right: float64(cols - 1), Top: 0, Bottom: float64(rows - 1)},
		Min:    0,
		Max:    float64(rows*cols - 1),
		XLabel: "Frequency (chan)",
		YLabel: "Time (integrations)",
	}
}

func TestRenderImageSize(t *testing.T) {
	panels := []*display.Panel{imagePanel(10, 16), imagePanel(10, 16), imagePanel(10, 16)}
	img, err := Render(panels, &Options{Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())
}

func TestRenderMaskedCellsGrey(t *testing.T) {
	p := imagePanel(1, 1)
	p.Data.Mask = []bool{true}
	img, err := Render([]*display.Panel{p}, &Options{Width: 400, Height: 300})
	require.NoError(t, err)
	area := plotArea(img.Bounds())
	center := image.Point{(area.Min.X + area.Max.X) / 2, (area.Min.Y + area.Max.Y) / 2}
	assert.Equal(t, maskedColor, img.RGBAAt(center.X, center.Y))
}

func TestRenderLinePanel(t *testing.T) {
	p := &display.Panel{
		Title:  "0,1",
		Layout: display.LayoutTimeLines,
		Lines: []display.Line{
			{Label: "#3", X: []float64{0, 1, 2, 3}, Y: []float64{1, 2, math.NaN(), 4}},
			{Label: "#4", X: []float64{0, 1, 2, 3}, Y: []float64{math.NaN(), 3, math.NaN(), math.NaN()}},
			{Label: "#5", X: []float64{0, 1}, Y: []float64{math.NaN(), math.NaN()}},
		},
		Min:    1,
		Max:    4,
		XLabel: "Time (integrations)",
	}
	img, err := Render([]*display.Panel{p, p}, &Options{Width: 640, Height: 480, Legend: true})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
}

func TestRenderEmptyLinePanel(t *testing.T) {
	p := &display.Panel{Title: "2,3", Layout: display.LayoutChannelLines}
	_, err := Render([]*display.Panel{p}, &Options{Width: 320, Height: 240})
	require.NoError(t, err)
}

func TestRenderInvalidSize(t *testing.T) {
	_, err := Render(nil, &Options{Width: 0, Height: 10})
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	img, err := Render([]*display.Panel{imagePanel(4, 4)}, &Options{Width: 300, Height: 200})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, WriteFile(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "plot.bmp"), img))
}
