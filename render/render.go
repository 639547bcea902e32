// Package render draws display panels into a single raster image.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	xdraw "golang.org/x/image/draw"

	"github.com/hb9tf/plotuv/display"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// FormatFromPath picks the image encoding from the file suffix.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported image suffix in %q, use .png, .jpg or .jpeg", path)
}

type Options struct {
	Width  int
	Height int
	// Legend adds line labels to line panels.
	Legend bool
}

// Grid returns the number of tile rows and columns used for n panels.
func Grid(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	rows = int(math.Sqrt(float64(n)))
	cols = int(math.Ceil(float64(n) / float64(rows)))
	return rows, cols
}

// Render tiles every panel into one Width x Height image.
func Render(panels []*display.Panel, opts *Options) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	rows, cols := Grid(len(panels))
	if rows == 0 {
		return canvas, nil
	}
	tileW, tileH := opts.Width/cols, opts.Height/rows
	for i, p := range panels {
		tile := image.Rect(0, 0, tileW, tileH).Add(image.Point{(i % cols) * tileW, (i / cols) * tileH})
		glog.V(2).Infof("rendering panel %s (%s) into %v", p.Title, p.Layout, tile)
		var err error
		switch p.Layout {
		case display.LayoutImage:
			drawImagePanel(canvas, tile, p)
		default:
			err = drawLinePanel(canvas, tile, p, opts.Legend)
		}
		if err != nil {
			return nil, fmt.Errorf("unable to render panel %s: %w", p.Title, err)
		}
	}
	return canvas, nil
}

// heatmap returns one pixel per data cell.
func heatmap(p *display.Panel) *image.RGBA {
	d := p.Data
	img := image.NewRGBA(image.Rect(0, 0, max(d.Cols, 1), max(d.Rows, 1)))
	draw.Draw(img, img.Bounds(), image.NewUniform(maskedColor), image.Point{}, draw.Src)
	for r := 0; r < d.Rows; r++ {
		for c := 0; c < d.Cols; c++ {
			v := d.At(r, c)
			if d.Masked(r, c) || math.IsNaN(v) {
				continue
			}
			img.SetRGBA(c, r, GetColor(Level(v, p.Min, p.Max)))
		}
	}
	return img
}

func drawImagePanel(canvas *image.RGBA, tile image.Rectangle, p *display.Panel) {
	area := plotArea(tile)
	src := heatmap(p)
	xdraw.NearestNeighbor.Scale(canvas, area, src, src.Bounds(), xdraw.Src, nil)

	e := p.Extent
	drawGrid(canvas, area, e.Left, e.Right, e.Top, e.Bottom)
	drawColorbar(canvas, area, p.Min, p.Max)

	drawString(canvas, area.Min.X+(area.Dx()-stringWidth(p.Title))/2, tile.Min.Y+fontHeight+2, p.Title, gridColor)
	drawString(canvas, tile.Min.X+2, tile.Min.Y+fontHeight+2, p.YLabel, gridColor)
	drawString(canvas, area.Min.X+(area.Dx()-stringWidth(p.XLabel))/2, tile.Max.Y-3, p.XLabel, gridColor)
}

// Encode writes img to w in format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpeg.DefaultQuality})
	}
	return fmt.Errorf("unsupported image format %q", format)
}

// WriteFile encodes img into path, picking the format from its suffix.
func WriteFile(path string, img image.Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", path, err)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("unable to encode %q: %w", path, err)
	}
	return f.Close()
}
