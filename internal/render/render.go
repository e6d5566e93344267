// Package render draws the indicator glyph into presentation-ready frames.
package render

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	"github.com/phinze/capsglow/internal/assets"
	"github.com/phinze/capsglow/internal/theme"
)

//go:embed icons/capslock.svg
var iconCapsLockSVG string

// ErrInvalidSize implies a zero or negative frame size was requested.
var ErrInvalidSize = errors.New("invalid frame size")

// glyphScale is the share of the frame an SVG glyph occupies.
const glyphScale = 0.75

// Renderer composites the glyph into double-buffered frames. It is owned by
// the UI thread and is not safe for concurrent use.
type Renderer struct {
	icon *assets.Icon
	svg  string

	canvas  *image.RGBA
	buffers [2]*Frame
	next    int
}

// New creates a Renderer. A nil icon selects the built-in glyph.
func New(icon *assets.Icon) *Renderer {
	r := &Renderer{icon: icon, svg: iconCapsLockSVG}
	if icon != nil && icon.SVG != "" {
		r.svg = icon.SVG
	}
	return r
}

// NaturalSize returns the pixel size of a custom raster icon. Raster icons
// are drawn unscaled, so the overlay takes this size instead of the
// configured one.
func (r *Renderer) NaturalSize() (image.Point, bool) {
	if r.icon == nil || !r.icon.Raster() {
		return image.Point{}, false
	}
	return r.icon.Size(), true
}

// Render draws the glyph for variant into the back buffer and returns it.
// The returned frame stays valid until the call after next, so the frame
// currently on screen is never written to.
func (r *Renderer) Render(variant theme.Variant, size image.Point) (*Frame, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}

	frame := r.buffers[r.next]
	if frame == nil || frame.Size() != size {
		// Dropping the old slice is enough; native copies live in the surface.
		frame = newFrame(size)
		r.buffers[r.next] = frame
	}
	if r.canvas == nil || r.canvas.Bounds().Size() != size {
		r.canvas = image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	} else {
		clear(r.canvas.Pix)
	}

	if r.icon != nil && r.icon.Raster() {
		drawRaster(r.canvas, r.icon.Pick(variant == theme.Dark))
	} else if err := drawSVG(r.canvas, r.svg, variant.Foreground()); err != nil {
		return nil, err
	}

	frame.copyFrom(r.canvas)
	r.next = 1 - r.next
	return frame, nil
}

// Release drops both buffers and the scratch canvas.
func (r *Renderer) Release() {
	r.buffers = [2]*Frame{}
	r.canvas = nil
	r.next = 0
}

// drawSVG renders svgContent centered into dst, replacing currentColor with
// iconColor.
func drawSVG(dst *image.RGBA, svgContent string, iconColor color.Color) error {
	cr, cg, cb, _ := iconColor.RGBA()
	hexColor := fmt.Sprintf("#%02x%02x%02x", cr>>8, cg>>8, cb>>8)
	svgContent = strings.ReplaceAll(svgContent, "currentColor", hexColor)

	icon, err := oksvg.ReadIconStream(strings.NewReader(svgContent))
	if err != nil {
		log.Printf("Failed to parse SVG: %v", err)
		return fmt.Errorf("failed to parse glyph SVG: %w", err)
	}

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	side := float64(min(w, h)) * glyphScale
	icon.SetTarget((float64(w)-side)/2, (float64(h)-side)/2, side, side)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return nil
}

// drawRaster centers src in dst at its natural size, scaling it down to fit
// when it is larger than dst.
func drawRaster(dst *image.RGBA, src image.Image) {
	db := dst.Bounds()
	sb := src.Bounds()

	w, h := sb.Dx(), sb.Dy()
	if w > db.Dx() || h > db.Dy() {
		ratio := min(float64(db.Dx())/float64(w), float64(db.Dy())/float64(h))
		w = max(1, int(float64(w)*ratio))
		h = max(1, int(float64(h)*ratio))
	}

	x := db.Min.X + (db.Dx()-w)/2
	y := db.Min.Y + (db.Dy()-h)/2
	target := image.Rect(x, y, x+w, y+h)

	if target.Size() == sb.Size() {
		draw.Draw(dst, target, src, sb.Min, draw.Over)
		return
	}
	draw.CatmullRom.Scale(dst, target, src, sb, draw.Over, nil)
}
