package display

import (
	"image"
	"math"
)

// ScaledSize converts a logical square edge into physical pixels for m.
func ScaledSize(m Monitor, logical int) image.Point {
	edge := int(math.Round(float64(logical) * m.Scale()))
	if edge < 1 {
		edge = 1
	}
	return image.Pt(edge, edge)
}

// Place centers a size-sized rectangle on the monitor, shifts it by offset and
// clamps the result so it lies fully inside the monitor bounds. A size larger
// than the monitor is shrunk to the monitor.
func Place(m Monitor, size, offset image.Point) image.Rectangle {
	b := m.Bounds
	w := min(size.X, b.Dx())
	h := min(size.Y, b.Dy())

	x := (b.Min.X+b.Max.X-w)/2 + offset.X
	y := (b.Min.Y+b.Max.Y-h)/2 + offset.Y

	x = clamp(x, b.Min.X, b.Max.X-w)
	y = clamp(y, b.Min.Y, b.Max.Y-h)

	return image.Rect(x, y, x+w, y+h)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
