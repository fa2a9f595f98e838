// Package geometry computes the screen rectangle captured around a cursor
// point and maps the point into the captured image.
//
// Points, displays and regions share the coordinate space reported by the
// OS cursor API (logical units). Only Region.Local is physical: it indexes
// pixels of the captured image, which is Size physical pixels large.
package geometry

import "math"

// Point is an integer screen or image coordinate.
type Point struct {
	X, Y int
}

// Display describes the monitor that contains a point.
type Display struct {
	X, Y          int // origin of the display in the virtual desktop
	Width, Height int
	ScaleFactor   float64 // physical pixels per logical unit
}

// Scale returns the scale factor, treating values below 1 as 1.
func (d Display) Scale() float64 {
	if d.ScaleFactor < 1 || math.IsNaN(d.ScaleFactor) {
		return 1
	}
	return d.ScaleFactor
}

// Size is a width/height pair in physical pixels.
type Size struct {
	Width, Height int
}

// DefaultSize matches the capture used by the popup dictionary.
var DefaultSize = Size{Width: 200, Height: 100}

// Region is the capture rectangle plus the cursor point inside the image.
type Region struct {
	Left, Top     int
	Width, Height int
	Local         Point
}

// Compute returns the capture region of physical size sz around p on d.
// The region is centred on p where possible and pinned to the nearest
// display edge otherwise, so it never leaves the display.
func Compute(p Point, d Display, sz Size) Region {
	scale := d.Scale()

	left, width, lx := axis(float64(p.X-d.X), float64(sz.Width)/scale, float64(d.Width))
	top, height, ly := axis(float64(p.Y-d.Y), float64(sz.Height)/scale, float64(d.Height))

	return Region{
		Left:   d.X + left,
		Top:    d.Y + top,
		Width:  width,
		Height: height,
		Local:  Point{X: int(lx * scale), Y: int(ly * scale)},
	}
}

// axis solves one dimension: pos is the point relative to the display
// origin, size the logical capture length and extent the display length.
// It returns the floored origin, truncated length and the logical offset
// of pos from that origin.
func axis(pos, size, extent float64) (int, int, float64) {
	if extent <= 0 {
		return 0, 0, 0
	}
	if size > extent {
		size = extent
	}
	pos = math.Max(0, math.Min(pos, extent-1))
	half := size / 2

	var origin float64
	switch {
	case pos < half:
		origin = 0
	case pos < extent-half:
		origin = pos - half
	default:
		origin = extent - size
	}

	// Local is measured from the floored origin the capture actually uses.
	o := int(math.Floor(origin))
	return o, int(size), pos - float64(o)
}
