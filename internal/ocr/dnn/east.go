package dnn

import (
	"image"
	"math"
)

// Point2 is a sub-pixel image coordinate.
type Point2 struct {
	X, Y float64
}

// Quad is a detected text region as four corners in the order
// bottom-left, top-left, top-right, bottom-right.
type Quad [4]Point2

// TopLeft and BottomRight are the opposite corners used as the
// containment proxy.
func (q Quad) TopLeft() Point2     { return q[1] }
func (q Quad) BottomRight() Point2 { return q[3] }

// Contains tests p against the axis-aligned box spanned by the top-left
// and bottom-right corners.
func (q Quad) Contains(x, y float64) bool {
	tl, br := q.TopLeft(), q.BottomRight()
	return tl.X < x && x < br.X && tl.Y < y && y < br.Y
}

// Bounds returns the integer rectangle enclosing all four corners.
func (q Quad) Bounds() image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range q {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Scale multiplies every corner by sx, sy.
func (q Quad) Scale(sx, sy float64) Quad {
	for i := range q {
		q[i].X *= sx
		q[i].Y *= sy
	}
	return q
}

// Detection is one EAST candidate before non-maximum suppression.
type Detection struct {
	Quad  Quad
	Score float32
}

// decodeEAST turns the EAST score map (1×rows×cols) and geometry map
// (5×rows×cols: distances to top, right, bottom, left edges and the
// rotation angle) into candidate quads in network input coordinates.
// Each output cell covers a 4×4 input patch.
func decodeEAST(scores, geo []float32, rows, cols int, threshold float32) []Detection {
	plane := rows * cols
	if len(scores) < plane || len(geo) < 5*plane {
		return nil
	}

	var out []Detection
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			score := scores[i]
			if score < threshold {
				continue
			}
			top := float64(geo[i])
			right := float64(geo[plane+i])
			bottom := float64(geo[2*plane+i])
			left := float64(geo[3*plane+i])
			angle := float64(geo[4*plane+i])

			cosA, sinA := math.Cos(angle), math.Sin(angle)
			h := top + bottom
			w := right + left

			ox := float64(x)*4 + cosA*right + sinA*bottom
			oy := float64(y)*4 - sinA*right + cosA*bottom
			p1 := Point2{X: -sinA*h + ox, Y: -cosA*h + oy}
			p3 := Point2{X: -cosA*w + ox, Y: sinA*w + oy}
			center := Point2{X: (p1.X + p3.X) / 2, Y: (p1.Y + p3.Y) / 2}

			out = append(out, Detection{
				Quad:  rotatedCorners(center, w, h, -angle),
				Score: score,
			})
		}
	}
	return out
}

// rotatedCorners returns the corners of a w×h rectangle centred on c and
// rotated by theta radians, in bottom-left, top-left, top-right,
// bottom-right order.
func rotatedCorners(c Point2, w, h, theta float64) Quad {
	b := math.Cos(theta) * 0.5
	a := math.Sin(theta) * 0.5

	var q Quad
	q[0] = Point2{X: c.X - a*h - b*w, Y: c.Y + b*h - a*w}
	q[1] = Point2{X: c.X + a*h - b*w, Y: c.Y - b*h - a*w}
	q[2] = Point2{X: 2*c.X - q[0].X, Y: 2*c.Y - q[0].Y}
	q[3] = Point2{X: 2*c.X - q[1].X, Y: 2*c.Y - q[1].Y}
	return q
}
