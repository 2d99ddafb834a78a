package geometry

import (
	"fmt"
	"math"
)

// Corner indices of a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quad is a quadrilateral in canonical order: top-left, top-right,
// bottom-right, bottom-left. It is a value type; operations return new quads.
type Quad [4]Point2D

// Points returns the corners as a slice.
func (q Quad) Points() []Point2D {
	return []Point2D{q[0], q[1], q[2], q[3]}
}

// Top returns the edge from top-left to top-right.
func (q Quad) Top() Line { return Line{A: q[TopLeft], B: q[TopRight]} }

// Bottom returns the edge from bottom-left to bottom-right.
func (q Quad) Bottom() Line { return Line{A: q[BottomLeft], B: q[BottomRight]} }

// Left returns the edge from top-left to bottom-left.
func (q Quad) Left() Line { return Line{A: q[TopLeft], B: q[BottomLeft]} }

// Right returns the edge from top-right to bottom-right.
func (q Quad) Right() Line { return Line{A: q[TopRight], B: q[BottomRight]} }

// Center returns the intersection of the diagonals.
func (q Quad) Center() (Point2D, error) {
	return Intersect(
		Line{A: q[TopLeft], B: q[BottomRight]},
		Line{A: q[TopRight], B: q[BottomLeft]},
	)
}

// Validate checks that the quad is convex with no three corners collinear.
// Collinear corners yield ErrDegenerateGeometry, a reflex or crossed
// corner ErrInvalidInput.
func (q Quad) Validate() error {
	var sign float64
	for i := 0; i < 4; i++ {
		o := q[i]
		a := q[(i+1)%4]
		b := q[(i+2)%4]
		cross := crossProduct(o, a, b)
		scale := o.Distance(a) * a.Distance(b)
		if scale == 0 || math.Abs(cross) <= collinearEpsilon*scale {
			return fmt.Errorf("quad: corners %d, %d, %d are collinear: %w",
				i, (i+1)%4, (i+2)%4, ErrDegenerateGeometry)
		}
		if sign == 0 {
			sign = math.Copysign(1, cross)
		} else if math.Copysign(1, cross) != sign {
			return fmt.Errorf("quad: not convex at corner %d: %w", (i+1)%4, ErrInvalidInput)
		}
	}
	return nil
}
