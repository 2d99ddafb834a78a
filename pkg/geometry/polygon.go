package geometry

import (
	"fmt"
	"math"
	"sort"
)

// parallelEpsilon is the sine of the smallest angle two lines may enclose
// before they are treated as parallel.
const parallelEpsilon = 1e-10

// collinearEpsilon bounds the sine of the turn angle at a corner below which
// the corner's neighbours are treated as collinear with it.
const collinearEpsilon = 1e-6

// Intersect returns the intersection of the infinite lines through a and b
// using the two-line determinant formula. Parallel, coincident or
// zero-length lines yield ErrDegenerateGeometry.
func Intersect(a, b Line) (Point2D, error) {
	x1, y1 := a.A.X, a.A.Y
	x2, y2 := a.B.X, a.B.Y
	x3, y3 := b.A.X, b.A.Y
	x4, y4 := b.B.X, b.B.Y

	scale := math.Sqrt(a.LengthSq() * b.LengthSq())
	if scale == 0 {
		return Point2D{}, fmt.Errorf("intersect: zero-length line: %w", ErrDegenerateGeometry)
	}

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(denom) <= parallelEpsilon*scale {
		return Point2D{}, fmt.Errorf("intersect: parallel or coincident lines: %w", ErrDegenerateGeometry)
	}

	da := x1*y2 - y1*x2
	db := x3*y4 - y3*x4
	p := Point2D{
		X: (da*(x3-x4) - (x1-x2)*db) / denom,
		Y: (da*(y3-y4) - (y1-y2)*db) / denom,
	}
	if !p.IsFinite() {
		return Point2D{}, fmt.Errorf("intersect: non-finite result: %w", ErrDegenerateGeometry)
	}
	return p, nil
}

// homogeneousLine returns the line through l's endpoints as (a, b, c) with
// a*x + b*y + c = 0 and (a, b) of unit length.
func homogeneousLine(l Line) (a, b, c float64, ok bool) {
	a = l.A.Y - l.B.Y
	b = l.B.X - l.A.X
	c = l.A.X*l.B.Y - l.B.X*l.A.Y
	n := math.Hypot(a, b)
	if n == 0 {
		return 0, 0, 0, false
	}
	return a / n, b / n, c / n, true
}

// Vanish returns the homogeneous intersection of two lines. Unlike
// Intersect it accepts parallel lines: their intersection is the point at
// infinity in their common direction (W == 0). Coincident and zero-length
// lines yield ErrDegenerateGeometry.
func Vanish(l1, l2 Line) (HPoint, error) {
	a1, b1, c1, ok1 := homogeneousLine(l1)
	a2, b2, c2, ok2 := homogeneousLine(l2)
	if !ok1 || !ok2 {
		return HPoint{}, fmt.Errorf("vanishing point: zero-length line: %w", ErrDegenerateGeometry)
	}

	v := HPoint{
		X: b1*c2 - c1*b2,
		Y: c1*a2 - a1*c2,
		W: a1*b2 - b1*a2,
	}
	if math.Abs(v.W) <= parallelEpsilon {
		// (X, Y) is the line direction scaled by the distance between the lines.
		offset := math.Hypot(v.X, v.Y)
		if offset <= parallelEpsilon*math.Max(1, math.Max(math.Abs(c1), math.Abs(c2))) {
			return HPoint{}, fmt.Errorf("vanishing point: coincident lines: %w", ErrDegenerateGeometry)
		}
		v = HPoint{X: v.X / offset, Y: v.Y / offset}
	}
	return v, nil
}

// LineThrough returns the line through p towards v. A finite v gives the
// line p–v, a point at infinity gives the line through p in v's direction.
// The returned line has unit length. v coinciding with p yields
// ErrDegenerateGeometry.
func LineThrough(p Point2D, v HPoint) (Line, error) {
	dx := v.X - p.X*v.W
	dy := v.Y - p.Y*v.W
	n := math.Hypot(dx, dy)
	mag := math.Abs(v.X) + math.Abs(v.Y) + math.Abs(v.W)*(math.Abs(p.X)+math.Abs(p.Y))
	if n <= parallelEpsilon*mag || n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Line{}, fmt.Errorf("line through (%.3f, %.3f): point coincides with target: %w",
			p.X, p.Y, ErrDegenerateGeometry)
	}
	return Line{A: p, B: Point2D{X: p.X + dx/n, Y: p.Y + dy/n}}, nil
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int

	for i := 0; i < n; i++ {
		cross := crossProduct(
			polygon[i],
			polygon[(i+1)%n],
			polygon[(i+2)%n],
		)

		if cross != 0 {
			currentSign := 1
			if cross < 0 {
				currentSign = -1
			}

			if sign == 0 {
				sign = currentSign
			} else if currentSign != sign {
				return false
			}
		}
	}

	return true
}

// SortCorners orders four points as top-left, top-right, bottom-right,
// bottom-left. Points with y above the centroid form the top pair, ordered
// left to right; the rest form the bottom pair, ordered right to left.
// The result does not depend on the order of the input.
func SortCorners(points []Point2D) (Quad, error) {
	if len(points) != 4 {
		return Quad{}, fmt.Errorf("sort corners: need 4 points, got %d: %w", len(points), ErrInvalidInput)
	}
	for i, p := range points {
		if !p.IsFinite() {
			return Quad{}, fmt.Errorf("sort corners: point %d is not finite: %w", i, ErrInvalidInput)
		}
	}

	center := Centroid(points)
	var top, bottom []Point2D
	for _, p := range points {
		if p.Y < center.Y {
			top = append(top, p)
		} else {
			bottom = append(bottom, p)
		}
	}
	if len(top) != 2 {
		return Quad{}, fmt.Errorf("sort corners: %d points above centroid, need 2: %w", len(top), ErrInvalidInput)
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].X != top[j].X {
			return top[i].X < top[j].X
		}
		return top[i].Y < top[j].Y
	})
	sort.Slice(bottom, func(i, j int) bool {
		if bottom[i].X != bottom[j].X {
			return bottom[i].X > bottom[j].X
		}
		return bottom[i].Y > bottom[j].Y
	})

	return Quad{top[0], top[1], bottom[0], bottom[1]}, nil
}
