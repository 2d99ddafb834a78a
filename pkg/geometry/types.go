// Package geometry provides the planar geometry used to rectify a marked
// quadrilateral: points, lines, quads and their intersections.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Line is the infinite line through two points. A and B also serve as the
// endpoints when the line is treated as a segment.
type Line struct {
	A, B Point2D
}

// NewLine creates a Line through a and b.
func NewLine(a, b Point2D) Line {
	return Line{A: a, B: b}
}

// Length returns the distance between the endpoints.
func (l Line) Length() float64 {
	return l.A.Distance(l.B)
}

// LengthSq returns the squared distance between the endpoints.
func (l Line) LengthSq() float64 {
	dx := l.B.X - l.A.X
	dy := l.B.Y - l.A.Y
	return dx*dx + dy*dy
}

// PointAt interpolates between A (t=0) and B (t=1).
// Values of t outside [0,1] extrapolate along the line.
func (l Line) PointAt(t float64) Point2D {
	return Point2D{
		X: l.A.X + (l.B.X-l.A.X)*t,
		Y: l.A.Y + (l.B.Y-l.A.Y)*t,
	}
}

// HPoint is a point in homogeneous coordinates. W == 0 denotes a point at
// infinity, i.e. a direction.
type HPoint struct {
	X, Y, W float64
}

// Homogeneous lifts a point to homogeneous coordinates.
func (p Point2D) Homogeneous() HPoint {
	return HPoint{X: p.X, Y: p.Y, W: 1}
}

// IsInfinite reports whether h lies on the line at infinity, relative to the
// magnitude of its finite components.
func (h HPoint) IsInfinite() bool {
	scale := math.Max(math.Abs(h.X), math.Abs(h.Y))
	return math.Abs(h.W) <= parallelEpsilon*scale
}

// Point returns the Euclidean point for a finite h.
func (h HPoint) Point() (Point2D, bool) {
	if h.IsInfinite() {
		return Point2D{}, false
	}
	p := Point2D{X: h.X / h.W, Y: h.Y / h.W}
	return p, p.IsFinite()
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Centroid computes the arithmetic mean of a set of points.
// Coordinates are summed in input order.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
