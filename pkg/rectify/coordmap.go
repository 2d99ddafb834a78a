package rectify

import (
	"fmt"
	"math"

	"quadrect/pkg/geometry"
)

// CoordinateMap is a square grid mapping rectified cells to source image
// coordinates. Cell (row, col) holds the source point corresponding to the
// center of that cell of the original rectangle.
type CoordinateMap struct {
	depth  int
	side   int
	points []geometry.Point2D
}

// newCoordinateMap allocates a map of side 2^depth with every cell unset.
func newCoordinateMap(depth int) *CoordinateMap {
	side := 1 << depth
	points := make([]geometry.Point2D, side*side)
	unset := geometry.Point2D{X: math.NaN(), Y: math.NaN()}
	for i := range points {
		points[i] = unset
	}
	return &CoordinateMap{depth: depth, side: side, points: points}
}

// BuildCoordinateMap subdivides q to the given depth and stores every leaf
// in its cell. fanout is passed to the Subdivider.
func BuildCoordinateMap(q geometry.Quad, depth, fanout int) (*CoordinateMap, error) {
	if depth < 0 || depth > MaxDepthLimit {
		return nil, fmt.Errorf("coordinate map: depth %d outside [0, %d]: %w", depth, MaxDepthLimit, ErrInvalidInput)
	}
	s, err := NewSubdivider(q, depth, fanout)
	if err != nil {
		return nil, err
	}

	m := newCoordinateMap(depth)
	err = s.Walk(q, Path{}, func(leaf Leaf) {
		row, col := leaf.Path.Cell()
		m.points[row*m.side+col] = leaf.Point
	})
	if err != nil {
		return nil, err
	}

	if n := m.Populated(); n != len(m.points) {
		return nil, fmt.Errorf("coordinate map: %d of %d cells set: %w", n, len(m.points), ErrDegenerateGeometry)
	}
	return m, nil
}

// Depth returns the subdivision depth.
func (m *CoordinateMap) Depth() int { return m.depth }

// Side returns the number of cells along each axis.
func (m *CoordinateMap) Side() int { return m.side }

// At returns the source point of cell (row, col).
func (m *CoordinateMap) At(row, col int) geometry.Point2D {
	return m.points[row*m.side+col]
}

// Populated returns the number of cells holding a finite point.
func (m *CoordinateMap) Populated() int {
	n := 0
	for _, p := range m.points {
		if p.IsFinite() {
			n++
		}
	}
	return n
}

// Deviation returns the largest distance between a cell's point and the
// exact projective image of the cell center, where the projective map sends
// the unit square onto q. It measures how far the subdivision drifted from
// the closed-form homography.
func (m *CoordinateMap) Deviation(q geometry.Quad) (float64, error) {
	h, err := geometry.UnitSquareTo(q)
	if err != nil {
		return 0, err
	}

	side := float64(m.side)
	var worst float64
	for row := 0; row < m.side; row++ {
		for col := 0; col < m.side; col++ {
			want, ok := h.Apply(geometry.Point2D{
				X: (float64(col) + 0.5) / side,
				Y: (float64(row) + 0.5) / side,
			})
			if !ok {
				return 0, fmt.Errorf("deviation: cell (%d, %d) maps to infinity: %w", row, col, ErrDegenerateGeometry)
			}
			worst = math.Max(worst, want.Distance(m.At(row, col)))
		}
	}
	return worst, nil
}
