package rectify

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"quadrect/pkg/geometry"
)

// Quadrant codes appended to a Path at each subdivision step.
const (
	QuadrantNone   uint8 = 0 // top-left child
	QuadrantColumn uint8 = 1 // top-right child
	QuadrantRow    uint8 = 2 // bottom-left child
	QuadrantBoth   uint8 = 3 // bottom-right child
)

// MaxPathDepth is the longest Path that can be encoded.
const MaxPathDepth = 32

// Path is the sequence of quadrant codes leading from the root quad to a
// sub-quad, two bits per step with the first step in the most significant
// position.
type Path struct {
	bits  uint64
	depth int
}

// Append returns p extended by one step.
func (p Path) Append(code uint8) Path {
	return Path{bits: p.bits<<2 | uint64(code&3), depth: p.depth + 1}
}

// Depth returns the number of steps in p.
func (p Path) Depth() int {
	return p.depth
}

// Code returns the quadrant code of the given step; step 0 is the first
// split of the root quad.
func (p Path) Code(step int) uint8 {
	return uint8(p.bits>>(2*(p.depth-1-step))) & 3
}

// Cell decodes p into the grid cell it addresses in a 2^Depth grid. Each
// step contributes its column and row bits with weight 2^(Depth-1-step).
func (p Path) Cell() (row, col int) {
	for step := 0; step < p.depth; step++ {
		weight := 1 << (p.depth - 1 - step)
		code := p.Code(step)
		if code&QuadrantColumn != 0 {
			col += weight
		}
		if code&QuadrantRow != 0 {
			row += weight
		}
	}
	return row, col
}

func (p Path) String() string {
	if p.depth == 0 {
		return "root"
	}
	var sb strings.Builder
	for step := 0; step < p.depth; step++ {
		sb.WriteByte('0' + p.Code(step))
	}
	return sb.String()
}

// Leaf is the center of a sub-quad at full subdivision depth.
type Leaf struct {
	Path  Path
	Point geometry.Point2D
}

// Subdivider splits a quad into projectively equal quadrants. The split
// lines of every sub-quad pass through its diagonal intersection and the
// root quad's two vanishing points, so after n steps the sub-quads are the
// images of a regular 2^n grid on the original rectangle.
type Subdivider struct {
	// v1 is the vanishing point of the top and bottom edges, v2 that of the
	// left and right edges. Either may be at infinity.
	v1, v2 geometry.HPoint
	depth  int
	// fanout is the smallest remaining depth at which children are walked
	// concurrently; 0 disables concurrency.
	fanout int
}

// NewSubdivider prepares the subdivision of root down to depth levels.
func NewSubdivider(root geometry.Quad, depth, fanout int) (*Subdivider, error) {
	if depth < 0 || depth > MaxPathDepth {
		return nil, fmt.Errorf("subdivider: depth %d: %w", depth, ErrInvalidInput)
	}
	v1, err := geometry.Vanish(root.Top(), root.Bottom())
	if err != nil {
		return nil, fmt.Errorf("subdivider: horizontal vanishing point: %w", err)
	}
	v2, err := geometry.Vanish(root.Left(), root.Right())
	if err != nil {
		return nil, fmt.Errorf("subdivider: vertical vanishing point: %w", err)
	}
	return &Subdivider{v1: v1, v2: v2, depth: depth, fanout: max(fanout, 0)}, nil
}

// Depth returns the subdivision depth.
func (s *Subdivider) Depth() int {
	return s.depth
}

// Split divides q into its four children, indexed by quadrant code, and
// returns q's diagonal intersection.
func (s *Subdivider) Split(q geometry.Quad) (geometry.Point2D, [4]geometry.Quad, error) {
	var children [4]geometry.Quad

	o, err := q.Center()
	if err != nil {
		return o, children, err
	}
	across, err := geometry.LineThrough(o, s.v1)
	if err != nil {
		return o, children, err
	}
	down, err := geometry.LineThrough(o, s.v2)
	if err != nil {
		return o, children, err
	}

	left, err := geometry.Intersect(across, q.Left())
	if err != nil {
		return o, children, err
	}
	right, err := geometry.Intersect(across, q.Right())
	if err != nil {
		return o, children, err
	}
	top, err := geometry.Intersect(down, q.Top())
	if err != nil {
		return o, children, err
	}
	bottom, err := geometry.Intersect(down, q.Bottom())
	if err != nil {
		return o, children, err
	}

	tl, tr, br, bl := q[geometry.TopLeft], q[geometry.TopRight], q[geometry.BottomRight], q[geometry.BottomLeft]
	children[QuadrantNone] = geometry.Quad{tl, top, o, left}
	children[QuadrantColumn] = geometry.Quad{top, tr, right, o}
	children[QuadrantRow] = geometry.Quad{left, o, bottom, bl}
	children[QuadrantBoth] = geometry.Quad{o, right, br, bottom}
	return o, children, nil
}

// Walk subdivides q, which is reached from the root by path, and calls emit
// for every leaf below it. Leaves of disjoint subtrees may be emitted from
// different goroutines; emit must tolerate that as long as it touches only
// state owned by the leaf. Any degenerate intersection aborts the walk with
// an error naming the path where it occurred.
func (s *Subdivider) Walk(q geometry.Quad, path Path, emit func(Leaf)) error {
	if path.Depth() >= s.depth {
		o, err := q.Center()
		if err != nil {
			return fmt.Errorf("subdivide at %s: %w", path, err)
		}
		emit(Leaf{Path: path, Point: o})
		return nil
	}

	_, children, err := s.Split(q)
	if err != nil {
		return fmt.Errorf("subdivide at %s: %w", path, err)
	}

	if s.fanout > 0 && s.depth-path.Depth() >= s.fanout {
		var g errgroup.Group
		for code, child := range children {
			code, child := code, child
			g.Go(func() error {
				return s.Walk(child, path.Append(uint8(code)), emit)
			})
		}
		return g.Wait()
	}

	for code, child := range children {
		if err := s.Walk(child, path.Append(uint8(code)), emit); err != nil {
			return err
		}
	}
	return nil
}
