package rectify

import (
	"fmt"
	"math"

	"quadrect/pkg/geometry"
)

// Plan is the negotiated output size and the subdivision depth used to build
// the coordinate map.
type Plan struct {
	Width  int
	Height int
	Depth  int
}

// Side returns the coordinate map side, 2^Depth.
func (p Plan) Side() int {
	return 1 << p.Depth
}

// NegotiateSize picks the output size for q given its recovered aspect
// ratio. Edge lengths are floored to whole pixels. The dominant axis is
// anchored on its shorter observed edge, so the output never holds more
// samples than were captured, and the other axis follows from the ratio.
//
// reqWidth and reqHeight override the negotiation when positive; with only
// one of them set the other is derived from the ratio. The depth is
// round(log2(max(width, height))), capped at maxDepth.
func NegotiateSize(q geometry.Quad, ratio float64, reqWidth, reqHeight, maxDepth int) (Plan, error) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Plan{}, fmt.Errorf("negotiate size: aspect ratio %g: %w", ratio, ErrInvalidInput)
	}

	top := math.Floor(q.Top().Length())
	bottom := math.Floor(q.Bottom().Length())
	left := math.Floor(q.Left().Length())
	right := math.Floor(q.Right().Length())

	minWidth, maxWidth := math.Min(top, bottom), math.Max(top, bottom)
	minHeight, maxHeight := math.Min(left, right), math.Max(left, right)

	var width, height int
	switch {
	case reqWidth > 0 && reqHeight > 0:
		width, height = reqWidth, reqHeight
	case reqWidth > 0:
		width = reqWidth
		height = int(math.Floor(float64(width) / ratio))
	case reqHeight > 0:
		height = reqHeight
		width = int(math.Floor(float64(height) * ratio))
	case maxWidth > maxHeight:
		width = int(minWidth)
		height = int(math.Floor(minWidth / ratio))
	default:
		height = int(minHeight)
		width = int(math.Floor(minHeight * ratio))
	}

	if width <= 0 || height <= 0 {
		return Plan{}, fmt.Errorf("negotiate size: output %dx%d: %w", width, height, ErrInvalidInput)
	}

	depth := int(math.Round(math.Log2(float64(max(width, height)))))
	if depth > maxDepth {
		depth = maxDepth
	}
	return Plan{Width: width, Height: height, Depth: depth}, nil
}
