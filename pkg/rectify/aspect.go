package rectify

import (
	"fmt"
	"math"

	"quadrect/pkg/geometry"
)

// Method identifies how an aspect ratio was obtained.
type Method int

const (
	// MethodProjective is the closed form recovering both the ratio and the
	// focal length from two finite vanishing points.
	MethodProjective Method = iota
	// MethodFocal uses a caller-supplied focal length. It stays valid when
	// one pair of opposite edges is parallel in the image.
	MethodFocal
	// MethodAffine assumes the region is nearly fronto-parallel and compares
	// opposite edge lengths.
	MethodAffine
)

func (m Method) String() string {
	switch m {
	case MethodProjective:
		return "projective"
	case MethodFocal:
		return "focal"
	case MethodAffine:
		return "affine"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Estimate is a recovered width:height ratio of the original rectangle.
type Estimate struct {
	Ratio  float64
	Method Method
	// K2 and K3 are the perspective ratio terms of the width and height
	// directions; both are 1 for an affine view.
	K2, K3 float64
}

// unitTermEpsilon is how close a perspective ratio term may come to 1 before
// its vanishing point is treated as infinite.
const unitTermEpsilon = 1e-9

// triple returns (a × b) · c for the homogeneous points (a, 1), (b, 1),
// (c, 1).
func triple(a, b, c geometry.Point2D) float64 {
	return (a.Y-b.Y)*c.X - (a.X-b.X)*c.Y + a.X*b.Y - a.Y*b.X
}

// ratioTerms are the intermediate quantities of the single-view rectangle
// formula (Zhang & He, "Whiteboard scanning and image enhancement").
// Corners m1..m4 are top-left, top-right, bottom-left, bottom-right,
// relative to the principal point.
type ratioTerms struct {
	k2, k3 float64
	// n2 and n3 are the width and height directions of the rectangle up to
	// the unknown focal length: (x, y, z).
	n2x, n2y, n2z float64
	n3x, n3y, n3z float64
}

func newRatioTerms(q geometry.Quad, principal geometry.Point2D) ratioTerms {
	m1 := q[geometry.TopLeft].Sub(principal)
	m2 := q[geometry.TopRight].Sub(principal)
	m3 := q[geometry.BottomLeft].Sub(principal)
	m4 := q[geometry.BottomRight].Sub(principal)

	k2 := triple(m1, m4, m3) / triple(m2, m4, m3)
	k3 := triple(m1, m4, m2) / triple(m3, m4, m2)

	return ratioTerms{
		k2:  k2,
		k3:  k3,
		n2x: k2*m2.X - m1.X,
		n2y: k2*m2.Y - m1.Y,
		n2z: k2 - 1,
		n3x: k3*m3.X - m1.X,
		n3y: k3*m3.Y - m1.Y,
		n3z: k3 - 1,
	}
}

// degenerate reports whether the closed form cannot be used: both terms are
// 1, their sum diverges or is undefined, or either vanishing point is at
// infinity so the focal length is not observable.
func (t ratioTerms) degenerate() bool {
	sum := t.k2 + t.k3
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return true
	}
	return math.Abs(t.n2z) <= unitTermEpsilon || math.Abs(t.n3z) <= unitTermEpsilon
}

// projective evaluates the closed form. It reports false when the implied
// squared focal length is not positive or the ratio is not a positive
// finite number.
func (t ratioTerms) projective() (float64, bool) {
	p := t.n2z * t.n3z
	dot := t.n2x*t.n3x + t.n2y*t.n3y
	if dot == 0 || -dot/p <= 0 {
		return 0, false
	}
	n2sq := t.n2x*t.n2x + t.n2y*t.n2y
	n3sq := t.n3x*t.n3x + t.n3y*t.n3y
	num := p*n2sq/dot - t.n2z*t.n2z
	den := p*n3sq/dot - t.n3z*t.n3z
	return positiveSqrt(num / den)
}

// withFocal evaluates the ratio for a known focal length in pixels.
func (t ratioTerms) withFocal(f float64) (float64, bool) {
	f2 := f * f
	num := t.n2x*t.n2x + t.n2y*t.n2y + f2*t.n2z*t.n2z
	den := t.n3x*t.n3x + t.n3y*t.n3y + f2*t.n3z*t.n3z
	return positiveSqrt(num / den)
}

func positiveSqrt(v float64) (float64, bool) {
	r := math.Sqrt(v)
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, false
	}
	return r, true
}

// affineRatio compares the summed squared lengths of the top and bottom
// edges with those of the left and right edges.
func affineRatio(q geometry.Quad) (float64, bool) {
	horizontal := q.Top().LengthSq() + q.Bottom().LengthSq()
	vertical := q.Left().LengthSq() + q.Right().LengthSq()
	return positiveSqrt(horizontal / vertical)
}

// EstimateAspectRatio recovers the width:height ratio of the rectangle whose
// perspective image is q. principal is the image point on the optical axis,
// normally the image center. focal, when positive, is the focal length in
// pixels and is used if the closed form is degenerate; otherwise the affine
// approximation is used.
func EstimateAspectRatio(q geometry.Quad, principal geometry.Point2D, focal float64) (Estimate, error) {
	t := newRatioTerms(q, principal)
	est := Estimate{K2: t.k2, K3: t.k3}

	if !t.degenerate() {
		if r, ok := t.projective(); ok {
			est.Ratio, est.Method = r, MethodProjective
			return est, nil
		}
	}

	sum := t.k2 + t.k3
	if focal > 0 && !math.IsNaN(sum) && !math.IsInf(sum, 0) {
		if r, ok := t.withFocal(focal); ok {
			est.Ratio, est.Method = r, MethodFocal
			return est, nil
		}
	}

	r, ok := affineRatio(q)
	if !ok {
		return Estimate{}, fmt.Errorf("aspect ratio: zero-length edges: %w", ErrDegenerateGeometry)
	}
	est.Ratio, est.Method = r, MethodAffine
	return est, nil
}
