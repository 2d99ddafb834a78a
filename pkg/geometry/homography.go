package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform stored row-major with h[8] == 1.
type Homography [9]float64

// NewHomography solves for the projective transform mapping each src[i] to
// dst[i]. The eight unknowns are found with a dense linear solve; a singular
// system (three collinear points on either side) yields ErrDegenerateGeometry.
func NewHomography(src, dst [4]Point2D) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
		A.Set(r, 0, X)
		A.Set(r, 1, Y)
		A.Set(r, 2, 1)
		A.Set(r, 6, -X*x)
		A.Set(r, 7, -Y*x)
		b.SetVec(r, x)

		// y = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
		A.Set(r+1, 3, X)
		A.Set(r+1, 4, Y)
		A.Set(r+1, 5, 1)
		A.Set(r+1, 6, -X*y)
		A.Set(r+1, 7, -Y*y)
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return Homography{}, fmt.Errorf("homography: %v: %w", err, ErrDegenerateGeometry)
	}

	var H Homography
	for i := 0; i < 8; i++ {
		H[i] = h.AtVec(i)
	}
	H[8] = 1
	return H, nil
}

// Apply maps p through the homography. It reports false when p maps to the
// line at infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point2D{}, false
	}
	q := Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
	return q, q.IsFinite()
}

// UnitSquareTo returns the homography mapping the unit square (0,0), (1,0),
// (1,1), (0,1) onto q's corners in canonical order.
func UnitSquareTo(q Quad) (Homography, error) {
	square := [4]Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	return NewHomography(square, q)
}
