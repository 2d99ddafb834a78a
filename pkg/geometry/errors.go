package geometry

import "errors"

// Errors returned by the geometry kernel. Callers test for them with
// errors.Is; the returned errors wrap them with context.
var (
	// ErrInvalidInput is returned when the input cannot describe a quad:
	// wrong corner count, unorderable or non-convex corners.
	ErrInvalidInput = errors.New("geometry: invalid input")

	// ErrDegenerateGeometry is returned when an intersection is undefined
	// because lines are parallel, coincident or of zero length, or when a
	// computation would produce a non-finite coordinate.
	ErrDegenerateGeometry = errors.New("geometry: degenerate geometry")
)
