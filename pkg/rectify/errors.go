package rectify

import (
	"errors"

	"quadrect/pkg/geometry"
)

// Errors returned by rectification. They are wrapped with context; use
// errors.Is to test for them.
var (
	// ErrInvalidInput is returned for a corner count other than 4,
	// unorderable or non-convex corners, an output dimension <= 0, an
	// invalid option, or a raster whose buffer does not match its size.
	ErrInvalidInput = geometry.ErrInvalidInput

	// ErrDegenerateGeometry is returned when a line intersection needed for
	// the rectification is undefined (parallel, coincident or zero-length
	// lines, collinear corners).
	ErrDegenerateGeometry = geometry.ErrDegenerateGeometry

	// ErrOutOfBounds is returned by Raster.Offset for coordinates outside
	// the raster. The resampler clamps instead of failing.
	ErrOutOfBounds = errors.New("rectify: coordinates out of bounds")
)
