package rectify

import (
	"errors"
	"fmt"

	"quadrect/pkg/geometry"
)

// MaxDepthLimit is the largest subdivision depth accepted; a map of that
// depth has 4^14 cells.
const MaxDepthLimit = 14

// Defaults used when no option overrides them.
const (
	DefaultMaxDepth    = 12
	DefaultFanoutDepth = 8
)

// Option configures a rectification.
//
// Example:
//
//	res, err := rectify.Rectify(src, corners,
//	    rectify.WithWidth(1200),
//	    rectify.WithFocalLength(2800))
type Option func(*options)

type options struct {
	width, height       int
	widthSet, heightSet bool
	maxDepth            int
	fanout              int
	principal           *geometry.Point2D
	focal               float64
	audit               bool
	errs                []error
}

func defaultOptions() options {
	return options{
		maxDepth: DefaultMaxDepth,
		fanout:   DefaultFanoutDepth,
	}
}

func (o *options) fail(format string, args ...any) {
	o.errs = append(o.errs, fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...))
}

func (o *options) validate() error {
	return errors.Join(o.errs...)
}

// WithSize requests an exact output size instead of the negotiated one.
// Both dimensions must be positive.
func WithSize(width, height int) Option {
	return func(o *options) {
		WithWidth(width)(o)
		WithHeight(height)(o)
	}
}

// WithWidth requests the output width; the height follows from the
// recovered aspect ratio unless also requested.
func WithWidth(width int) Option {
	return func(o *options) {
		if width <= 0 {
			o.fail("requested width %d", width)
			return
		}
		o.width, o.widthSet = width, true
	}
}

// WithHeight requests the output height; the width follows from the
// recovered aspect ratio unless also requested.
func WithHeight(height int) Option {
	return func(o *options) {
		if height <= 0 {
			o.fail("requested height %d", height)
			return
		}
		o.height, o.heightSet = height, true
	}
}

// WithMaxDepth caps the subdivision depth. Outputs larger than 2^depth on
// their long side reuse grid cells.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth < 0 || depth > MaxDepthLimit {
			o.fail("max depth %d outside [0, %d]", depth, MaxDepthLimit)
			return
		}
		o.maxDepth = depth
	}
}

// WithFanoutDepth sets the smallest remaining subdivision depth at which the
// four children of a quad are processed concurrently. 0 keeps the whole
// subdivision on the calling goroutine. The output does not depend on it.
func WithFanoutDepth(depth int) Option {
	return func(o *options) {
		if depth < 0 {
			o.fail("fanout depth %d", depth)
			return
		}
		o.fanout = depth
	}
}

// WithPrincipalPoint overrides the optical axis position, which defaults to
// the center of the source image.
func WithPrincipalPoint(p geometry.Point2D) Option {
	return func(o *options) {
		if !p.IsFinite() {
			o.fail("principal point %v", p)
			return
		}
		o.principal = &p
	}
}

// WithFocalLength supplies the focal length in pixels. It is only used when
// the focal length cannot be recovered from the corners, which happens when
// one pair of opposite edges is parallel in the image.
func WithFocalLength(f float64) Option {
	return func(o *options) {
		if !(f > 0) {
			o.fail("focal length %g", f)
			return
		}
		o.focal = f
	}
}

// WithAudit compares the coordinate map with the exact homography of the
// quad and reports the largest deviation in Result.Deviation.
func WithAudit() Option {
	return func(o *options) {
		o.audit = true
	}
}
