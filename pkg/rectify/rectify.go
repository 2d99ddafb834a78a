// Package rectify turns the perspective image of a planar rectangle, marked
// by its four corners, into an undistorted axis-aligned image.
//
// # Pipeline
//
// The corners are put in canonical order and validated, the rectangle's
// true aspect ratio is recovered from the perspective, an output size and
// subdivision depth are negotiated, the quad is recursively subdivided into
// a coordinate map, and the output is filled by nearest-neighbour lookup
// through that map:
//
//	src := rectify.FromImage(img)
//	res, err := rectify.Rectify(src, []geometry.Point2D{
//	    {X: 112, Y: 80}, {X: 530, Y: 95}, {X: 580, Y: 410}, {X: 60, Y: 380},
//	})
//	if err != nil {
//	    return err
//	}
//	out := res.Image.ToImage()
//
// Every call works on its own buffers; Rectify is safe for concurrent use.
package rectify

import (
	"context"
	"fmt"
	"log/slog"

	"quadrect/pkg/geometry"
)

// Result is the outcome of a rectification.
type Result struct {
	// Image is the rectified output, owned by the caller.
	Image Raster
	// Corners are the input corners in canonical order.
	Corners geometry.Quad
	// Estimate is the recovered aspect ratio.
	Estimate Estimate
	// Plan is the negotiated output size and subdivision depth.
	Plan Plan
	// Stats reports resampler corrections.
	Stats ResampleStats
	// Deviation is the largest distance in source pixels between the
	// coordinate map and the exact homography. Only set with WithAudit.
	Deviation float64
}

// Rectify extracts the rectangle marked by corners from src. corners must
// hold exactly four points in any order.
func Rectify(src Raster, corners []geometry.Point2D, opts ...Option) (*Result, error) {
	return RectifyContext(context.Background(), src, corners, opts...)
}

// RectifyContext is like Rectify but returns early with ctx.Err() if ctx is
// done between pipeline stages.
func RectifyContext(ctx context.Context, src Raster, corners []geometry.Point2D, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("rectify: source: %w", err)
	}

	q, err := geometry.SortCorners(corners)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}

	principal := geometry.Point2D{X: float64(src.Width) / 2, Y: float64(src.Height) / 2}
	if o.principal != nil {
		principal = *o.principal
	}
	est, err := EstimateAspectRatio(q, principal, o.focal)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}

	reqWidth, reqHeight := 0, 0
	if o.widthSet {
		reqWidth = o.width
	}
	if o.heightSet {
		reqHeight = o.height
	}
	plan, err := NegotiateSize(q, est.Ratio, reqWidth, reqHeight, o.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}

	log := Logger()
	log.Debug("rectify: plan",
		slog.Float64("ratio", est.Ratio),
		slog.String("method", est.Method.String()),
		slog.Int("width", plan.Width),
		slog.Int("height", plan.Height),
		slog.Int("depth", plan.Depth))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := BuildCoordinateMap(q, plan.Depth, o.fanout)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}

	res := &Result{
		Corners:  q,
		Estimate: est,
		Plan:     plan,
	}
	if o.audit {
		if res.Deviation, err = m.Deviation(q); err != nil {
			return nil, fmt.Errorf("rectify: audit: %w", err)
		}
		log.Debug("rectify: audit", slog.Float64("deviation", res.Deviation))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Image, res.Stats, err = Resample(src, m, plan.Width, plan.Height)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}
	if res.Stats.Clamped > 0 {
		log.Warn("rectify: source points outside image clamped",
			slog.Int("pixels", res.Stats.Clamped))
	}
	return res, nil
}
