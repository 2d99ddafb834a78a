// Package detect finds the outline of a rectangular document or board in a
// photograph so it can be rectified without hand-picked corners.
package detect

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"quadrect/pkg/geometry"
	"quadrect/pkg/rectify"
)

// ErrNotFound is returned when no usable quadrilateral outline is found.
var ErrNotFound = errors.New("detect: no quadrilateral found")

// Params tune the contour search.
type Params struct {
	BlurSize       int     // Gaussian kernel size, odd
	CannyLow       float32 // lower hysteresis threshold
	CannyHigh      float32 // upper hysteresis threshold
	MinAreaFrac    float64 // smallest accepted contour area, fraction of image
	MaxAreaFrac    float64 // largest accepted contour area, fraction of image
	ApproxFraction float64 // ApproxPolyDP epsilon as a fraction of the perimeter
}

// DefaultParams returns the parameters used by Corners.
func DefaultParams() Params {
	return Params{
		BlurSize:       5,
		CannyLow:       50,
		CannyHigh:      150,
		MinAreaFrac:    0.1,
		MaxAreaFrac:    0.98,
		ApproxFraction: 0.02,
	}
}

// Result holds a detected outline.
type Result struct {
	Corners geometry.Quad
	Bounds  geometry.Rect
	// Confidence is the outline area as a fraction of the image area.
	Confidence float64
}

// Corners runs DetectWith using DefaultParams.
func Corners(src rectify.Raster) (*Result, error) {
	return DetectWith(src, DefaultParams())
}

// DetectWith finds the largest convex four-sided contour in src. Edges are
// found with Canny on a blurred grayscale copy and closed with a dilation.
func DetectWith(src rectify.Raster, p Params) (*Result, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	img, err := rasterToMat(src)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorRGBAToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(p.BlurSize, p.BlurSize), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, p.CannyLow, p.CannyHigh)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	imgArea := float64(src.Width * src.Height)
	var best *Result
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area < imgArea*p.MinAreaFrac || area > imgArea*p.MaxAreaFrac {
			continue
		}
		if best != nil && area <= best.Confidence*imgArea {
			continue
		}

		approx := gocv.ApproxPolyDP(contour, p.ApproxFraction*gocv.ArcLength(contour, true), true)
		pts := vectorPoints(approx)
		approx.Close()

		// A slightly rounded corner can leave one or two extra vertices.
		if len(pts) < 4 || len(pts) > 6 {
			continue
		}
		q, ok := outline(pts)
		if !ok {
			continue
		}
		best = &Result{
			Corners:    q,
			Bounds:     geometry.BoundingBox(q.Points()),
			Confidence: area / imgArea,
		}
	}

	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// outline reduces a polygon to its four extreme corners in canonical order.
func outline(pts []geometry.Point2D) (geometry.Quad, bool) {
	c := geometry.Centroid(pts)
	var corners [4]geometry.Point2D
	var found [4]bool
	score := func(i int, p geometry.Point2D) float64 {
		d := p.Sub(c)
		switch i {
		case geometry.TopLeft:
			return -d.X - d.Y
		case geometry.TopRight:
			return d.X - d.Y
		case geometry.BottomRight:
			return d.X + d.Y
		default:
			return d.Y - d.X
		}
	}
	for i := range corners {
		for _, p := range pts {
			if !found[i] || score(i, p) > score(i, corners[i]) {
				corners[i], found[i] = p, true
			}
		}
	}

	if !geometry.IsConvex(corners[:]) {
		return geometry.Quad{}, false
	}
	q, err := geometry.SortCorners(corners[:])
	if err != nil || q.Validate() != nil {
		return geometry.Quad{}, false
	}
	return q, true
}

func vectorPoints(v gocv.PointVector) []geometry.Point2D {
	pts := make([]geometry.Point2D, v.Size())
	for i := range pts {
		pt := v.At(i)
		pts[i] = geometry.Point2D{X: float64(pt.X), Y: float64(pt.Y)}
	}
	return pts
}

// rasterToMat wraps a copy of the raster in a 4-channel Mat.
func rasterToMat(r rectify.Raster) (gocv.Mat, error) {
	pix := make([]byte, len(r.Pix))
	copy(pix, r.Pix)
	mat, err := gocv.NewMatFromBytes(r.Height, r.Width, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("detect: convert raster: %w", err)
	}
	return mat, nil
}
