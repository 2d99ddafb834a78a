// Package overlay draws a corner quad onto a copy of the source image so the
// selection can be checked before or after rectification.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"quadrect/pkg/colorutil"
	"quadrect/pkg/geometry"
	"quadrect/pkg/rectify"
)

// Options controls how the quad is drawn.
type Options struct {
	Outline   color.NRGBA
	Thickness int
	// MarkerRadius is the radius of the corner circles; 0 hides them.
	MarkerRadius int
	// GridLines draws that many projective grid lines across each axis,
	// the images of evenly spaced lines on the rectangle. 0 hides the grid.
	GridLines int
	Grid      color.NRGBA
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Outline:      colorutil.Cyan,
		Thickness:    3,
		MarkerRadius: 8,
		GridLines:    7,
		Grid:         colorutil.Darken(colorutil.Cyan, 0.6),
	}
}

// Draw returns a copy of src with q drawn on top. q must be in canonical
// corner order; corner markers use colorutil.CornerColors.
func Draw(src rectify.Raster, q geometry.Quad, opts Options) (*image.NRGBA, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}

	rgba, err := gocv.NewMatFromBytes(src.Height, src.Width, gocv.MatTypeCV8UC4, append([]byte(nil), src.Pix...))
	if err != nil {
		return nil, fmt.Errorf("overlay: convert raster: %w", err)
	}
	defer rgba.Close()

	// gocv colors are applied in BGR channel order.
	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(rgba, &img, gocv.ColorRGBAToBGRA)

	if opts.GridLines > 0 {
		h, err := geometry.UnitSquareTo(q)
		if err != nil {
			return nil, err
		}
		n := opts.GridLines + 1
		for i := 1; i < n; i++ {
			t := float64(i) / float64(n)
			drawMapped(&img, h, geometry.Point2D{X: t, Y: 0}, geometry.Point2D{X: t, Y: 1}, opts.Grid)
			drawMapped(&img, h, geometry.Point2D{X: 0, Y: t}, geometry.Point2D{X: 1, Y: t}, opts.Grid)
		}
	}

	for i := 0; i < 4; i++ {
		gocv.Line(&img, pixel(q[i]), pixel(q[(i+1)%4]), color.RGBA(opts.Outline), max(opts.Thickness, 1))
	}

	if opts.MarkerRadius > 0 {
		for i, c := range q {
			gocv.Circle(&img, pixel(c), opts.MarkerRadius, color.RGBA(colorutil.CornerColors[i]), -1)
			gocv.Circle(&img, pixel(c), opts.MarkerRadius, color.RGBA(colorutil.Black), 1)
		}
	}

	gocv.CvtColor(img, &rgba, gocv.ColorBGRAToRGBA)
	out := image.NewNRGBA(image.Rect(0, 0, src.Width, src.Height))
	copy(out.Pix, rgba.ToBytes())
	return out, nil
}

// drawMapped draws the image under h of the unit-square segment a-b.
func drawMapped(img *gocv.Mat, h geometry.Homography, a, b geometry.Point2D, c color.NRGBA) {
	pa, okA := h.Apply(a)
	pb, okB := h.Apply(b)
	if !okA || !okB {
		return
	}
	gocv.Line(img, pixel(pa), pixel(pb), color.RGBA(c), 1)
}

func pixel(p geometry.Point2D) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
