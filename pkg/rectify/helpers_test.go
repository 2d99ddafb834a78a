package rectify

import (
	"math"

	"quadrect/pkg/geometry"
)

const epsilon = 1e-9

// camera projects points of a planar rectangle through a pinhole camera.
type camera struct {
	focal     float64
	principal geometry.Point2D
	tiltX     float64 // rotation about the horizontal axis, degrees
	tiltY     float64 // rotation about the vertical axis, degrees
	distance  float64 // distance of the rectangle center along the axis
}

// project returns the image of a width x height rectangle centered on the
// optical axis, in canonical corner order.
func (c camera) project(width, height float64) geometry.Quad {
	a := c.tiltX * math.Pi / 180
	b := c.tiltY * math.Pi / 180

	plane := [4]geometry.Point2D{
		{X: -width / 2, Y: -height / 2},
		{X: width / 2, Y: -height / 2},
		{X: width / 2, Y: height / 2},
		{X: -width / 2, Y: height / 2},
	}

	var q geometry.Quad
	for i, p := range plane {
		y := p.Y * math.Cos(a)
		z := p.Y * math.Sin(a)
		x := p.X*math.Cos(b) + z*math.Sin(b)
		z = -p.X*math.Sin(b) + z*math.Cos(b)
		z += c.distance
		q[i] = geometry.Point2D{
			X: c.principal.X + c.focal*x/z,
			Y: c.principal.Y + c.focal*y/z,
		}
	}
	return q
}

// tilted is a 30 degree view with a slight turn, so both vanishing points
// are finite.
var tilted = camera{
	focal:     800,
	principal: geometry.Point2D{X: 500, Y: 400},
	tiltX:     30,
	tiltY:     10,
	distance:  4,
}

func solid(width, height int, c [4]uint8) Raster {
	r, err := NewRaster(width, height)
	if err != nil {
		panic(err)
	}
	for i := 0; i < len(r.Pix); i += 4 {
		copy(r.Pix[i:i+4], c[:])
	}
	return r
}

// gradient gives every pixel a distinct color.
func gradient(width, height int) Raster {
	r, err := NewRaster(width, height)
	if err != nil {
		panic(err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			r.Pix[i] = uint8(x)
			r.Pix[i+1] = uint8(y)
			r.Pix[i+2] = uint8(x>>8 | (y>>8)<<4)
			r.Pix[i+3] = 255
		}
	}
	return r
}

// palette returns the set of colors present in r.
func palette(r Raster) map[[4]uint8]bool {
	colors := make(map[[4]uint8]bool)
	for i := 0; i < len(r.Pix); i += 4 {
		colors[[4]uint8{r.Pix[i], r.Pix[i+1], r.Pix[i+2], r.Pix[i+3]}] = true
	}
	return colors
}
