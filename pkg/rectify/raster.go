package rectify

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Raster is an interleaved, non-premultiplied RGBA8 pixel buffer with no
// row padding: pixel (x, y) starts at Pix[(y*Width+x)*4].
//
// A source Raster is only read by the rectifier. The Raster returned in a
// Result is freshly allocated and owned by the caller.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster allocates a zeroed raster.
func NewRaster(width, height int) (Raster, error) {
	if width <= 0 || height <= 0 {
		return Raster{}, fmt.Errorf("raster %dx%d: %w", width, height, ErrInvalidInput)
	}
	return Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// Validate checks that the dimensions are positive and the buffer holds
// exactly Width*Height pixels.
func (r Raster) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("raster %dx%d: %w", r.Width, r.Height, ErrInvalidInput)
	}
	if want := r.Width * r.Height * 4; len(r.Pix) != want {
		return fmt.Errorf("raster %dx%d: buffer has %d bytes, want %d: %w",
			r.Width, r.Height, len(r.Pix), want, ErrInvalidInput)
	}
	return nil
}

// Offset returns the index of pixel (x, y) in Pix.
func (r Raster) Offset(x, y int) (int, error) {
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
		return 0, fmt.Errorf("pixel (%d, %d) in %dx%d: %w", x, y, r.Width, r.Height, ErrOutOfBounds)
	}
	return (y*r.Width + x) * 4, nil
}

// clampedOffset returns the index of the pixel nearest to (x, y) inside the
// raster and whether clamping was needed.
func (r Raster) clampedOffset(x, y int) (int, bool) {
	clamped := false
	if x < 0 {
		x, clamped = 0, true
	} else if x >= r.Width {
		x, clamped = r.Width-1, true
	}
	if y < 0 {
		y, clamped = 0, true
	} else if y >= r.Height {
		y, clamped = r.Height-1, true
	}
	return (y*r.Width + x) * 4, clamped
}

// RGBA returns the channels of pixel (x, y).
func (r Raster) RGBA(x, y int) ([4]uint8, error) {
	i, err := r.Offset(x, y)
	if err != nil {
		return [4]uint8{}, err
	}
	return [4]uint8{r.Pix[i], r.Pix[i+1], r.Pix[i+2], r.Pix[i+3]}, nil
}

// FromImage copies img into a new raster. *image.NRGBA sources are copied
// row by row; everything else is converted through draw.
func FromImage(img image.Image) Raster {
	b := img.Bounds()
	r := Raster{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]uint8, b.Dx()*b.Dy()*4),
	}

	if src, ok := img.(*image.NRGBA); ok {
		rowLen := r.Width * 4
		for y := 0; y < r.Height; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(r.Pix[y*rowLen:(y+1)*rowLen], src.Pix[i:i+rowLen])
		}
		return r
	}

	dst := &image.NRGBA{
		Pix:    r.Pix,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return r
}

// ToImage wraps a copy of the raster as an *image.NRGBA.
func (r Raster) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Pix)
	return img
}
