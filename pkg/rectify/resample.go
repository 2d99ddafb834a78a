package rectify

import (
	"fmt"
	"math"
)

// ResampleStats reports what the resampler had to correct.
type ResampleStats struct {
	// Clamped counts output pixels whose source point rounded to a pixel
	// outside the source raster and was moved to the nearest edge pixel.
	Clamped int
}

// gridIndex maps output index i of n onto a grid of side cells.
func gridIndex(i, n, side int) int {
	g := int(math.Round(float64(i) * float64(side) / float64(n)))
	if g >= side {
		g = side - 1
	}
	return g
}

// Resample builds a width x height raster by nearest-neighbour lookup: each
// output pixel takes the grid cell nearest to its scaled position, and the
// four channels of the source pixel nearest to that cell's point are copied
// unchanged.
func Resample(src Raster, m *CoordinateMap, width, height int) (Raster, ResampleStats, error) {
	var stats ResampleStats
	if m == nil {
		return Raster{}, stats, fmt.Errorf("resample: nil coordinate map: %w", ErrInvalidInput)
	}
	if err := src.Validate(); err != nil {
		return Raster{}, stats, err
	}
	dst, err := NewRaster(width, height)
	if err != nil {
		return Raster{}, stats, fmt.Errorf("resample: %w", err)
	}

	side := m.Side()
	cols := make([]int, width)
	for x := range cols {
		cols[x] = gridIndex(x, width, side)
	}

	i := 0
	for y := 0; y < height; y++ {
		row := gridIndex(y, height, side)
		for x := 0; x < width; x++ {
			p := m.At(row, cols[x])
			j, clamped := src.clampedOffset(int(math.Round(p.X)), int(math.Round(p.Y)))
			if clamped {
				stats.Clamped++
			}
			copy(dst.Pix[i:i+4], src.Pix[j:j+4])
			i += 4
		}
	}
	return dst, stats, nil
}
