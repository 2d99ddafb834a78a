package rectify

import (
	"bytes"
	"errors"
	"testing"

	"quadrect/pkg/geometry"
)

func TestGridIndex(t *testing.T) {
	tests := []struct {
		i, n, side int
		want       int
	}{
		{0, 10, 4, 0},
		{1, 10, 4, 0},
		{2, 10, 4, 1},
		{5, 10, 4, 2},
		{9, 10, 4, 3},
		{3, 4, 16, 12},
		{3, 4, 1, 0},
		{7, 8, 8, 7},
	}
	for _, tt := range tests {
		if got := gridIndex(tt.i, tt.n, tt.side); got != tt.want {
			t.Errorf("gridIndex(%d, %d, %d) = %d, want %d", tt.i, tt.n, tt.side, got, tt.want)
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	src := gradient(8, 8)
	q := geometry.Quad{{X: 0, Y: 0}, {X: 7, Y: 0}, {X: 7, Y: 7}, {X: 0, Y: 7}}
	m, err := BuildCoordinateMap(q, 3, 0)
	if err != nil {
		t.Fatalf("BuildCoordinateMap() error = %v", err)
	}

	dst, stats, err := Resample(src, m, 8, 8)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if stats.Clamped != 0 {
		t.Errorf("Clamped = %d, want 0", stats.Clamped)
	}
	if !bytes.Equal(dst.Pix, src.Pix) {
		t.Error("identity resample changed pixels")
	}
}

func TestResampleCopiesSourcePixels(t *testing.T) {
	src := gradient(500, 450)
	m, err := BuildCoordinateMap(trapezoid, 8, 0)
	if err != nil {
		t.Fatalf("BuildCoordinateMap() error = %v", err)
	}

	have := palette(src)
	for _, size := range [][2]int{{300, 200}, {64, 64}, {400, 500}} {
		dst, stats, err := Resample(src, m, size[0], size[1])
		if err != nil {
			t.Fatalf("Resample(%v) error = %v", size, err)
		}
		if dst.Width != size[0] || dst.Height != size[1] || len(dst.Pix) != size[0]*size[1]*4 {
			t.Errorf("Resample(%v) gave %dx%d with %d bytes", size, dst.Width, dst.Height, len(dst.Pix))
		}
		if stats.Clamped != 0 {
			t.Errorf("Resample(%v) clamped %d pixels inside the image", size, stats.Clamped)
		}
		for c := range palette(dst) {
			if !have[c] {
				t.Fatalf("Resample(%v) produced color %v not in the source", size, c)
			}
		}
	}
}

func TestResampleClampsOutsidePoints(t *testing.T) {
	src := gradient(10, 10)
	q := geometry.Quad{{X: -10, Y: -10}, {X: 20, Y: -10}, {X: 20, Y: 20}, {X: -10, Y: 20}}
	m, err := BuildCoordinateMap(q, 4, 0)
	if err != nil {
		t.Fatalf("BuildCoordinateMap() error = %v", err)
	}

	dst, stats, err := Resample(src, m, 16, 16)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if stats.Clamped == 0 {
		t.Error("Clamped = 0, want points outside the source counted")
	}
	if stats.Clamped >= 16*16 {
		t.Errorf("Clamped = %d, want the center left alone", stats.Clamped)
	}

	got, err := dst.RGBA(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := src.RGBA(0, 0)
	if got != want {
		t.Errorf("corner pixel = %v, want clamped source corner %v", got, want)
	}
}

func TestResampleInvalid(t *testing.T) {
	m, err := BuildCoordinateMap(trapezoid, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	good := solid(4, 4, [4]uint8{1, 2, 3, 4})

	tests := []struct {
		name          string
		src           Raster
		width, height int
	}{
		{"zero width", good, 0, 4},
		{"negative height", good, 4, -1},
		{"short buffer", Raster{Width: 4, Height: 4, Pix: make([]uint8, 10)}, 4, 4},
		{"empty source", Raster{}, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Resample(tt.src, m, tt.width, tt.height); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Resample() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestResampleNilMap(t *testing.T) {
	src := solid(4, 4, [4]uint8{1, 2, 3, 4})
	if _, _, err := Resample(src, nil, 4, 4); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Resample(nil map) error = %v, want ErrInvalidInput", err)
	}
}
