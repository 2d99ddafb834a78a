package rectify

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"quadrect/pkg/geometry"
)

var red = [4]uint8{255, 0, 0, 255}

func TestRectifyFullImage(t *testing.T) {
	src := solid(100, 100, red)
	corners := []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}

	res, err := Rectify(src, corners)
	if err != nil {
		t.Fatalf("Rectify() error = %v", err)
	}
	if res.Estimate.Method != MethodAffine || res.Estimate.Ratio != 1 {
		t.Errorf("Estimate = %+v, want affine ratio 1", res.Estimate)
	}
	if diff := cmp.Diff(Plan{Width: 100, Height: 100, Depth: 7}, res.Plan); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
	if res.Stats.Clamped == 0 {
		t.Error("Clamped = 0, want cells on the far edge clamped")
	}
	if got := palette(res.Image); len(got) != 1 || !got[red] {
		t.Errorf("output colors = %v, want only red", got)
	}
}

func TestRectifyTiltedRectangle(t *testing.T) {
	src := gradient(1000, 800)
	q := tilted.project(1.5, 1)

	res, err := Rectify(src, q.Points(), WithAudit())
	if err != nil {
		t.Fatalf("Rectify() error = %v", err)
	}
	if res.Estimate.Method != MethodProjective {
		t.Errorf("Method = %v, want projective", res.Estimate.Method)
	}
	if math.Abs(res.Estimate.Ratio-1.5)/1.5 > 0.05 {
		t.Errorf("Ratio = %g, want 1.5 within 5%%", res.Estimate.Ratio)
	}

	w, h := res.Plan.Width, res.Plan.Height
	if w != res.Image.Width || h != res.Image.Height {
		t.Errorf("image %dx%d does not match plan %dx%d", res.Image.Width, res.Image.Height, w, h)
	}
	if got := float64(w) / float64(h); math.Abs(got-res.Estimate.Ratio) > res.Estimate.Ratio/float64(h) {
		t.Errorf("output %dx%d has ratio %g, want %g", w, h, got, res.Estimate.Ratio)
	}
	if res.Deviation > 1e-6 {
		t.Errorf("Deviation = %g, want < 1e-6", res.Deviation)
	}
	if res.Stats.Clamped != 0 {
		t.Errorf("Clamped = %d, want 0 for a quad inside the image", res.Stats.Clamped)
	}

	have := palette(src)
	for c := range palette(res.Image) {
		if !have[c] {
			t.Fatalf("output color %v not in the source", c)
		}
	}
}

func TestRectifyCornerOrderIndependent(t *testing.T) {
	src := gradient(500, 450)
	want, err := Rectify(src, trapezoid.Points())
	if err != nil {
		t.Fatalf("Rectify() error = %v", err)
	}

	shuffled := []geometry.Point2D{trapezoid[2], trapezoid[0], trapezoid[3], trapezoid[1]}
	got, err := Rectify(src, shuffled)
	if err != nil {
		t.Fatalf("Rectify(shuffled) error = %v", err)
	}
	if got.Corners != want.Corners || got.Plan != want.Plan {
		t.Errorf("shuffled corners gave %v %v, want %v %v", got.Corners, got.Plan, want.Corners, want.Plan)
	}
	if !bytes.Equal(got.Image.Pix, want.Image.Pix) {
		t.Error("shuffled corners changed the output")
	}
}

func TestRectifyInvalidCorners(t *testing.T) {
	src := solid(200, 200, red)
	tests := []struct {
		name    string
		corners []geometry.Point2D
		want    error
	}{
		{"three points", []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, ErrInvalidInput},
		{"five points", []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 5, Y: 5}}, ErrInvalidInput},
		{"three on top", []geometry.Point2D{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}}, ErrInvalidInput},
		{"collinear side", []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 100, Y: 50}}, ErrDegenerateGeometry},
		{"not finite", []geometry.Point2D{{X: 0, Y: 0}, {X: math.NaN(), Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Rectify(src, tt.corners)
			if !errors.Is(err, tt.want) {
				t.Errorf("Rectify() error = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Error("got a result despite the error")
			}
		})
	}
}

func TestRectifyInvalidSource(t *testing.T) {
	corners := trapezoid.Points()
	for _, src := range []Raster{{}, {Width: 10, Height: 10, Pix: make([]uint8, 399)}} {
		if _, err := Rectify(src, corners); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Rectify(%dx%d, %d bytes) error = %v, want ErrInvalidInput",
				src.Width, src.Height, len(src.Pix), err)
		}
	}
}

func TestRectifyInvalidOptions(t *testing.T) {
	src := solid(500, 450, red)
	corners := trapezoid.Points()
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero width", WithWidth(0)},
		{"negative height", WithHeight(-3)},
		{"size", WithSize(10, 0)},
		{"max depth", WithMaxDepth(MaxDepthLimit + 1)},
		{"fanout", WithFanoutDepth(-1)},
		{"focal", WithFocalLength(0)},
		{"principal", WithPrincipalPoint(geometry.Point2D{X: math.Inf(1)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Rectify(src, corners, tt.opt); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Rectify() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRectifyRequestedSize(t *testing.T) {
	src := gradient(500, 450)
	corners := trapezoid.Points()

	res, err := Rectify(src, corners, WithSize(123, 45))
	if err != nil {
		t.Fatalf("Rectify() error = %v", err)
	}
	if res.Image.Width != 123 || res.Image.Height != 45 {
		t.Errorf("image %dx%d, want 123x45", res.Image.Width, res.Image.Height)
	}

	res, err = Rectify(src, corners, WithWidth(200), WithMaxDepth(4))
	if err != nil {
		t.Fatalf("Rectify() error = %v", err)
	}
	if res.Image.Width != 200 || res.Plan.Depth != 4 {
		t.Errorf("got width %d depth %d, want 200 and 4", res.Image.Width, res.Plan.Depth)
	}
}

func TestRectifyContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corners := trapezoid.Points()
	_, err := RectifyContext(ctx, gradient(500, 450), corners)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RectifyContext() error = %v, want context.Canceled", err)
	}
}

func TestRectifyConcurrent(t *testing.T) {
	src := gradient(500, 450)
	corners := trapezoid.Points()
	want, err := Rectify(src, corners, WithFanoutDepth(0))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = Rectify(src, corners, WithFanoutDepth(2))
		}()
	}
	wg.Wait()

	for i, res := range results {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if !bytes.Equal(res.Image.Pix, want.Image.Pix) {
			t.Errorf("call %d differs from the sequential result", i)
		}
	}
}
