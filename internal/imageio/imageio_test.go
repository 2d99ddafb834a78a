package imageio

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(60 * y), B: 7, A: 255})
		}
	}
	return img
}

func TestSaveLoadLossless(t *testing.T) {
	want := testImage()
	dir := t.TempDir()

	for _, ext := range []string{".png", ".tif", ".tiff", ".bmp"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "out"+ext)
			if err := Save(path, want, SaveOptions{Compress: ext == ".tiff"}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			src, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if src.Width() != 6 || src.Height() != 4 {
				t.Fatalf("loaded %dx%d, want 6x4", src.Width(), src.Height())
			}
			for y := 0; y < 4; y++ {
				for x := 0; x < 6; x++ {
					got := color.NRGBAModel.Convert(src.Image.At(x, y)).(color.NRGBA)
					if got != want.NRGBAAt(x, y) {
						t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, want.NRGBAAt(x, y))
					}
				}
			}
		})
	}
}

func TestLoadTIFFResolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.tif")
	if err := Save(path, testImage(), SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	src, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.Format != "tiff" {
		t.Errorf("Format = %q, want tiff", src.Format)
	}
	if src.DPI != 72 {
		t.Errorf("DPI = %g, want the encoder's 72", src.DPI)
	}
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := Save(path, testImage(), SaveOptions{Quality: 80}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Format != "jpeg" || src.Width() != 6 {
		t.Errorf("loaded %s %dx%d", src.Format, src.Width(), src.Height())
	}
}

func TestSaveUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.webp")
	if err := Save(path, testImage(), SaveOptions{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Save() error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Save created a file for an unsupported format")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Load(missing) succeeded")
	}

	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); err == nil {
		t.Error("Load(garbage) succeeded")
	}
}

func TestIsSupportedInput(t *testing.T) {
	tests := map[string]bool{
		"a.PNG":       true,
		"b.tiff":      true,
		"c.webp":      true,
		"d.txt":       false,
		"noextension": false,
	}
	for path, want := range tests {
		if got := IsSupportedInput(path); got != want {
			t.Errorf("IsSupportedInput(%q) = %v, want %v", path, got, want)
		}
	}
}
