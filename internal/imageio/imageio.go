// Package imageio loads source images and writes rectified output.
package imageio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned by Save for an extension with no encoder.
var ErrUnsupportedFormat = errors.New("imageio: unsupported format")

// DefaultJPEGQuality is used when SaveOptions leaves Quality at zero.
const DefaultJPEGQuality = 92

// Source is a decoded input image.
type Source struct {
	Path  string
	Image image.Image
	// Format is the decoder name reported by image.Decode.
	Format string
	// DPI comes from TIFF resolution tags, 0 if unknown.
	DPI float64
}

// Width returns the image width in pixels.
func (s *Source) Width() int { return s.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (s *Source) Height() int { return s.Image.Bounds().Dy() }

// Load decodes the image at path.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	src := &Source{Path: path, Format: format, Image: img}
	if format == "tiff" {
		if dpi, err := tiffDPI(f); err == nil {
			src.DPI = dpi
		}
	}
	return src, nil
}

// SaveOptions control encoding. The zero value is usable.
type SaveOptions struct {
	// Quality is the JPEG quality, 1-100.
	Quality int
	// Compress selects deflate compression for TIFF output.
	Compress bool
}

// Save encodes img to path, choosing the encoder from the extension.
func Save(path string, img image.Image, opts SaveOptions) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !canEncode(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, ext, img, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes img to w in the format named by ext (".png", ".jpg", ...).
func Encode(w io.Writer, ext string, img image.Image, opts SaveOptions) error {
	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(w, img)
	case ".jpg", ".jpeg":
		q := opts.Quality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: min(q, 100)})
	case ".tif", ".tiff":
		to := &tiff.Options{Compression: tiff.Uncompressed}
		if opts.Compress {
			to.Compression = tiff.Deflate
		}
		err = tiff.Encode(w, img, to)
	case ".bmp":
		err = bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ext, err)
	}
	return nil
}

func canEncode(ext string) bool {
	for _, e := range OutputFormats() {
		if e == ext {
			return true
		}
	}
	return false
}

// InputFormats returns the extensions Load understands.
func InputFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff", ".bmp", ".webp"}
}

// OutputFormats returns the extensions Save can write.
func OutputFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp"}
}

// IsSupportedInput checks if the given path has a loadable extension.
func IsSupportedInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range InputFormats() {
		if ext == e {
			return true
		}
	}
	return false
}

// TIFF tags and field types used by tiffDPI.
const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimeter = 3
)

// tiffDPI reads the resolution tags of the first IFD.
func tiffDPI(r io.ReadSeeker) (float64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a TIFF file")
	}

	if _, err := r.Seek(int64(order.Uint32(header[4:8])), io.SeekStart); err != nil {
		return 0, err
	}
	var n uint16
	if err := binary.Read(r, order, &n); err != nil {
		return 0, err
	}

	entries := make([]byte, 12*int(n))
	if _, err := io.ReadFull(r, entries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	unit := uint16(2)
	for i := 0; i < int(n); i++ {
		e := entries[i*12 : (i+1)*12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		switch {
		case tag == tagXResolution && typ == typeRational:
			xRes = readRational(r, int64(order.Uint32(e[8:12])), order)
		case tag == tagYResolution && typ == typeRational:
			yRes = readRational(r, int64(order.Uint32(e[8:12])), order)
		case tag == tagResolutionUnit && typ == typeShort:
			unit = order.Uint16(e[8:10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}
	if unit == unitCentimeter {
		dpi *= 2.54
	}
	return dpi, nil
}

func readRational(r io.ReadSeeker, offset int64, order binary.ByteOrder) float64 {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var v [2]uint32
	if err := binary.Read(r, order, &v); err != nil || v[1] == 0 {
		return 0
	}
	return float64(v[0]) / float64(v[1])
}
