// Package job reads and writes rectification job files (.rectjob), which
// record a source image, its marked corners and the output settings so a
// rectification can be replayed.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quadrect/pkg/geometry"
	"quadrect/pkg/rectify"
)

// Extension is the conventional job file extension.
const Extension = ".rectjob"

// CurrentVersion is written by New and accepted by Load.
const CurrentVersion = 1

// ErrInvalidJob is returned for a job file that cannot be replayed.
var ErrInvalidJob = errors.New("job: invalid job file")

// File is a rectification job.
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Image paths (relative to the job file)
	SourcePath string `json:"source"`
	OutputPath string `json:"output,omitempty"`

	Corners []geometry.Point2D `json:"corners"`

	Settings Settings `json:"settings"`
}

// Settings are the rectification options stored with a job. Zero values
// keep the library defaults.
type Settings struct {
	Width       int               `json:"width,omitempty"`
	Height      int               `json:"height,omitempty"`
	MaxDepth    int               `json:"max_depth,omitempty"`
	FocalLength float64           `json:"focal_length,omitempty"`
	Principal   *geometry.Point2D `json:"principal,omitempty"`
}

// New creates a job with no source or corners.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// Load reads a job file and checks that it can be replayed.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidJob, path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Save writes the job to path.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the version, the source path and the corner count.
// Corner geometry is checked by the rectifier.
func (f *File) Validate() error {
	switch {
	case f.Version < 1 || f.Version > CurrentVersion:
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidJob, f.Version)
	case f.SourcePath == "":
		return fmt.Errorf("%w: no source image", ErrInvalidJob)
	case len(f.Corners) != 4:
		return fmt.Errorf("%w: %d corners, need 4", ErrInvalidJob, len(f.Corners))
	}
	return nil
}

// SetSource sets the source image path (relative to the job file).
func (f *File) SetSource(jobPath, imagePath string) {
	f.SourcePath = relativeTo(jobPath, imagePath)
	f.Modified = time.Now()
}

// SetOutput sets the output image path (relative to the job file).
func (f *File) SetOutput(jobPath, imagePath string) {
	f.OutputPath = relativeTo(jobPath, imagePath)
	f.Modified = time.Now()
}

// SetCorners stores the corners in canonical order.
func (f *File) SetCorners(q geometry.Quad) {
	f.Corners = q.Points()
	f.Modified = time.Now()
}

// GetSourcePath returns the absolute path to the source image.
func (f *File) GetSourcePath(jobPath string) string {
	return resolve(jobPath, f.SourcePath)
}

// GetOutputPath returns the absolute path to the output image. Without an
// output path the job's own name is used: scan.rectjob gives
// scan_rectified.png.
func (f *File) GetOutputPath(jobPath string) string {
	if f.OutputPath == "" {
		base := jobPath[:len(jobPath)-len(filepath.Ext(jobPath))]
		return base + "_rectified.png"
	}
	return resolve(jobPath, f.OutputPath)
}

// Options converts the settings into rectifier options.
func (s Settings) Options() []rectify.Option {
	var opts []rectify.Option
	if s.Width > 0 {
		opts = append(opts, rectify.WithWidth(s.Width))
	}
	if s.Height > 0 {
		opts = append(opts, rectify.WithHeight(s.Height))
	}
	if s.MaxDepth > 0 {
		opts = append(opts, rectify.WithMaxDepth(s.MaxDepth))
	}
	if s.FocalLength > 0 {
		opts = append(opts, rectify.WithFocalLength(s.FocalLength))
	}
	if s.Principal != nil {
		opts = append(opts, rectify.WithPrincipalPoint(*s.Principal))
	}
	return opts
}

func relativeTo(jobPath, p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	dir, err := filepath.Abs(filepath.Dir(jobPath))
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return p
	}
	return rel
}

func resolve(jobPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(jobPath), p)
}
