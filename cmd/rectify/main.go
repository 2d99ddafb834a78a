// Command rectify extracts a rectangle photographed in perspective and
// writes it as an undistorted image.
//
// Usage:
//
//	rectify -i photo.jpg -c "112,80 530,95 580,410 60,380" -o flat.png
//	rectify -i photo.jpg -o flat.png          # detect the corners
//	rectify -job receipt.rectjob              # replay a saved job
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"quadrect/internal/config"
	"quadrect/internal/detect"
	"quadrect/internal/imageio"
	"quadrect/internal/job"
	"quadrect/internal/overlay"
	"quadrect/internal/version"
	"quadrect/pkg/geometry"
	"quadrect/pkg/rectify"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, config.Load()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "rectify: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	input, output, overlay string
	corners                string
	width, height          int
	depth                  int
	focal                  float64
	audit                  bool
	jobPath, saveJob       string
	verbose, showVersion   bool
	savePrefs              bool

	// set holds the flags given on the command line.
	set map[string]bool
	// jobSettings are the settings of the replayed job, if any.
	jobSettings *job.Settings
}

func parseFlags(args []string, prefs *config.Prefs) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("rectify", flag.ContinueOnError)
	fs.StringVar(&f.input, "i", "", "Path to source image")
	fs.StringVar(&f.corners, "c", "", `Corners as "x,y x,y x,y x,y" in any order; detected when empty`)
	fs.StringVar(&f.output, "o", "", "Path to output image (default <input>_rectified<ext>)")
	fs.IntVar(&f.width, "w", 0, "Output width in pixels (default negotiated)")
	fs.IntVar(&f.height, "h", 0, "Output height in pixels (default negotiated)")
	fs.IntVar(&f.depth, "depth", prefs.Int(config.KeyMaxDepth, rectify.DefaultMaxDepth), "Maximum subdivision depth")
	fs.Float64Var(&f.focal, "focal", prefs.Float(config.KeyFocalLength, 0), "Focal length in pixels, used when it cannot be recovered")
	fs.StringVar(&f.overlay, "overlay", "", "Write the source with the quad drawn on it to this path")
	fs.BoolVar(&f.audit, "audit", false, "Compare the coordinate map with the exact homography")
	fs.StringVar(&f.jobPath, "job", "", "Replay a "+job.Extension+" job file")
	fs.StringVar(&f.saveJob, "save-job", "", "Save the corners and settings to a job file")
	fs.BoolVar(&f.savePrefs, "save-prefs", false, "Store -depth, -focal, the output format and overlay choice as defaults")
	fs.BoolVar(&f.verbose, "v", false, "Log pipeline details")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, prefs *config.Prefs) error {
	f, err := parseFlags(args, prefs)
	if err != nil {
		return err
	}
	if f.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if f.verbose {
		rectify.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var corners []geometry.Point2D
	if f.jobPath != "" {
		j, err := job.Load(f.jobPath)
		if err != nil {
			return err
		}
		if f.input == "" {
			f.input = j.GetSourcePath(f.jobPath)
		}
		if f.output == "" {
			f.output = j.GetOutputPath(f.jobPath)
		}
		if f.corners == "" {
			corners = j.Corners
		}
		f.jobSettings = &j.Settings
	}
	if f.input == "" {
		return errors.New("no input image: use -i or -job")
	}
	if !imageio.IsSupportedInput(f.input) {
		return fmt.Errorf("unsupported input %s: want one of %s", f.input, strings.Join(imageio.InputFormats(), " "))
	}
	if f.output == "" {
		ext := prefs.String(config.KeyOutputFormat, ".png")
		f.output = strings.TrimSuffix(f.input, filepath.Ext(f.input)) + "_rectified" + ext
	}
	if f.overlay == "" && prefs.Bool(config.KeyOverlay, false) {
		ext := filepath.Ext(f.output)
		f.overlay = strings.TrimSuffix(f.output, ext) + "_overlay" + ext
	}

	img, err := imageio.Load(f.input)
	if err != nil {
		return err
	}
	if img.DPI > 0 {
		log.Printf("Loaded %s: %dx%d %s at %.0f dpi", f.input, img.Width(), img.Height(), img.Format, img.DPI)
	} else {
		log.Printf("Loaded %s: %dx%d %s", f.input, img.Width(), img.Height(), img.Format)
	}
	src := rectify.FromImage(img.Image)

	if f.corners != "" {
		if corners, err = parseCorners(f.corners); err != nil {
			return err
		}
	}
	if corners == nil {
		found, err := detect.Corners(src)
		if err != nil {
			return fmt.Errorf("no corners given and detection failed: %w", err)
		}
		corners = found.Corners.Points()
		b := found.Bounds
		log.Printf("Detected corners %v in %.0fx%.0f at (%.0f, %.0f), area %.0f%%",
			corners, b.Width, b.Height, b.X, b.Y, found.Confidence*100)
	}

	frame := geometry.Rect{Width: float64(src.Width), Height: float64(src.Height)}
	for _, c := range corners {
		if !frame.Contains(c) {
			log.Printf("Corner (%.1f, %.1f) is outside the image; edge pixels will be repeated", c.X, c.Y)
		}
	}

	res, err := rectify.RectifyContext(ctx, src, corners, f.options(prefs)...)
	if err != nil {
		return err
	}

	if err := imageio.Save(f.output, res.Image.ToImage(), imageio.SaveOptions{
		Quality:  prefs.Int(config.KeyJPEGQuality, imageio.DefaultJPEGQuality),
		Compress: true,
	}); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %s: %dx%d\n", f.output, res.Image.Width, res.Image.Height)
	fmt.Fprintf(stdout, "Aspect ratio: %.4f (%s)\n", res.Estimate.Ratio, res.Estimate.Method)
	fmt.Fprintf(stdout, "Subdivision depth: %d\n", res.Plan.Depth)
	if res.Stats.Clamped > 0 {
		fmt.Fprintf(stdout, "Clamped pixels: %d\n", res.Stats.Clamped)
	}
	if f.audit {
		fmt.Fprintf(stdout, "Max deviation from homography: %.3g px\n", res.Deviation)
	}

	if f.overlay != "" {
		drawn, err := overlay.Draw(src, res.Corners, overlay.DefaultOptions())
		if err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
		if err := imageio.Save(f.overlay, drawn, imageio.SaveOptions{}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote overlay %s\n", f.overlay)
	}

	if f.saveJob != "" {
		if err := f.writeJob(res.Corners); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved job %s\n", f.saveJob)
	}

	if f.savePrefs {
		if err := f.storePrefs(prefs); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		fmt.Fprintf(stdout, "Saved preferences %s\n", prefs.Path())
	}
	return nil
}

// options layers the rectifier options: preference defaults, then the
// replayed job's settings, then flags given on the command line.
func (f *cliFlags) options(prefs *config.Prefs) []rectify.Option {
	opts := []rectify.Option{
		rectify.WithFanoutDepth(prefs.Int(config.KeyFanoutDepth, rectify.DefaultFanoutDepth)),
	}
	if !f.set["depth"] {
		opts = append(opts, rectify.WithMaxDepth(f.depth))
	}
	if !f.set["focal"] && f.focal > 0 {
		opts = append(opts, rectify.WithFocalLength(f.focal))
	}

	if f.jobSettings != nil {
		opts = append(opts, f.jobSettings.Options()...)
	}

	if f.set["depth"] {
		opts = append(opts, rectify.WithMaxDepth(f.depth))
	}
	if f.set["focal"] {
		opts = append(opts, rectify.WithFocalLength(f.focal))
	}
	if f.width > 0 {
		opts = append(opts, rectify.WithWidth(f.width))
	}
	if f.height > 0 {
		opts = append(opts, rectify.WithHeight(f.height))
	}
	if f.audit {
		opts = append(opts, rectify.WithAudit())
	}
	return opts
}

// jobSettingsToSave merges the replayed job's settings with the flags given
// on the command line.
func (f *cliFlags) jobSettingsToSave() job.Settings {
	var s job.Settings
	if f.jobSettings != nil {
		s = *f.jobSettings
	} else {
		s.MaxDepth = f.depth
		s.FocalLength = f.focal
	}
	if f.set["depth"] {
		s.MaxDepth = f.depth
	}
	if f.set["focal"] {
		s.FocalLength = f.focal
	}
	if f.width > 0 {
		s.Width = f.width
	}
	if f.height > 0 {
		s.Height = f.height
	}
	return s
}

func (f *cliFlags) writeJob(corners geometry.Quad) error {
	name := strings.TrimSuffix(filepath.Base(f.saveJob), filepath.Ext(f.saveJob))
	j := job.New(name)
	j.SetSource(f.saveJob, f.input)
	j.SetOutput(f.saveJob, f.output)
	j.SetCorners(corners)
	j.Settings = f.jobSettingsToSave()
	return j.Save(f.saveJob)
}

func (f *cliFlags) storePrefs(prefs *config.Prefs) error {
	prefs.SetInt(config.KeyMaxDepth, f.depth)
	if f.focal > 0 {
		prefs.SetFloat(config.KeyFocalLength, f.focal)
	}
	if ext := strings.ToLower(filepath.Ext(f.output)); ext != "" {
		prefs.SetString(config.KeyOutputFormat, ext)
	}
	prefs.SetBool(config.KeyOverlay, f.overlay != "")
	return prefs.Save()
}

// parseCorners reads "x,y x,y x,y x,y". Pairs may also be separated by
// semicolons.
func parseCorners(s string) ([]geometry.Point2D, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t'
	})
	points := make([]geometry.Point2D, 0, len(fields))
	for _, field := range fields {
		xs, ys, ok := strings.Cut(field, ",")
		if !ok {
			return nil, fmt.Errorf("corner %q: want x,y", field)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("corner %q: %w", field, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("corner %q: %w", field, err)
		}
		points = append(points, geometry.Point2D{X: x, Y: y})
	}
	if len(points) != 4 {
		return nil, fmt.Errorf("got %d corners, need 4", len(points))
	}
	return points, nil
}
