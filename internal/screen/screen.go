// Package screen runs a parameter screen over a folder of micrographs: it
// validates the inputs, prepares the output folders, sweeps every image on a
// worker pool and reports the outcome.
package screen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gscreen/internal/annotate"
	"gscreen/internal/config"
	"gscreen/internal/params"
	"gscreen/internal/picker"
	"gscreen/internal/screenerr"
	"gscreen/internal/sweep"
	"gscreen/internal/version"
	"gscreen/internal/workpool"
)

// LogName is the run log written into the annotation folder.
const LogName = "screen.log"

// Keys in the defaults file the ring radius is derived from.
const (
	PixelSizeKey = "apixM"
	DiameterKey  = "diameter"
)

// ErrImagesFailed is returned when the run completed but at least one image
// did not.
var ErrImagesFailed = errors.New("some images failed")

// Exit codes of the screen command.
const (
	ExitOK       = 0
	ExitConfig   = 1
	ExitFailures = 2
)

// ExitCode maps the error returned by Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrImagesFailed):
		return ExitFailures
	default:
		return ExitConfig
	}
}

// Run screens every image described by cfg. Progress goes to stderr and the
// run log; the summary goes to stdout. Configuration problems are reported
// before anything is written. The returned report is nil only when the run
// never started.
func Run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) (*Report, error) {
	images, err := Discover(cfg.Images, cfg.Extension)
	if err != nil {
		return nil, err
	}
	defaults, matrix, err := params.Load(cfg.Defaults, cfg.Matrix)
	if err != nil {
		return nil, err
	}
	defaults, err = params.ValidateDefaults(defaults, filepath.Dir(cfg.Defaults), params.FileKeys)
	if err != nil {
		return nil, err
	}
	radius, err := BaseRadius(cfg, defaults)
	if err != nil {
		return nil, err
	}

	if err := cfg.CheckAnnotated(); err != nil {
		return nil, err
	}
	if err := PrepareFolders(cfg.PreviewsOut, cfg.Annotated); err != nil {
		return nil, err
	}
	logFile, err := os.Create(filepath.Join(cfg.Annotated, LogName))
	if err != nil {
		return nil, screenerr.Wrap(screenerr.ErrIO, err, "create run log")
	}
	defer logFile.Close()
	logger := log.New(io.MultiWriter(stderr, logFile), "", log.LstdFlags|log.Lshortfile)

	report := &Report{
		RunID:   uuid.NewString(),
		Version: version.Version,
		Started: time.Now(),
		Radius:  radius,
	}
	logger.Printf("Run %s: %s", report.RunID, cfg)
	logger.Printf("Defaults: %s", defaults)
	logger.Printf("Matrix: %s", matrix)
	logger.Printf("Found %d images, ring radius %d px", len(images), radius)

	// Checked again here, right before any picker is started.
	if err := params.CheckMatrix(matrix); err != nil {
		return nil, err
	}
	for _, img := range MissingPreviews(images, cfg.PreviewsIn) {
		logger.Printf("Warning: no preview for %s in %s, it will fail", filepath.Base(img), cfg.PreviewsIn)
	}

	ann := annotate.New(radius)
	ann.Thickness = cfg.Thickness
	runner := &sweep.Runner{
		Defaults:    defaults,
		Matrix:      matrix,
		Picker:      picker.Config{Exec: cfg.Picker, Verbose: cfg.Verbose},
		Annotator:   ann,
		PreviewsIn:  cfg.PreviewsIn,
		PreviewsOut: cfg.PreviewsOut,
		Annotated:   cfg.Annotated,
		Log:         logger,
	}

	var results []sweep.Result
	if cfg.Debug {
		results = sequential(ctx, runner, images)
	} else {
		results = parallel(ctx, runner, images, cfg.Workers, logger)
	}

	report.Finished = time.Now()
	report.addResults(results)
	if err := report.Write(filepath.Join(cfg.Annotated, ReportName)); err != nil {
		logger.Printf("Error: %v", err)
	}
	report.PrintSummary(stdout)

	if report.Failed > 0 {
		return report, fmt.Errorf("%d of %d images: %w", report.Failed, len(results), ErrImagesFailed)
	}
	return report, nil
}

// BaseRadius is the ring radius for the first slot: the particle diameter in
// pixels. Flags take precedence over the defaults file.
func BaseRadius(cfg config.Config, defaults params.Set) (int, error) {
	apix, diameter := cfg.PixelSize, cfg.Diameter
	if apix == 0 {
		v, ok := defaults.Number(PixelSizeKey)
		if !ok {
			return 0, screenerr.Configf("pixel size not set: use -apix or %s in the defaults file", PixelSizeKey)
		}
		apix = v
	}
	if diameter == 0 {
		v, ok := defaults.Number(DiameterKey)
		if !ok {
			return 0, screenerr.Configf("particle diameter not set: use -diameter or %s in the defaults file", DiameterKey)
		}
		diameter = v
	}
	if apix <= 0 || diameter <= 0 {
		return 0, screenerr.Configf("pixel size and diameter must be positive, got %g and %g", apix, diameter)
	}
	radius := int(diameter / apix)
	if radius < 1 {
		return 0, screenerr.Configf("particle diameter %g Å is below one pixel at %g Å/px", diameter, apix)
	}
	return radius, nil
}

// sequential sweeps one image at a time on the calling goroutine. Panics
// are not recovered.
func sequential(ctx context.Context, runner *sweep.Runner, images []string) []sweep.Result {
	results := make([]sweep.Result, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			results[i] = unfinished(img, err)
			continue
		}
		results[i] = runner.Run(ctx, img)
	}
	return results
}

func parallel(ctx context.Context, runner *sweep.Runner, images []string, workers int, logger *log.Logger) []sweep.Result {
	out := workpool.Collect(workpool.Run(ctx, workers, images, func(ctx context.Context, img string) (sweep.Result, error) {
		return runner.Run(ctx, img), nil
	}), len(images))

	results := make([]sweep.Result, len(out))
	for i, r := range out {
		if r.Err == nil {
			results[i] = r.Value
			continue
		}
		// The task never returned: it panicked or was never started.
		var perr *workpool.PanicError
		if errors.As(r.Err, &perr) {
			logger.Printf("Failed processing %s: %v\n%s", r.Item, perr, perr.Stack)
		}
		results[i] = unfinished(r.Item, r.Err)
	}
	return results
}

func unfinished(img string, err error) sweep.Result {
	return sweep.Result{
		Image: img,
		State: sweep.StateFailed,
		Err:   &sweep.ImageFailure{Image: img, State: sweep.StateInit, Err: err},
	}
}
