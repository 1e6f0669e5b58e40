// Package convert renders micrographs to preview images with EMAN2's
// e2proc2d and orients the previews to match the picker's coordinates.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"gscreen/internal/screenerr"
)

// Config describes how previews are made.
type Config struct {
	Exec string

	// Ext is the preview format, chosen by e2proc2d from the extension.
	Ext string

	// Shrink is passed as --meanshrink when above 1.
	Shrink int

	// Lowpass is a resolution in Angstrom for a Gaussian low-pass filter;
	// zero disables it.
	Lowpass float64

	// Invert multiplies the image by -1.
	Invert bool

	// Force replaces existing previews and tolerates tracebacks on a zero
	// exit status.
	Force bool

	// Orient is applied to every written preview. Nil leaves previews as
	// e2proc2d wrote them.
	Orient func(path string) error

	// LogDir, when set, receives one log per micrograph with the tool's
	// output.
	LogDir string

	// When true, the tool's output is copied to stderr as well.
	Verbose bool
}

// Default runs e2proc2d from PATH and writes JPEG previews.
var Default = Config{
	Exec: "e2proc2d.py",
	Ext:  ".jpg",
}

// Conversion is the outcome of one successful or skipped conversion.
type Conversion struct {
	Image   string
	Preview string
	Skipped bool // the preview existed and Force was off
	Flipped bool
}

// Error is a failed conversion of one micrograph.
type Error struct {
	Image string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("conversion of %s failed: %v", e.Image, e.Err)
}

func (e *Error) Unwrap() []error { return []error{screenerr.ErrConvert, e.Err} }

// PreviewPath returns where the preview of image is written in outDir.
func (conf Config) PreviewPath(image, outDir string) string {
	base := filepath.Base(image)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, base+conf.ext())
}

// Args returns e2proc2d's arguments for converting image to preview.
func (conf Config) Args(image, preview string) []string {
	var args []string
	if conf.Lowpass > 0 {
		cutoff := strconv.FormatFloat(1/conf.Lowpass, 'g', -1, 64)
		args = append(args, "--process", "filter.lowpass.gauss:cutoff_freq="+cutoff)
	}
	if conf.Shrink > 1 {
		args = append(args, "--meanshrink", strconv.Itoa(conf.Shrink))
	}
	if conf.Invert {
		args = append(args, "--mult=-1")
	}
	return append(args, image, preview)
}

// Run converts image into a preview in outDir. An existing preview is left
// alone unless Force is set, in which case it is removed first so e2proc2d
// does not append to it.
func (conf Config) Run(ctx context.Context, image, outDir string) (Conversion, error) {
	preview := conf.PreviewPath(image, outDir)
	res := Conversion{Image: image, Preview: preview}
	fail := func(err error) (Conversion, error) {
		return res, &Error{Image: filepath.Base(image), Err: err}
	}

	if _, err := os.Stat(preview); err == nil {
		if !conf.Force {
			res.Skipped = true
			return res, nil
		}
		if err := os.Remove(preview); err != nil {
			return fail(err)
		}
	}

	var out io.Writer = io.Discard
	if conf.LogDir != "" {
		base := strings.TrimSuffix(filepath.Base(preview), filepath.Ext(preview))
		f, err := os.Create(filepath.Join(conf.LogDir, base+".log"))
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		out = f
	}
	if conf.Verbose {
		out = io.MultiWriter(out, os.Stderr)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, conf.Exec, conf.Args(image, preview)...)
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(out, &stderr)
	fmt.Fprintf(out, "%s\n", cmd)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fail(fmt.Errorf("%w: %s", err, lastLine(msg)))
			}
		}
		return fail(err)
	}
	// e2proc2d can report a Python traceback and still exit 0.
	if !conf.Force && strings.Contains(stderr.String(), "Traceback") {
		return fail(fmt.Errorf("traceback: %s", lastLine(strings.TrimSpace(stderr.String()))))
	}
	if _, err := os.Stat(preview); err != nil {
		return fail(fmt.Errorf("no preview written: %w", err))
	}

	if conf.Orient != nil {
		if err := conf.Orient(preview); err != nil {
			return fail(fmt.Errorf("orient: %w", err))
		}
		res.Flipped = true
	}
	return res, nil
}

func (conf Config) ext() string {
	if conf.Ext == "" {
		return Default.Ext
	}
	if conf.Ext[0] != '.' {
		return "." + conf.Ext
	}
	return conf.Ext
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
