// Package config parses and validates the gscreen command line.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gscreen/internal/annotate"
	"gscreen/internal/picker"
	"gscreen/internal/screenerr"
)

// Defaults for options that are not folder paths.
const (
	DefaultWorkers      = 3
	DefaultExtension    = ".mrc"
	DefaultMatrixName   = "test.json"
	DefaultDefaultsName = "default_gautomatch_parameters.json"
	DefaultPreviewsDir  = "jpgs"
	DefaultAnnotatedDir = "annotated"
)

// Config is the validated, immutable configuration of one screening run.
// Every path is absolute.
type Config struct {
	Images      string // micrographs, *.mrc
	PreviewsIn  string // one preview per micrograph
	PreviewsOut string // annotated preview copies
	Annotated   string // picker workspaces, log and report; wiped on start
	Matrix      string // parameters under test
	Defaults    string // parameters held fixed

	Extension string
	Workers   int
	Debug     bool

	// Zero means "take it from the defaults file".
	PixelSize float64
	Diameter  float64

	Picker    string
	Thickness int
	Verbose   bool

	ShowVersion bool
}

// Parse reads args (without the program name) into a Config. Usage and
// flag errors go to output. The returned error is flag.ErrHelp for -h, and
// a configuration error for anything invalid.
func Parse(name string, args []string, output io.Writer) (Config, error) {
	var c Config
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&c.Images, "images", "", "The folder with the input micrographs. Default: current directory")
	fs.StringVar(&c.PreviewsIn, "previews", "", "The folder with one preview image per micrograph. Default: [images]/"+DefaultPreviewsDir)
	fs.StringVar(&c.PreviewsOut, "previews-out", "", "The folder where annotated previews are written. Default: [images]")
	fs.StringVar(&c.Annotated, "annotated", "", "The folder for picker output; deleted and recreated on every run. Default: [images]/"+DefaultAnnotatedDir)
	fs.StringVar(&c.Matrix, "matrix", "", "JSON file with the parameters to test, three values each. Default: [images]/"+DefaultMatrixName)
	fs.StringVar(&c.Defaults, "defaults", "", "JSON file with the starting picker parameters. Default: [images]/"+DefaultDefaultsName)
	fs.StringVar(&c.Extension, "ext", DefaultExtension, "Extension of the input micrographs.")
	fs.IntVar(&c.Workers, "workers", DefaultWorkers, "Number of micrographs processed in parallel.")
	fs.BoolVar(&c.Debug, "debug", false, "Process micrographs one at a time, so failures surface directly.")
	fs.Float64Var(&c.PixelSize, "apix", 0, "Pixel size in Angstrom. Overrides apixM from the defaults file.")
	fs.Float64Var(&c.Diameter, "diameter", 0, "Particle diameter in Angstrom. Overrides diameter from the defaults file.")
	fs.StringVar(&c.Picker, "picker", picker.Default.Exec, "The picker executable.")
	fs.IntVar(&c.Thickness, "thickness", annotate.DefaultThickness, "Ring outline thickness in pixels.")
	fs.BoolVar(&c.Verbose, "v", false, "Echo picker output to stderr.")
	fs.BoolVar(&c.ShowVersion, "version", false, "Print the version and exit.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return Config{}, err
		}
		return Config{}, screenerr.Configf("%v", err)
	}
	if fs.NArg() > 0 {
		return Config{}, screenerr.Configf("unexpected arguments: %v", fs.Args())
	}
	if c.ShowVersion {
		return c, nil
	}
	if err := c.resolve(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// resolve fills in folder defaults relative to the images folder and
// checks everything that must already exist.
func (c *Config) resolve() error {
	var err error
	if c.Images == "" {
		if c.Images, err = os.Getwd(); err != nil {
			return screenerr.Wrap(screenerr.ErrConfig, err, "current directory")
		}
	}
	if c.Images, err = mustBeDir(c.Images, "images"); err != nil {
		return err
	}

	if c.PreviewsIn == "" {
		c.PreviewsIn = filepath.Join(c.Images, DefaultPreviewsDir)
	}
	if c.PreviewsIn, err = mustBeDir(c.PreviewsIn, "previews"); err != nil {
		return err
	}

	if c.PreviewsOut == "" {
		c.PreviewsOut = c.Images
	}
	if c.Annotated == "" {
		c.Annotated = filepath.Join(c.Images, DefaultAnnotatedDir)
	}
	if c.PreviewsOut, err = filepath.Abs(c.PreviewsOut); err != nil {
		return screenerr.Wrap(screenerr.ErrConfig, err, "previews-out")
	}
	if c.Annotated, err = filepath.Abs(c.Annotated); err != nil {
		return screenerr.Wrap(screenerr.ErrConfig, err, "annotated")
	}

	if c.Matrix == "" {
		c.Matrix = filepath.Join(c.Images, DefaultMatrixName)
	}
	if c.Matrix, err = mustBeFile(c.Matrix, "matrix"); err != nil {
		return err
	}
	if c.Defaults == "" {
		c.Defaults = filepath.Join(c.Images, DefaultDefaultsName)
	}
	if c.Defaults, err = mustBeFile(c.Defaults, "defaults"); err != nil {
		return err
	}

	if err := c.CheckAnnotated(); err != nil {
		return err
	}

	switch {
	case c.Workers < 1:
		return screenerr.Configf("-workers must be at least 1, got %d", c.Workers)
	case c.PixelSize < 0:
		return screenerr.Configf("-apix must be positive, got %g", c.PixelSize)
	case c.Diameter < 0:
		return screenerr.Configf("-diameter must be positive, got %g", c.Diameter)
	case c.Thickness < 1:
		return screenerr.Configf("-thickness must be at least 1, got %d", c.Thickness)
	case c.Picker == "":
		return screenerr.Configf("-picker must not be empty")
	case c.Extension == "":
		return screenerr.Configf("-ext must not be empty")
	}
	if c.Extension[0] != '.' {
		c.Extension = "." + c.Extension
	}
	return nil
}

// CheckAnnotated returns a configuration error if the annotated folder,
// which is deleted on every run, is or contains any of the inputs.
func (c Config) CheckAnnotated() error {
	for _, in := range []struct{ what, path string }{
		{"images folder", c.Images},
		{"previews folder", c.PreviewsIn},
		{"previews-out folder", c.PreviewsOut},
		{"matrix file", c.Matrix},
		{"defaults file", c.Defaults},
	} {
		if in.path != "" && within(c.Annotated, in.path) {
			return screenerr.Configf("the annotated folder %s is wiped on every run and holds the %s %s",
				c.Annotated, in.what, in.path)
		}
	}
	return nil
}

// within reports whether path is dir itself or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(realPath(dir), realPath(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath resolves symlinks in the longest existing prefix of path, so
// folders that are yet to be created compare correctly with existing ones.
func realPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rest := ""
	for dir := abs; ; dir = filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, rest)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return abs
		}
		rest = filepath.Join(filepath.Base(dir), rest)
	}
}

func mustBeDir(path, what string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", screenerr.Wrap(screenerr.ErrConfig, err, "%s folder", what)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", screenerr.Configf("the %s folder %s does not exist", what, abs)
	}
	return abs, nil
}

func mustBeFile(path, what string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", screenerr.Wrap(screenerr.ErrConfig, err, "%s file", what)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", screenerr.Configf("the %s file %s does not exist", what, abs)
	}
	return abs, nil
}

// String summarises the configuration for the run log.
func (c Config) String() string {
	mode := fmt.Sprintf("%d workers", c.Workers)
	if c.Debug {
		mode = "sequential"
	}
	return fmt.Sprintf("images=%s previews=%s out=%s annotated=%s matrix=%s defaults=%s mode=%s",
		c.Images, c.PreviewsIn, c.PreviewsOut, c.Annotated, c.Matrix, c.Defaults, mode)
}
