// Package picker runs the external particle picker against one micrograph.
//
// The picker writes its output next to its input, named after the input, in
// its working directory. Each run therefore gets its own workspace folder
// holding a symlink to the micrograph, and the picker is started with that
// folder as its working directory. The process-wide working directory is
// never changed, so runs can proceed concurrently.
package picker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gscreen/internal/params"
	"gscreen/internal/screenerr"
)

// BoxSuffix is appended to the micrograph's base name for the output file.
const BoxSuffix = "_automatch.box"

// LogName is the file in each workspace holding the picker's stdout/stderr.
const LogName = "picker.log"

// Config describes how to invoke the picker.
type Config struct {
	Exec string

	// When true, the picker's stdout and stderr are copied to the current
	// process's stderr as well as the workspace log.
	Verbose bool
}

// Default invokes gautomatch from PATH.
var Default = Config{
	Exec: "gautomatch",
}

// Pick is the outcome of one successful picker run.
type Pick struct {
	BoxFile string
	Count   int
}

// Error is a picker failure for one image and parameter value.
type Error struct {
	Image string
	Param string
	Value string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("picker failed on %s with %s = %s: %v", e.Image, e.Param, e.Value, e.Err)
}

func (e *Error) Unwrap() []error { return []error{screenerr.ErrPicker, e.Err} }

// PrepareWorkspace creates subfolder if needed and places a symlink to
// imagePath in it, named after the image. It returns the link path. An
// existing entry under that name is an error: it means the folder is being
// reused unexpectedly.
func PrepareWorkspace(imagePath, subfolder string) (string, error) {
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		return "", screenerr.Wrap(screenerr.ErrIO, err, "resolve %s", imagePath)
	}
	if err := os.MkdirAll(subfolder, 0o755); err != nil {
		return "", screenerr.Wrap(screenerr.ErrIO, err, "create workspace")
	}
	link := filepath.Join(subfolder, filepath.Base(imagePath))
	if err := os.Symlink(abs, link); err != nil {
		return "", screenerr.Wrap(screenerr.ErrIO, err, "cannot link to image")
	}
	return link, nil
}

// BoxPath returns the coordinate file the picker writes for linkPath.
func BoxPath(linkPath string) string {
	base := filepath.Base(linkPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(linkPath), base+BoxSuffix)
}

// Run executes the picker with set's flags and the link as its positional
// argument, from the link's folder. param and value identify the run in
// errors. There is no timeout; ctx only serves to interrupt the run.
func (conf Config) Run(ctx context.Context, set params.Set, linkPath, param, value string) (Pick, error) {
	fail := func(err error) (Pick, error) {
		return Pick{}, &Error{Image: filepath.Base(linkPath), Param: param, Value: value, Err: err}
	}

	dir := filepath.Dir(linkPath)
	args := append(set.Args(), filepath.Base(linkPath))

	logFile, err := os.Create(filepath.Join(dir, LogName))
	if err != nil {
		return fail(err)
	}
	defer logFile.Close()

	var stderr bytes.Buffer
	var out io.Writer = logFile
	if conf.Verbose {
		out = io.MultiWriter(logFile, os.Stderr)
	}

	cmd := exec.CommandContext(ctx, conf.Exec, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(out, &stderr)
	fmt.Fprintf(logFile, "%s\n", cmd)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return fail(fmt.Errorf("%w: %s", err, lastLine(msg)))
			}
		}
		return fail(err)
	}

	box := BoxPath(linkPath)
	n, err := countLines(box)
	if err != nil {
		return fail(fmt.Errorf("no coordinate output: %w", err))
	}
	return Pick{BoxFile: box, Count: n}, nil
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return bytes.Count(data, []byte{'\n'}), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
