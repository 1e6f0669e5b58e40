// Package sweep runs the parameter sweep for one micrograph.
//
// For every parameter in the test matrix the picker runs once per candidate
// value, each in its own workspace, and the picked coordinates of all
// candidates are drawn on one copy of the micrograph's preview.
package sweep

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"gscreen/internal/annotate"
	"gscreen/internal/coords"
	pimage "gscreen/internal/image"
	"gscreen/internal/params"
	"gscreen/internal/picker"
)

// Picker runs the external picker in a prepared workspace.
type Picker interface {
	Run(ctx context.Context, set params.Set, linkPath, param, value string) (picker.Pick, error)
}

// Runner holds everything shared by the sweeps of all images. It is not
// modified by Run and can be used from several goroutines.
type Runner struct {
	Defaults  params.Set
	Matrix    params.Matrix
	Picker    Picker
	Annotator annotate.Annotator

	PreviewsIn  string // previews named <image base>.<ext>
	PreviewsOut string // annotated copies, <image base>_<param>.<ext>
	Annotated   string // workspaces, <param>_<value>/<image base>/

	Log *log.Logger
}

// Count is the number of particles picked with one candidate value.
type Count struct {
	Param     string `json:"param"`
	Value     string `json:"value"`
	Slot      int    `json:"slot"`
	Particles int    `json:"particles"`
}

// Result is the outcome of one image's sweep.
type Result struct {
	Image   string   `json:"image"`
	State   State    `json:"state"`
	Outputs []string `json:"outputs,omitempty"`
	Counts  []Count  `json:"counts,omitempty"`
	Err     error    `json:"-"`
}

// OK reports whether the sweep completed.
func (r Result) OK() bool { return r.State == StateDone }

// Workspace returns the folder the picker runs in for one image and value.
func (r *Runner) Workspace(image, param string, value params.Value) string {
	return filepath.Join(r.Annotated, param+"_"+pathSafe(value.String()), baseName(image))
}

// Run sweeps every parameter of the matrix over image. Failures stop this
// image only and come back in the Result.
func (r *Runner) Run(ctx context.Context, image string) Result {
	logger := r.logger()
	res := Result{Image: image, State: StateInit}
	fail := func(param, value string, err error) Result {
		logger.Printf("Failed processing %s: %v", image, err)
		res.Err = &ImageFailure{Image: image, Param: param, Value: value, State: res.State, Err: err}
		res.State = StateFailed
		return res
	}

	abs, err := filepath.Abs(image)
	if err != nil {
		return fail("", "", err)
	}
	base := baseName(image)
	logger.Printf("Processing %s", image)

	for _, sw := range r.Matrix.Sweeps() {
		res.State = StateCopyPreview
		preview, err := r.copyPreview(base, sw.Param)
		if err != nil {
			return fail(sw.Param, "", err)
		}
		logger.Printf("Created %s", preview)

		sets := make([]coords.Set, len(sw.Values))
		for slot, value := range sw.Values {
			if err := ctx.Err(); err != nil {
				return fail(sw.Param, value.String(), err)
			}

			res.State = StatePreparingWorkspace
			link, err := picker.PrepareWorkspace(abs, r.Workspace(image, sw.Param, value))
			if err != nil {
				return fail(sw.Param, value.String(), err)
			}

			res.State = StatePicking
			logger.Printf("Running picker on %s with %s = %s", base, sw.Param, value)
			set := r.Defaults.Merged(sw.Param, value, abs)
			pick, err := r.Picker.Run(ctx, set, link, sw.Param, value.String())
			if err != nil {
				return fail(sw.Param, value.String(), err)
			}
			logger.Printf("Picked %d particles on %s with %s = %s", pick.Count, base, sw.Param, value)

			res.State = StateReadingCoordinates
			cs, err := coords.Read(pick.BoxFile)
			if err != nil {
				return fail(sw.Param, value.String(), err)
			}
			sets[slot] = cs
			res.Counts = append(res.Counts, Count{
				Param:     sw.Param,
				Value:     value.String(),
				Slot:      slot + 1,
				Particles: len(cs),
			})
		}

		res.State = StateAnnotating
		if _, err := r.Annotator.Annotate(preview, sets, sw.Legend()); err != nil {
			return fail(sw.Param, "", err)
		}
		res.Outputs = append(res.Outputs, preview)
	}

	res.State = StateDone
	logger.Printf("Done processing %s", image)
	return res
}

// copyPreview copies the image's preview to a per-parameter file that will
// receive the annotations.
func (r *Runner) copyPreview(base, param string) (string, error) {
	src, err := pimage.FindPreview(r.PreviewsIn, base)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(r.PreviewsOut, fmt.Sprintf("%s_%s%s", base, param, filepath.Ext(src)))
	if err := pimage.CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (r *Runner) logger() *log.Logger {
	if r.Log != nil {
		return r.Log
	}
	return log.Default()
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func pathSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, s)
}
