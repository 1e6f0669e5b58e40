package screen

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/stat"

	"gscreen/internal/screenerr"
	"gscreen/internal/sweep"
)

// ReportName is the run report written into the annotation folder.
const ReportName = "screen_report.json"

// Report summarises a screening run.
type Report struct {
	RunID    string        `json:"run_id"`
	Version  string        `json:"version"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Radius   int           `json:"radius"`
	Done     int           `json:"done"`
	Failed   int           `json:"failed"`
	Images   []ImageReport `json:"images"`
	Stats    []ValueStats  `json:"stats"`
}

// ImageReport is one image's result with its error flattened to text.
type ImageReport struct {
	sweep.Result
	Error string `json:"error,omitempty"`
}

// ValueStats is the particle count for one parameter value across every
// image that got that far.
type ValueStats struct {
	Param  string  `json:"param"`
	Value  string  `json:"value"`
	Slot   int     `json:"slot"`
	Images int     `json:"images"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// addResults fills Images, Done, Failed and Stats from the per-image
// results, which must be in image order.
func (r *Report) addResults(results []sweep.Result) {
	r.Images = make([]ImageReport, len(results))
	type key struct{ param, value string }
	var order []key
	slots := map[key]int{}
	counts := map[key][]float64{}

	for i, res := range results {
		ir := ImageReport{Result: res}
		if res.Err != nil {
			ir.Error = res.Err.Error()
		}
		r.Images[i] = ir
		if res.OK() {
			r.Done++
		} else {
			r.Failed++
		}
		for _, c := range res.Counts {
			k := key{c.Param, c.Value}
			if _, seen := counts[k]; !seen {
				order = append(order, k)
				slots[k] = c.Slot
			}
			counts[k] = append(counts[k], float64(c.Particles))
		}
	}

	r.Stats = make([]ValueStats, 0, len(order))
	for _, k := range order {
		xs := counts[k]
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 || math.IsNaN(std) {
			std = 0
		}
		r.Stats = append(r.Stats, ValueStats{
			Param:  k.param,
			Value:  k.value,
			Slot:   slots[k],
			Images: len(xs),
			Mean:   mean,
			StdDev: std,
		})
	}
}

// Write saves the report as indented JSON.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return screenerr.Wrap(screenerr.ErrIO, err, "write report")
	}
	return nil
}

// PrintSummary writes a short human-readable summary of the run to w.
func (r *Report) PrintSummary(w io.Writer) {
	bold := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	bold.Fprintf(w, "Screened %d images in %s (run %s)\n",
		len(r.Images), r.Finished.Sub(r.Started).Round(time.Second), r.RunID)
	for _, img := range r.Images {
		if img.OK() {
			ok.Fprintf(w, "  done    ")
			fmt.Fprintf(w, "%s\n", img.Image)
			continue
		}
		bad.Fprintf(w, "  failed  ")
		fmt.Fprintf(w, "%s: %s\n", img.Image, img.Error)
	}

	if len(r.Stats) > 0 {
		bold.Fprintf(w, "Particles per image\n")
		for _, s := range r.Stats {
			fmt.Fprintf(w, "  %-20s %-12s %8.1f ± %.1f  (n=%d)\n", s.Param, s.Value, s.Mean, s.StdDev, s.Images)
		}
	}

	if r.Failed > 0 {
		bad.Fprintf(w, "%d done, %d failed\n", r.Done, r.Failed)
	} else {
		ok.Fprintf(w, "%d done, %d failed\n", r.Done, r.Failed)
	}
}
