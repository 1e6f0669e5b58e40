package sweep

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gscreen/internal/annotate"
	pimage "gscreen/internal/image"
	"gscreen/internal/params"
	"gscreen/internal/picker"
	"gscreen/internal/screenerr"
)

// fakePicker writes one particle per run into the workspace, or fails for
// the configured value.
type fakePicker struct {
	mu      sync.Mutex
	calls   []params.Set
	failOn  string
	badData bool
}

func (f *fakePicker) Run(_ context.Context, set params.Set, link, param, value string) (picker.Pick, error) {
	f.mu.Lock()
	f.calls = append(f.calls, set)
	f.mu.Unlock()
	if value == f.failOn {
		return picker.Pick{}, &picker.Error{Image: filepath.Base(link), Param: param, Value: value, Err: errors.New("exit status 1")}
	}
	body := "120 80 64 64\n"
	if f.badData {
		body = "120\n"
	}
	box := picker.BoxPath(link)
	if err := os.WriteFile(box, []byte(body), 0o644); err != nil {
		return picker.Pick{}, err
	}
	return picker.Pick{BoxFile: box, Count: 1}, nil
}

type fixture struct {
	dir    string
	image  string
	runner *Runner
	picker *fakePicker
}

func newFixture(t *testing.T, sweeps ...params.Sweep) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, picker: &fakePicker{}}
	for _, sub := range []string{"jpgs", "annotated"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	f.image = filepath.Join(dir, "mic_001.mrc")
	if err := os.WriteFile(f.image, []byte("mrc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pimage.Save(filepath.Join(dir, "jpgs", "mic_001.png"), image.NewGray(image.Rect(0, 0, 300, 300))); err != nil {
		t.Fatal(err)
	}
	f.runner = &Runner{
		Defaults:    params.NewSet(params.Param{Name: "speed", Value: params.Int(2)}),
		Matrix:      params.NewMatrix(sweeps...),
		Picker:      f.picker,
		Annotator:   annotate.Annotator{BaseRadius: 20, Thickness: 2, LegendScale: 1},
		PreviewsIn:  filepath.Join(dir, "jpgs"),
		PreviewsOut: dir,
		Annotated:   filepath.Join(dir, "annotated"),
		Log:         log.New(io.Discard, "", 0),
	}
	return f
}

func speedSweep() params.Sweep {
	return params.Sweep{Param: "speed", Values: []params.Value{params.Int(1), params.Int(3), params.Int(5)}}
}

func TestRunCompletes(t *testing.T) {
	lp := params.Sweep{Param: "lp", Values: []params.Value{params.Float(10), params.Float(20), params.Float(30)}}
	f := newFixture(t, speedSweep(), lp)
	res := f.runner.Run(context.Background(), f.image)
	if !res.OK() || res.Err != nil {
		t.Fatalf("result: %+v", res)
	}

	wantOutputs := []string{
		filepath.Join(f.dir, "mic_001_speed.png"),
		filepath.Join(f.dir, "mic_001_lp.png"),
	}
	if fmt.Sprint(res.Outputs) != fmt.Sprint(wantOutputs) {
		t.Fatalf("outputs = %v", res.Outputs)
	}
	for _, out := range wantOutputs {
		if _, err := os.Stat(out); err != nil {
			t.Fatal(err)
		}
	}

	if len(res.Counts) != 6 {
		t.Fatalf("counts = %+v", res.Counts)
	}
	if c := res.Counts[4]; c.Param != "lp" || c.Value != "20.0" || c.Slot != 2 || c.Particles != 1 {
		t.Fatalf("count[4] = %+v", c)
	}

	for _, dir := range []string{"speed_1", "speed_3", "speed_5", "lp_10.0", "lp_20.0", "lp_30.0"} {
		box := filepath.Join(f.dir, "annotated", dir, "mic_001", "mic_001_automatch.box")
		if _, err := os.Stat(box); err != nil {
			t.Fatalf("missing %s: %v", box, err)
		}
	}

	// Each call sees the defaults with exactly one override.
	if len(f.picker.calls) != 6 {
		t.Fatalf("picker calls = %d", len(f.picker.calls))
	}
	third := f.picker.calls[2]
	if v, _ := third.Get("speed"); v.String() != "5" {
		t.Fatalf("third call speed = %v", v)
	}
	fourth := f.picker.calls[3]
	if v, _ := fourth.Get("speed"); v.String() != "2" {
		t.Fatalf("lp sweep should keep the default speed, got %v", v)
	}
	if v, _ := fourth.Get(params.ImageKey); v.String() != f.image {
		t.Fatalf("image key = %v", v)
	}
	if v, _ := f.runner.Defaults.Get("speed"); v.String() != "2" {
		t.Fatalf("defaults modified: %v", v)
	}
}

func TestRunPickerFailure(t *testing.T) {
	f := newFixture(t, speedSweep())
	f.picker.failOn = "3"
	res := f.runner.Run(context.Background(), f.image)
	if res.State != StateFailed {
		t.Fatalf("state = %s", res.State)
	}
	var failure *ImageFailure
	if !errors.As(res.Err, &failure) {
		t.Fatalf("err = %v", res.Err)
	}
	if failure.State != StatePicking || failure.Param != "speed" || failure.Value != "3" {
		t.Fatalf("failure = %+v", failure)
	}
	if !errors.Is(res.Err, screenerr.ErrPicker) {
		t.Fatalf("expected picker error in chain: %v", res.Err)
	}
	if len(res.Counts) != 1 || len(res.Outputs) != 0 {
		t.Fatalf("partial result: %+v", res)
	}
}

func TestRunParseFailure(t *testing.T) {
	f := newFixture(t, speedSweep())
	f.picker.badData = true
	res := f.runner.Run(context.Background(), f.image)
	var failure *ImageFailure
	if !errors.As(res.Err, &failure) || failure.State != StateReadingCoordinates {
		t.Fatalf("err = %v", res.Err)
	}
	if !errors.Is(res.Err, screenerr.ErrParse) {
		t.Fatalf("expected parse error: %v", res.Err)
	}
}

func TestRunMissingPreview(t *testing.T) {
	f := newFixture(t, speedSweep())
	if err := os.Remove(filepath.Join(f.dir, "jpgs", "mic_001.png")); err != nil {
		t.Fatal(err)
	}
	res := f.runner.Run(context.Background(), f.image)
	var failure *ImageFailure
	if !errors.As(res.Err, &failure) || failure.State != StateCopyPreview {
		t.Fatalf("err = %v", res.Err)
	}
	if len(f.picker.calls) != 0 {
		t.Fatalf("picker should not run without a preview")
	}
}

func TestRunReusedWorkspace(t *testing.T) {
	f := newFixture(t, speedSweep())
	if res := f.runner.Run(context.Background(), f.image); !res.OK() {
		t.Fatalf("first run: %v", res.Err)
	}
	res := f.runner.Run(context.Background(), f.image)
	var failure *ImageFailure
	if !errors.As(res.Err, &failure) || failure.State != StatePreparingWorkspace {
		t.Fatalf("err = %v", res.Err)
	}
	if !errors.Is(res.Err, screenerr.ErrIO) {
		t.Fatalf("expected IO error: %v", res.Err)
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, speedSweep())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.runner.Run(ctx, f.image)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("err = %v", res.Err)
	}
}

func TestStateString(t *testing.T) {
	if StatePreparingWorkspace.String() != "PreparingWorkspace" || State(99).String() != "Unknown" {
		t.Fatalf("unexpected state names")
	}
	text, _ := StateDone.MarshalText()
	if string(text) != "Done" {
		t.Fatalf("MarshalText = %s", text)
	}
}
