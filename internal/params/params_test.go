package params

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gscreen/internal/screenerr"
)

func writeJSON(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		raw  string
		want Value
		keep bool
	}{
		{"3", Int(3), true},
		{" 42 ", Int(42), true},
		{"1.76", Float(1.76), true},
		{"160.0", Float(160), true},
		{"None", Value{}, false},
		{"gain.mrc", String("gain.mrc"), true},
		{"abc", String("abc"), true},
		{"[1, 2, 3]", List(Int(1), Int(2), Int(3)), true},
		{"[0.1,0.2, 0.3]", List(Float(0.1), Float(0.2), Float(0.3)), true},
		{"['a', \"b\", c]", List(String("a"), String("b"), String("c")), true},
		{"[]", List(), true},
	}
	for _, tc := range cases {
		got, keep, err := Coerce(tc.raw)
		if err != nil {
			t.Fatalf("Coerce(%q): %v", tc.raw, err)
		}
		if keep != tc.keep {
			t.Fatalf("Coerce(%q) keep=%v want %v", tc.raw, keep, tc.keep)
		}
		if keep && !got.Equal(tc.want) {
			t.Fatalf("Coerce(%q) = %v (%s), want %v (%s)", tc.raw, got, got.Kind(), tc.want, tc.want.Kind())
		}
	}
}

func TestCoerceMalformedList(t *testing.T) {
	for _, raw := range []string{"[1, 2", "[1,,2]", "[[1],[2]]"} {
		if _, _, err := Coerce(raw); err == nil {
			t.Fatalf("Coerce(%q): expected error", raw)
		}
	}
}

func TestValueString(t *testing.T) {
	cases := map[string]Value{
		"3":             Int(3),
		"2.0":           Float(2),
		"0.15":          Float(0.15),
		"1000000.0":     Float(1e6),
		"abc":           String("abc"),
		"[1, 2.5, x]":   List(Int(1), Float(2.5), String("x")),
		"[]":            List(),
		"-4":            Int(-4),
		"[0.1, 0.2]":    List(Float(0.1), Float(0.2)),
		"cc_cutoff.mrc": String("cc_cutoff.mrc"),
	}
	for want, v := range cases {
		if got := v.String(); got != want {
			t.Fatalf("String() = %q want %q", got, want)
		}
	}
}

func TestLoadKeepsOrderAndDropsNone(t *testing.T) {
	dir := t.TempDir()
	defaults := writeJSON(t, dir, "defaults.json", `{
		"apixM": "1.76",
		"diameter": "160",
		"speed": "2",
		"lp": "None",
		"boxsize": 128
	}`)
	matrix := writeJSON(t, dir, "test.json", `{
		"min_dist": "[100, 150, 200]",
		"cc_cutoff": ["0.1", "0.2", "0.3"]
	}`)

	set, m, err := Load(defaults, matrix)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := set.Keys(), []string{"apixM", "diameter", "speed", "boxsize"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v want %v", got, want)
	}
	if apix, ok := set.Number("apixM"); !ok || apix != 1.76 {
		t.Fatalf("apixM = %v, %v", apix, ok)
	}
	if _, ok := set.Get("lp"); ok {
		t.Fatalf("None entry should be dropped")
	}

	sweeps := m.Sweeps()
	if len(sweeps) != 2 || sweeps[0].Param != "min_dist" || sweeps[1].Param != "cc_cutoff" {
		t.Fatalf("unexpected sweeps %+v", sweeps)
	}
	if !sweeps[1].Values[2].Equal(Float(0.3)) {
		t.Fatalf("cc_cutoff[2] = %v", sweeps[1].Values[2])
	}
	if got := sweeps[0].Legend(); !reflect.DeepEqual(got, []string{"min_dist = 100", "min_dist = 150", "min_dist = 200"}) {
		t.Fatalf("legend = %v", got)
	}
}

func TestLoadNativeNumbers(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "defaults.json", `{"apixM": 1e-3, "diameter": 1.6E2, "speed": 2, "lp": 30.0, "big": 12345678901}`)
	set, err := LoadSet(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]Value{
		"apixM":    Float(0.001),
		"diameter": Float(160),
		"speed":    Int(2),
		"lp":       Float(30),
		"big":      Int(12345678901),
	}
	for key, w := range want {
		got, ok := set.Get(key)
		if !ok || !got.Equal(w) {
			t.Fatalf("%s = %v (%s), want %v (%s)", key, got, got.Kind(), w, w.Kind())
		}
	}
	if apix, ok := set.Number("apixM"); !ok || apix != 0.001 {
		t.Fatalf("apixM = %v, %v", apix, ok)
	}
}

func TestLoadMatrixRejectsWrongCount(t *testing.T) {
	dir := t.TempDir()
	defaults := writeJSON(t, dir, "defaults.json", `{"speed": "2"}`)
	for name, body := range map[string]string{
		"two":    `{"speed": "[1, 2]"}`,
		"four":   `{"speed": "[1, 2, 3]", "lp": "[10, 20, 30, 40]"}`,
		"scalar": `{"speed": "3"}`,
		"empty":  `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			matrix := writeJSON(t, dir, name+".json", body)
			_, _, err := Load(defaults, matrix)
			if !errors.Is(err, screenerr.ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	matrix := writeJSON(t, dir, "test.json", `{"speed": "[1, 2, 3]"}`)
	if _, _, err := Load(filepath.Join(dir, "nope.json"), matrix); !errors.Is(err, screenerr.ErrConfig) {
		t.Fatalf("missing defaults: got %v", err)
	}
	defaults := writeJSON(t, dir, "d.json", `{}`)
	if _, _, err := Load(defaults, filepath.Join(dir, "nope.json")); !errors.Is(err, screenerr.ErrConfig) {
		t.Fatalf("missing matrix: got %v", err)
	}
	bad := writeJSON(t, dir, "bad.json", `[1, 2]`)
	if _, err := LoadSet(bad); !errors.Is(err, screenerr.ErrConfig) {
		t.Fatalf("non-object: got %v", err)
	}
}

func TestMergedDoesNotMutate(t *testing.T) {
	base := NewSet(
		Param{"apixM", Float(1.76)},
		Param{"speed", Int(2)},
	)
	a := base.Merged("speed", Int(1), "/data/a.mrc")
	b := base.Merged("lp", Int(30), "/data/b.mrc")

	if v, _ := base.Get("speed"); !v.Equal(Int(2)) {
		t.Fatalf("base speed changed to %v", v)
	}
	if _, ok := base.Get(ImageKey); ok {
		t.Fatalf("base gained %s", ImageKey)
	}
	if base.Len() != 2 {
		t.Fatalf("base len = %d", base.Len())
	}
	if v, _ := a.Get("speed"); !v.Equal(Int(1)) {
		t.Fatalf("a speed = %v", v)
	}
	if _, ok := a.Get("lp"); ok {
		t.Fatalf("a should not see b's override")
	}
	if v, _ := b.Get(ImageKey); v.String() != "/data/b.mrc" {
		t.Fatalf("b image = %v", v)
	}
	if v, _ := b.Get("speed"); !v.Equal(Int(2)) {
		t.Fatalf("b speed = %v", v)
	}
}

func TestArgs(t *testing.T) {
	s := NewSet(
		Param{"apixM", Float(1.76)},
		Param{"diameter", Float(160)},
		Param{"speed", Int(2)},
	).Merged("speed", Int(4), "/x/a.mrc")
	want := []string{"--apixM", "1.76", "--diameter", "160.0", "--speed", "4"}
	if got := s.Args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Args() = %v want %v", got, want)
	}
}

func TestValidateDefaults(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "template.mrcs", "x")
	s := NewSet(
		Param{"T", String("template.mrcs")},
		Param{"speed", Int(2)},
	)
	out, err := ValidateDefaults(s, dir, FileKeys)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := out.Get("T")
	if want := filepath.Join(dir, "template.mrcs"); v.String() != want {
		t.Fatalf("T = %v want %v", v, want)
	}
	if v, _ := s.Get("T"); v.String() != "template.mrcs" {
		t.Fatalf("input set modified: %v", v)
	}

	missing := s.With("global_excluded_box", String("nope.box"))
	_, err = ValidateDefaults(missing, dir, FileKeys)
	if !errors.Is(err, screenerr.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
