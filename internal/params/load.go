package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gscreen/internal/screenerr"
)

// FileKeys are the picker parameters whose values name files on disk.
var FileKeys = []string{"exclusive_picking", "excluded_suffix", "global_excluded_box", "T"}

// Load reads the defaults file and the test matrix file.
func Load(defaultsPath, matrixPath string) (Set, Matrix, error) {
	defaults, err := LoadSet(defaultsPath)
	if err != nil {
		return Set{}, Matrix{}, err
	}
	matrix, err := LoadMatrix(matrixPath)
	if err != nil {
		return Set{}, Matrix{}, err
	}
	return defaults, matrix, nil
}

// LoadSet reads a JSON object of parameters, keeping key order and dropping
// "None" entries.
func LoadSet(path string) (Set, error) {
	ps, err := readFile(path)
	if err != nil {
		return Set{}, err
	}
	return NewSet(ps...), nil
}

// LoadMatrix reads a JSON object mapping each parameter under test to its
// candidate values and checks that every parameter has exactly SlotCount.
func LoadMatrix(path string) (Matrix, error) {
	ps, err := readFile(path)
	if err != nil {
		return Matrix{}, err
	}
	sweeps := make([]Sweep, 0, len(ps))
	for _, p := range ps {
		if p.Value.Kind() != KindList {
			return Matrix{}, screenerr.Configf("%s: %s = %s is not a list of candidate values",
				path, p.Name, p.Value)
		}
		sweeps = append(sweeps, Sweep{Param: p.Name, Values: p.Value.Items()})
	}
	m := NewMatrix(sweeps...)
	if err := CheckMatrix(m); err != nil {
		return Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// CheckMatrix verifies that the matrix is non-empty and that every
// parameter under test has exactly SlotCount candidate values.
func CheckMatrix(m Matrix) error {
	if m.Len() == 0 {
		return screenerr.Configf("the test matrix has no parameters to sweep")
	}
	for _, sw := range m.sweeps {
		if len(sw.Values) != SlotCount {
			return screenerr.Configf("parameter %s has %d candidate values, expected exactly %d",
				sw.Param, len(sw.Values), SlotCount)
		}
	}
	return nil
}

// ValidateDefaults checks that every file-valued parameter in keys names an
// existing file. Relative paths are resolved against base. Keys absent from
// the set are skipped. The returned set holds absolute paths so the picker
// can be run from any working directory.
func ValidateDefaults(s Set, base string, keys []string) (Set, error) {
	out := s
	for _, key := range keys {
		v, ok := s.Get(key)
		if !ok {
			continue
		}
		path := v.String()
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return Set{}, screenerr.Configf("file not found for %s in default parameters: %s", key, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return Set{}, screenerr.Wrap(screenerr.ErrConfig, err, "resolve %s", key)
		}
		out = out.With(key, String(abs))
	}
	return out, nil
}

func readFile(path string) ([]Param, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, screenerr.Configf("parameter file %s does not exist", path)
		}
		return nil, screenerr.Wrap(screenerr.ErrConfig, err, "read %s", path)
	}
	ps, err := decodeOrdered(bytes.NewReader(data))
	if err != nil {
		return nil, screenerr.Wrap(screenerr.ErrConfig, err, "parse %s", path)
	}
	return ps, nil
}

// decodeOrdered decodes a JSON object into params, preserving key order.
func decodeOrdered(r io.Reader) ([]Param, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var ps []Param
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		v, keep, err := fromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if keep {
			ps = append(ps, Param{Name: key, Value: v})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return ps, nil
}

func fromJSON(raw any) (Value, bool, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, false, nil
	case string:
		return Coerce(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), true, nil
		}
		if f, err := x.Float64(); err == nil {
			return Float(f), true, nil
		}
		return String(x.String()), true, nil
	case bool:
		if x {
			return String("true"), true, nil
		}
		return String("false"), true, nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			if _, nested := item.([]any); nested {
				return Value{}, false, fmt.Errorf("nested lists are not supported")
			}
			v, keep, err := fromJSON(item)
			if err != nil {
				return Value{}, false, err
			}
			if !keep {
				v = String("None")
			}
			items = append(items, v)
		}
		return List(items...), true, nil
	}
	return Value{}, false, fmt.Errorf("unsupported value %v", raw)
}
