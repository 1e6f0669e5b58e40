// Package params loads and merges picker parameter sets.
//
// A Set is an ordered, immutable mapping of parameter names to values. Every
// modifier returns a new Set, so the defaults loaded at startup can be shared
// between workers without copying.
package params

import "fmt"

// ImageKey is the parameter carrying the input image of one picker run.
const ImageKey = "filein"

// SlotCount is the number of candidate values compared per parameter. It is
// also the number of colours and legend lines on an annotated preview.
const SlotCount = 3

// Param is one named value.
type Param struct {
	Name  string
	Value Value
}

// Set is an ordered parameter set.
type Set struct {
	keys []string
	vals map[string]Value
}

// NewSet builds a Set from params in order. A repeated name keeps its first
// position and its last value.
func NewSet(ps ...Param) Set {
	s := Set{vals: make(map[string]Value, len(ps))}
	for _, p := range ps {
		if _, ok := s.vals[p.Name]; !ok {
			s.keys = append(s.keys, p.Name)
		}
		s.vals[p.Name] = p.Value
	}
	return s
}

// Len returns the number of parameters.
func (s Set) Len() int { return len(s.keys) }

// Keys returns the parameter names in order.
func (s Set) Keys() []string { return append([]string(nil), s.keys...) }

// Get returns the value for name.
func (s Set) Get(name string) (Value, bool) {
	v, ok := s.vals[name]
	return v, ok
}

// Number returns a numeric parameter as float64.
func (s Set) Number(name string) (float64, bool) {
	v, ok := s.vals[name]
	if !ok {
		return 0, false
	}
	return v.Number()
}

// With returns a copy of s with name set to v. New names go last.
func (s Set) With(name string, v Value) Set {
	out := Set{
		keys: append([]string(nil), s.keys...),
		vals: make(map[string]Value, len(s.vals)+1),
	}
	for k, val := range s.vals {
		out.vals[k] = val
	}
	if _, ok := out.vals[name]; !ok {
		out.keys = append(out.keys, name)
	}
	out.vals[name] = v
	return out
}

// Merged returns a copy of s with param overridden to value and the input
// image key set to imagePath. s is not modified.
func (s Set) Merged(param string, value Value, imagePath string) Set {
	return s.With(param, value).With(ImageKey, String(imagePath))
}

// Args renders the set as picker flags, "--name value" in key order. The
// image key is left out because the image is passed positionally.
func (s Set) Args() []string {
	args := make([]string, 0, 2*len(s.keys))
	for _, k := range s.keys {
		if k == ImageKey {
			continue
		}
		args = append(args, "--"+k, s.vals[k].String())
	}
	return args
}

func (s Set) String() string {
	return fmt.Sprint(s.Args())
}

// Sweep is one parameter under test with its candidate values.
type Sweep struct {
	Param  string
	Values []Value
}

// Legend returns the "param = value" labels for each candidate, in order.
func (sw Sweep) Legend() []string {
	out := make([]string, len(sw.Values))
	for i, v := range sw.Values {
		out[i] = fmt.Sprintf("%s = %s", sw.Param, v)
	}
	return out
}

// Matrix is the ordered list of sweeps to run.
type Matrix struct {
	sweeps []Sweep
}

// NewMatrix builds a Matrix from sweeps in order.
func NewMatrix(sweeps ...Sweep) Matrix {
	m := Matrix{sweeps: make([]Sweep, len(sweeps))}
	for i, sw := range sweeps {
		m.sweeps[i] = Sweep{Param: sw.Param, Values: append([]Value(nil), sw.Values...)}
	}
	return m
}

// Len returns the number of parameters under test.
func (m Matrix) Len() int { return len(m.sweeps) }

// Sweeps returns a copy of the sweeps in order.
func (m Matrix) Sweeps() []Sweep {
	out := make([]Sweep, len(m.sweeps))
	for i, sw := range m.sweeps {
		out[i] = Sweep{Param: sw.Param, Values: append([]Value(nil), sw.Values...)}
	}
	return out
}

func (m Matrix) String() string {
	s := "{"
	for i, sw := range m.sweeps {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", sw.Param, List(sw.Values...))
	}
	return s + "}"
}
