package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of a parameter value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a single parameter value. The zero Value is the integer 0.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	list []Value
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list value holding a copy of vs.
func List(vs ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), vs...)}
}

// Kind reports the value's type.
func (v Value) Kind() Kind { return v.kind }

// Number returns the value as a float64 if it is numeric.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Items returns a copy of a list value's elements, or nil for scalars.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.list...)
}

// String renders the value the way it is passed on the picker's command line.
// Floats always carry a decimal point so 2.0 stays distinguishable from 2.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
		return s
	case KindString:
		return v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// Equal reports whether two values have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Coerce converts a raw string from a parameter file into a Value.
//
// "None" yields ok == false and the entry should be dropped. Anything holding
// a '[' is parsed as a list. Otherwise the text becomes a float if it has a
// decimal point, an integer if it parses as one, and a string if neither.
func Coerce(raw string) (v Value, ok bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "None" {
		return Value{}, false, nil
	}
	if strings.Contains(s, "[") {
		v, err := parseList(s)
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil
	}
	return coerceScalar(s), true, nil
}

func coerceScalar(s string) Value {
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
		return String(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	return String(s)
}

// parseList reads a flat bracketed list such as "[0.1, 0.2, 0.3]" or
// "['a', 'b', 'c']".
func parseList(s string) (Value, error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return Value{}, fmt.Errorf("malformed list %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return List(), nil
	}
	if strings.ContainsAny(inner, "[]") {
		return Value{}, fmt.Errorf("nested lists are not supported: %q", s)
	}
	fields := strings.Split(inner, ",")
	items := make([]Value, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			return Value{}, fmt.Errorf("malformed list %q: empty element", s)
		}
		if unquoted, ok := unquote(field); ok {
			items = append(items, String(unquoted))
			continue
		}
		items = append(items, coerceScalar(field))
	}
	return List(items...), nil
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], true
		}
	}
	return s, false
}
