// Package screenerr defines the error kinds shared by the screener packages.
//
// Configuration errors are fatal to the whole run. IO, picker, parse and
// conversion errors are fatal only to the image being processed.
package screenerr

import (
	"errors"
	"fmt"
)

var (
	ErrConfig = errors.New("configuration error")
	ErrIO     = errors.New("i/o error")
	ErrPicker = errors.New("picker error")
	ErrParse  = errors.New("parse error")

	// ErrConvert is a failed micrograph to preview conversion.
	ErrConvert = errors.New("conversion error")
)

// Error wraps a failure with its kind. It unwraps to both Kind and Err, so
// errors.Is matches the kind as well as the underlying cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Configf returns an ErrConfig error with a formatted message.
func Configf(format string, args ...any) error {
	return &Error{Kind: ErrConfig, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and a message to err.
func Wrap(kind error, err error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }
