package sweep

import "fmt"

// State is a step of one image's sweep.
type State int

const (
	StateInit State = iota
	StateCopyPreview
	StatePreparingWorkspace
	StatePicking
	StateReadingCoordinates
	StateAnnotating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateCopyPreview:
		return "CopyPreview"
	case StatePreparingWorkspace:
		return "PreparingWorkspace"
	case StatePicking:
		return "Picking"
	case StateReadingCoordinates:
		return "ReadingCoordinates"
	case StateAnnotating:
		return "Annotating"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// MarshalText lets states appear by name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ImageFailure records where an image's sweep stopped.
type ImageFailure struct {
	Image string
	Param string // empty if the failure happened outside a parameter
	Value string // empty if the failure happened outside a value
	State State  // the step that failed
	Err   error
}

func (e *ImageFailure) Error() string {
	switch {
	case e.Value != "":
		return fmt.Sprintf("%s failed in %s (%s = %s): %v", e.Image, e.State, e.Param, e.Value, e.Err)
	case e.Param != "":
		return fmt.Sprintf("%s failed in %s (%s): %v", e.Image, e.State, e.Param, e.Err)
	default:
		return fmt.Sprintf("%s failed in %s: %v", e.Image, e.State, e.Err)
	}
}

func (e *ImageFailure) Unwrap() error { return e.Err }
