package glee

import (
	"errors"
	"fmt"
	"strings"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

// ErrorReason tags why an execution state terminated with an error.
type ErrorReason int

// Termination reasons for failed states.
const (
	ReasonNone = ErrorReason(iota)
	ReasonAbort
	ReasonAssert
	ReasonBadVectorAccess
	ReasonExec
	ReasonExternal
	ReasonFree
	ReasonModel
	ReasonOverflow
	ReasonPtr
	ReasonReadOnly
	ReasonReportError
	ReasonUser
	ReasonUncaughtException
	ReasonUnexpectedException
	ReasonUnhandled
	ReasonExit
)

var errorReasons = [...]string{
	ReasonNone:                "none",
	ReasonAbort:               "abort",
	ReasonAssert:              "assert",
	ReasonBadVectorAccess:     "bad_vector_access",
	ReasonExec:                "exec",
	ReasonExternal:            "external",
	ReasonFree:                "free",
	ReasonModel:               "model",
	ReasonOverflow:            "overflow",
	ReasonPtr:                 "ptr",
	ReasonReadOnly:            "readonly",
	ReasonReportError:         "report_error",
	ReasonUser:                "user",
	ReasonUncaughtException:   "uncaught_exception",
	ReasonUnexpectedException: "unexpected_exception",
	ReasonUnhandled:           "unhandled",
	ReasonExit:                "exit",
}

// String returns the lower-case name of the reason.
func (r ErrorReason) String() string {
	if r >= 0 && int(r) < len(errorReasons) {
		return errorReasons[r]
	}
	return fmt.Sprintf("ErrorReason<%d>", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r ErrorReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ErrorReason) UnmarshalText(text []byte) error {
	v, err := ParseErrorReason(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseErrorReason returns the reason matching name. Names are case-insensitive
// and accept either underscores or dashes as separators.
func ParseErrorReason(name string) (ErrorReason, error) {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, s := range errorReasons {
		if s == name && ErrorReason(i) != ReasonNone {
			return ErrorReason(i), nil
		}
	}
	return ReasonNone, fmt.Errorf("glee: unknown error reason: %q", name)
}

// UnsupportedError is returned by instruction handlers for Go constructs the
// executor recognizes but does not model. The executor converts it into an
// Unhandled termination of the state.
type UnsupportedError struct {
	Construct string
}

// Error returns the error message.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("glee: %s not supported", e.Construct)
}

// unsupported returns a new UnsupportedError for a construct.
func unsupported(format string, args ...interface{}) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}

// RuntimeError is returned by instruction handlers when the program under
// test fails. The executor converts it into a failed termination of the state.
type RuntimeError struct {
	Reason  ErrorReason
	Message string
}

// Error returns the error message.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("glee: %s: %s", e.Reason, e.Message)
}
