// Package fault defines the error taxonomy shared by every pipeline stage.
// Each error names the stage that failed and the invariant it violated.
package fault

import "fmt"

// Kind classifies a pipeline failure.
type Kind string

const (
	KindConfiguration      Kind = "configuration"       // bad options or inputs, fix and rerun
	KindDegenerateEnsemble Kind = "degenerate_ensemble" // calibration undefined for this ensemble
	KindDegenerateVariance Kind = "degenerate_variance" // noise variance zero or not finite
	KindEncoding           Kind = "encoding"            // unclipped value reached an encoder
)

// Sentinels for errors.Is checks. An *Error matches the sentinel of its Kind.
var (
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrDegenerateEnsemble = &Error{Kind: KindDegenerateEnsemble}
	ErrDegenerateVariance = &Error{Kind: KindDegenerateVariance}
	ErrEncoding           = &Error{Kind: KindEncoding}
)

// Error is a pipeline failure.
type Error struct {
	Kind      Kind
	Stage     string // e.g. "calibrator", "quantizer"
	Invariant string // human readable statement of what was violated
	Err       error  // optional cause
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error in %s: %s", e.Kind, e.Stage, e.Invariant)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Configuration returns a KindConfiguration error.
func Configuration(stage, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Stage: stage, Invariant: fmt.Sprintf(format, args...)}
}

// DegenerateEnsemble returns a KindDegenerateEnsemble error.
func DegenerateEnsemble(stage, format string, args ...any) *Error {
	return &Error{Kind: KindDegenerateEnsemble, Stage: stage, Invariant: fmt.Sprintf(format, args...)}
}

// DegenerateVariance returns a KindDegenerateVariance error.
func DegenerateVariance(stage, format string, args ...any) *Error {
	return &Error{Kind: KindDegenerateVariance, Stage: stage, Invariant: fmt.Sprintf(format, args...)}
}

// Encoding returns a KindEncoding error.
func Encoding(stage, format string, args ...any) *Error {
	return &Error{Kind: KindEncoding, Stage: stage, Invariant: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to e and returns it.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
