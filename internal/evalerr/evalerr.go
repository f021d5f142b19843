// Package evalerr carries the error taxonomy shared by the dataset and
// evaluation packages. Errors keep a kind so callers can branch on the
// failure class without matching message text.
package evalerr

import (
	"errors"
	"fmt"
)

// Kind classifies an evaluation failure.
type Kind int

const (
	// KindUnknown is the zero kind for wrapped foreign errors.
	KindUnknown Kind = iota
	// KindInvalidArgument marks malformed dataset shapes, bad column names,
	// contradictory parameters, or malformed evaluator configs.
	KindInvalidArgument
	// KindDependencyMissing marks a model-type family that needs an
	// unavailable external package.
	KindDependencyMissing
	// KindNoCapableEvaluator marks a call where every resolved evaluator
	// declined or none resolved.
	KindNoCapableEvaluator
	// KindEvaluatorFailure wraps a single evaluator's internal error.
	KindEvaluatorFailure
)

// Error is a kinded evaluation error.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf reports the kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindUnknown
}

// IsInvalidArgument reports whether err is an invalid-argument error.
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }

// IsDependencyMissing reports whether err is a dependency-missing error.
func IsDependencyMissing(err error) bool { return KindOf(err) == KindDependencyMissing }

// IsNoCapableEvaluator reports whether err means no evaluator could run.
func IsNoCapableEvaluator(err error) bool { return KindOf(err) == KindNoCapableEvaluator }

// IsEvaluatorFailure reports whether err wraps an evaluator's own error.
func IsEvaluatorFailure(err error) bool { return KindOf(err) == KindEvaluatorFailure }
