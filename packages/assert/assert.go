// Package assert defines the assertion-failure error kind used by test
// bodies. Failures of this kind are always retryable under retry.Until;
// any other error propagates immediately.
package assert

import (
	"errors"
	"fmt"
)

// Error is an assertion failure.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// Errorf builds an assertion failure from a format string.
func Errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// That returns nil when cond holds, otherwise an assertion failure with the
// given message.
func That(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return Errorf(format, args...)
}

// NoError converts an unexpected error into an assertion failure.
func NoError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Msg: err.Error()}
}

// IsFailure reports whether err is (or wraps) an assertion failure.
func IsFailure(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}
