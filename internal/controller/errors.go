package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// invalidArgumentError signals malformed or out-of-range start parameters (400).
type invalidArgumentError struct{ msg string }

func (e invalidArgumentError) Error() string { return "invalid argument: " + e.msg }

func (invalidArgumentError) StatusCode() int { return http.StatusBadRequest }

// ErrInvalidArgument constructs an invalidArgumentError.
func ErrInvalidArgument(format string, a ...any) error {
	return invalidArgumentError{msg: fmt.Sprintf(format, a...)}
}

// IsInvalidArgument reports whether err rejects the start parameters.
func IsInvalidArgument(err error) bool {
	var e invalidArgumentError
	return errors.As(err, &e)
}

// modelStateError signals an operation that conflicts with the current
// lifecycle state (409). The state machine is left unchanged.
type modelStateError struct{ msg string }

func (e modelStateError) Error() string { return e.msg }

func (modelStateError) StatusCode() int { return http.StatusConflict }

// ErrModelState constructs a modelStateError.
func ErrModelState(format string, a ...any) error {
	return modelStateError{msg: fmt.Sprintf(format, a...)}
}

// IsModelState reports whether err is a lifecycle conflict.
func IsModelState(err error) bool {
	var e modelStateError
	return errors.As(err, &e)
}

// timeoutError is returned when a bounded wait did not observe a target state.
type timeoutError struct {
	after time.Duration
	want  []State
	last  State
}

func (e timeoutError) Error() string {
	want := make([]string, len(e.want))
	for i, s := range e.want {
		want[i] = string(s)
	}
	return fmt.Sprintf("timeout reached after %s waiting for %s, last state %s", e.after, strings.Join(want, "|"), e.last)
}

func (timeoutError) StatusCode() int { return http.StatusGatewayTimeout }

// IsTimeout reports whether err is a wait timeout.
func IsTimeout(err error) bool {
	var e timeoutError
	return errors.As(err, &e)
}

// processFaultError signals that the child could not be started or ended abnormally.
type processFaultError struct {
	msg string
	err error
}

func (e processFaultError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e processFaultError) Unwrap() error { return e.err }

func (processFaultError) StatusCode() int { return http.StatusInternalServerError }

// ErrProcessFault constructs a processFaultError wrapping err (which may be nil).
func ErrProcessFault(msg string, err error) error {
	return processFaultError{msg: msg, err: err}
}

// IsProcessFault reports whether err is a child process fault.
func IsProcessFault(err error) bool {
	var e processFaultError
	return errors.As(err, &e)
}

// syncError signals that the status endpoint could not be read.
type syncError struct{ err error }

func (e syncError) Error() string { return "koboldcpp status unavailable: " + e.err.Error() }

func (e syncError) Unwrap() error { return e.err }

// IsSyncFault reports whether err is a status endpoint failure.
func IsSyncFault(err error) bool {
	var e syncError
	return errors.As(err, &e)
}
