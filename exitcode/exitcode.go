// Package exitcode maps backend start failures, abnormal terminations and
// backend-specific exit conditions onto a closed set of identifiers.
//
// The identifiers form one contiguous range that ends at Max. Process-level
// failures occupy the low end of the range and backend semantic failures the
// high end. Anything outside the range classifies as Crashed.
package exitcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Code is a stable exit classification identifier.
type Code int

// None means no failure was observed.
const None Code = 0

const (
	FailedToStart Code = 242 + iota
	Crashed
	Timedout
	ReadError
	WriteError

	FileOpen
	UnrecognizedFormat
	NoDisc
	HTTP403
	HTTP404
	NoStream
	TitleNotFound
	QuitNoPlay
	OutPointReached
)

// Bounds of the valid range.
const (
	First = FailedToStart
	Max   = OutPointReached
)

var names = map[Code]string{
	FailedToStart:      "failed-to-start",
	Crashed:            "crashed",
	Timedout:           "timedout",
	ReadError:          "read-error",
	WriteError:         "write-error",
	FileOpen:           "file-open",
	UnrecognizedFormat: "unrecognized-format",
	NoDisc:             "no-disc",
	HTTP403:            "http-403",
	HTTP404:            "http-404",
	NoStream:           "no-stream",
	TitleNotFound:      "title-not-found",
	QuitNoPlay:         "quit-no-play",
	OutPointReached:    "out-point-reached",
}

// Valid reports whether c lies inside [First, Max].
func (c Code) Valid() bool {
	return c >= First && c <= Max
}

// String returns the symbolic identifier, e.g. "http-404".
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// All lists every valid code in ascending order.
func All() []Code {
	codes := make([]Code, 0, int(Max-First)+1)
	for c := First; c <= Max; c++ {
		codes = append(codes, c)
	}
	return codes
}

// Classify normalizes a raw identifier. Out-of-range values become Crashed.
func Classify(raw int) Code {
	if c := Code(raw); c.Valid() {
		return c
	}
	return Crashed
}

// ProcessError is the OS-level failure category reported while running a process.
type ProcessError int

const (
	StartFailure ProcessError = iota
	CrashExit
	WaitTimeout
	PipeRead
	PipeWrite
)

// FromProcessError maps a process failure category 1:1 onto the low sub-range.
func FromProcessError(e ProcessError) Code {
	return Classify(int(FailedToStart) + int(e))
}

// FromExit classifies the result of exec.Cmd.Wait. observed is the failure the
// output parser recognised while the process ran, or None.
//
// The second return value is false for a clean exit with nothing observed.
func FromExit(err error, observed Code) (Code, bool) {
	if err == nil {
		if observed.Valid() {
			return observed, true
		}
		return None, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timedout, true
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Crashed, true
	}

	status := exitErr.ExitCode()
	if status < 0 {
		// killed by a signal
		return Crashed, true
	}
	if c := Code(status); c.Valid() {
		return c, true
	}
	if observed.Valid() {
		return observed, true
	}
	return Crashed, true
}

// Error carries a classification alongside the underlying failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// As extracts the classification from err, if any.
func As(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return None, false
}
