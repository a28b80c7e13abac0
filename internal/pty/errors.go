package pty

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pty package. Callers match with errors.Is.
var (
	// ErrSpawnFailed is returned when the shell process could not be started.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrNotAvailable is returned when the native pseudo-console API is
	// missing from the running OS.
	ErrNotAvailable = errors.New("conpty not available")

	// ErrBrokenPipe is returned when the PTY transport rejected a write.
	ErrBrokenPipe = errors.New("broken pipe")

	// ErrProcessExited is returned when an operation needs a live child.
	ErrProcessExited = errors.New("process exited")

	// ErrSignalUnsupported is returned for signals the platform cannot
	// deliver. Reported, never fatal.
	ErrSignalUnsupported = errors.New("signal unsupported")

	// ErrResizeFailed is returned when the terminal size change was
	// rejected. The session stays usable.
	ErrResizeFailed = errors.New("resize failed")

	// ErrSessionNotFound is returned when a session ID is not tracked by
	// the manager.
	ErrSessionNotFound = errors.New("session not found")

	// ErrManagerClosed is returned when creating sessions on a manager
	// that has been shut down.
	ErrManagerClosed = errors.New("terminal manager is closed")
)

// Error is a categorized PTY failure: the operation that failed, the
// taxonomy sentinel it belongs to, and the underlying OS error when one
// exists. errors.Is matches both the sentinel and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pty %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("pty %s: %v", e.Op, e.Kind)
}

// Unwrap exposes the underlying OS error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the taxonomy sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// newError builds an *Error. err may be nil when there is no OS cause.
func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
