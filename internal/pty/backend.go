package pty

import (
	"os"
	"time"
)

// Teardown and polling bounds. Fixed constants, not part of the public
// contract.
const (
	// terminateGrace is how long Close waits after a graceful stop
	// request before force-killing the child.
	terminateGrace = 500 * time.Millisecond
	// killWait bounds the reap after a force kill.
	killWait = 2 * time.Second
	// readPollInterval paces the non-blocking pipe poll on backends that
	// cannot block an OS thread in a cancellable read.
	readPollInterval = 10 * time.Millisecond
)

// Signal identifies a control signal deliverable to the child's foreground
// job through the terminal.
type Signal int

const (
	// SignalInterrupt interrupts the foreground job (Ctrl-C).
	SignalInterrupt Signal = iota
	// SignalBreak quits the foreground job (Ctrl-\ on POSIX, Ctrl-Break
	// on Windows).
	SignalBreak
	// SignalSuspend stops the foreground job (Ctrl-Z). Unsupported on
	// Windows.
	SignalSuspend
	// SignalEOF marks end of input (Ctrl-D / Ctrl-Z+Enter semantics).
	SignalEOF
)

// String returns the canonical name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalInterrupt:
		return "interrupt"
	case SignalBreak:
		return "break"
	case SignalSuspend:
		return "suspend"
	case SignalEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// ParseSignal maps a canonical name back to a Signal.
func ParseSignal(name string) (Signal, bool) {
	switch name {
	case "interrupt", "int":
		return SignalInterrupt, true
	case "break", "quit":
		return SignalBreak, true
	case "suspend", "stop":
		return SignalSuspend, true
	case "eof":
		return SignalEOF, true
	}
	return 0, false
}

// Line-discipline control bytes. Writing these to the PTY input makes the
// terminal deliver the matching signal to the foreground process group,
// which is what an interactive terminal does for the equivalent keystrokes.
const (
	ctrlC     = 0x03 // VINTR
	ctrlZ     = 0x1a // VSUSP
	ctrlD     = 0x04 // VEOF
	ctrlSlash = 0x1c // VQUIT (Ctrl-\)
)

// backend is the capability set every PTY implementation provides. Exactly
// one backend exists per session, chosen at spawn and never switched.
// Read blocks until data arrives or the transport ends; everything else
// returns promptly.
type backend interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Resize(rows, cols uint16) error
	Signal(sig Signal) error
	Alive() bool
	Pid() int
	ExitCode() (int, bool)
	Kind() string
	Close() error
}

// echoController is implemented by backends that can toggle terminal echo.
type echoController interface {
	setEcho(on bool) error
}

// spawnConfig carries everything a backend needs to start the child.
type spawnConfig struct {
	path string
	args []string
	rows uint16
	cols uint16
	dir  string
	env  []string
}

// ForceFallbackEnv selects the portable fallback backend regardless of
// native support when set to "1". Read once per session open.
const ForceFallbackEnv = "OX_PTY_FORCE_FALLBACK"

func forceFallback() bool {
	return os.Getenv(ForceFallbackEnv) == "1"
}
