package pty

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMatchesKind(t *testing.T) {
	cause := errors.New("EPIPE")
	err := newError("write", ErrBrokenPipe, cause)

	if !errors.Is(err, ErrBrokenPipe) {
		t.Error("expected errors.Is to match the taxonomy sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the underlying cause")
	}
	if errors.Is(err, ErrSpawnFailed) {
		t.Error("matched the wrong sentinel")
	}
}

func TestErrorWrappedMatchesKind(t *testing.T) {
	err := fmt.Errorf("session open: %w", newError("spawn", ErrSpawnFailed, errors.New("no such file")))
	if !errors.Is(err, ErrSpawnFailed) {
		t.Error("sentinel not matched through an outer wrap")
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError("resize", ErrResizeFailed, errors.New("EBADF"))
	msg := err.Error()
	for _, want := range []string{"resize", "resize failed", "EBADF"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}

	bare := newError("signal", ErrSignalUnsupported, nil)
	if !strings.Contains(bare.Error(), "signal unsupported") {
		t.Errorf("error message %q missing kind", bare.Error())
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name string
		want Signal
		ok   bool
	}{
		{"interrupt", SignalInterrupt, true},
		{"int", SignalInterrupt, true},
		{"break", SignalBreak, true},
		{"quit", SignalBreak, true},
		{"suspend", SignalSuspend, true},
		{"eof", SignalEOF, true},
		{"hup", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseSignal(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseSignal(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
