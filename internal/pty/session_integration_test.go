//go:build !windows

package pty

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ktheindifferent/ox/internal/shell"
)

// spawnSession opens a real session on the detected shell, skipping when
// the environment cannot provide a PTY (short mode, locked-down CI).
func spawnSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PTY spawn in short mode")
	}
	s, err := New(opts)
	if err != nil {
		if errors.Is(err, ErrSpawnFailed) || errors.Is(err, shell.ErrShellNotFound) {
			t.Skipf("no usable PTY environment: %v", err)
		}
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, s *Session, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(s.Output(), want) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("output never contained %q; got %q", want, s.Output())
}

func TestOpenReportsAliveImmediately(t *testing.T) {
	s := spawnSession(t, Options{})
	if !s.Alive() {
		t.Error("session not alive right after spawn")
	}
	if s.Pid() <= 0 {
		t.Errorf("bad pid %d", s.Pid())
	}
	if s.BackendKind() == "" {
		t.Error("backend kind empty")
	}
}

func TestEchoRoundTrip(t *testing.T) {
	s := spawnSession(t, Options{})
	if err := s.RunCommand("echo MARKER_$((40+2))\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	waitFor(t, s, "MARKER_42", 5*time.Second)
}

func TestCharInputRoundTrip(t *testing.T) {
	s := spawnSession(t, Options{})
	for _, c := range "echo CHARWISE\n" {
		if err := s.CharInput(c); err != nil {
			t.Fatalf("CharInput: %v", err)
		}
	}
	waitFor(t, s, "CHARWISE", 5*time.Second)
}

func TestResizeVisibleToChild(t *testing.T) {
	s := spawnSession(t, Options{})
	if err := s.Resize(30, 100); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if rows, cols := s.Size(); rows != 30 || cols != 100 {
		t.Errorf("Size = %dx%d, want 30x100", rows, cols)
	}
	if err := s.RunCommand("stty size\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	waitFor(t, s, "30 100", 5*time.Second)
}

func TestForcedFallbackSelection(t *testing.T) {
	t.Setenv(ForceFallbackEnv, "1")
	s := spawnSession(t, Options{})
	if got := s.BackendKind(); got != "fallback" {
		t.Fatalf("BackendKind = %q, want fallback", got)
	}
	// The contract is identical: round trip still works.
	if err := s.RunCommand("echo VIA_FALLBACK\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	waitFor(t, s, "VIA_FALLBACK", 5*time.Second)
	if err := s.Resize(40, 120); err != nil {
		t.Errorf("Resize on fallback: %v", err)
	}
}

func TestInterruptReturnsToPrompt(t *testing.T) {
	s := spawnSession(t, Options{})
	if err := s.RunCommand("sleep 30\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if err := s.Signal(SignalInterrupt); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	// The shell survives the interrupt and keeps taking commands.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !s.Alive() {
			t.Fatal("shell died on interrupt")
		}
		time.Sleep(50 * time.Millisecond)
		if err := s.RunCommand("echo AFTER_INT\n"); err != nil {
			t.Fatalf("RunCommand: %v", err)
		}
		if strings.Contains(s.Output(), "AFTER_INT") {
			return
		}
	}
	t.Fatalf("shell never returned to prompt; output %q", s.Output())
}

func TestEOFSignalEndsShell(t *testing.T) {
	s := spawnSession(t, Options{})
	if err := s.Signal(SignalEOF); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.Alive() && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
	if s.Alive() {
		t.Skip("shell ignored EOF (may require interactive ignoreeof off)")
	}
	if _, ok := s.ExitCode(); !ok {
		t.Error("exit code missing after EOF exit")
	}
}

func TestExitFlipsLiveness(t *testing.T) {
	s := spawnSession(t, Options{})
	if err := s.RunCommand("exit 7\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.Alive() && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
	if s.Alive() {
		t.Fatal("session alive after exit")
	}
	code, ok := s.ExitCode()
	if !ok {
		t.Fatal("exit code not recorded")
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}

	// Everything but Close degrades to a no-op.
	if err := s.RunCommand("echo nope\n"); err != nil {
		t.Errorf("RunCommand after exit: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close after exit: %v", err)
	}
}

func TestCloseTwiceOnLiveShell(t *testing.T) {
	s := spawnSession(t, Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWorkdirApplied(t *testing.T) {
	dir := t.TempDir()
	s := spawnSession(t, Options{Workdir: dir})
	if err := s.RunCommand("pwd\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	waitFor(t, s, dir, 5*time.Second)
}

func TestEnvApplied(t *testing.T) {
	s := spawnSession(t, Options{Env: []string{"OX_PTY_TEST_VAR=sentinel_value"}})
	if err := s.RunCommand("echo $OX_PTY_TEST_VAR\n"); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	waitFor(t, s, "sentinel_value", 5*time.Second)
}

func TestConPTYUnavailableOnPosix(t *testing.T) {
	if ConPTYAvailable() {
		t.Error("ConPTYAvailable reported true on a POSIX system")
	}
}
