package pty

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/x/xpty"
)

// fallbackBackend is the portable PTY implementation, used on Windows
// builds that predate ConPTY and whenever fallback selection is forced.
// xpty wraps a POSIX PTY on Unix and a library ConPTY shim on Windows, so
// the session-facing behavior matches the native backends; only Kind
// tells them apart.
type fallbackBackend struct {
	pty xpty.Pty
	cmd *exec.Cmd

	exited   chan struct{}
	exitCode atomic.Int32
	done     atomic.Bool

	closeOnce sync.Once
}

// newFallbackBackend opens a portable PTY of the requested size and starts
// the shell on it.
func newFallbackBackend(cfg spawnConfig) (*fallbackBackend, error) {
	p, err := xpty.NewPty(int(cfg.cols), int(cfg.rows))
	if err != nil {
		return nil, newError("spawn", ErrSpawnFailed, err)
	}

	cmd := exec.Command(cfg.path, cfg.args...)
	cmd.Dir = cfg.dir
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, cfg.env...)
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	setupChildTTY(cmd)

	if err := p.Start(cmd); err != nil {
		_ = p.Close()
		return nil, newError("spawn", ErrSpawnFailed, err)
	}

	b := &fallbackBackend{
		pty:    p,
		cmd:    cmd,
		exited: make(chan struct{}),
	}
	b.exitCode.Store(-1)
	go b.wait()
	return b, nil
}

// wait reaps the child and records its exit. xpty owns the
// platform-correct wait; cmd.Wait alone does not work for its Windows
// ConPTY processes.
func (b *fallbackBackend) wait() {
	err := xpty.WaitProcess(context.Background(), b.cmd)
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	b.exitCode.Store(int32(code))
	b.done.Store(true)
	close(b.exited)
}

// Read blocks on the PTY until data arrives or the transport ends.
func (b *fallbackBackend) Read(p []byte) (int, error) {
	return b.pty.Read(p)
}

// Write sends input bytes to the child's terminal.
func (b *fallbackBackend) Write(p []byte) (int, error) {
	n, err := b.pty.Write(p)
	if err != nil {
		return n, newError("write", ErrBrokenPipe, err)
	}
	return n, nil
}

// Resize changes the PTY dimensions.
func (b *fallbackBackend) Resize(rows, cols uint16) error {
	if err := b.pty.Resize(int(cols), int(rows)); err != nil {
		return newError("resize", ErrResizeFailed, err)
	}
	return nil
}

// Signal injects the matching control byte into the PTY input; the
// terminal layer underneath routes it exactly as the native backends do.
// Suspend does not exist on Windows.
func (b *fallbackBackend) Signal(sig Signal) error {
	var c byte
	switch sig {
	case SignalInterrupt:
		c = ctrlC
	case SignalBreak:
		c = ctrlSlash
	case SignalSuspend:
		if runtime.GOOS == "windows" {
			return newError("signal", ErrSignalUnsupported, nil)
		}
		c = ctrlZ
	case SignalEOF:
		c = ctrlD
	default:
		return newError("signal", ErrSignalUnsupported, nil)
	}
	_, err := b.Write([]byte{c})
	return err
}

// Alive reports whether the child is still running.
func (b *fallbackBackend) Alive() bool {
	return !b.done.Load()
}

// Pid returns the child process ID.
func (b *fallbackBackend) Pid() int {
	if b.cmd.Process == nil {
		return -1
	}
	return b.cmd.Process.Pid
}

// ExitCode returns the child's exit code once it has exited.
func (b *fallbackBackend) ExitCode() (int, bool) {
	if !b.done.Load() {
		return 0, false
	}
	return int(b.exitCode.Load()), true
}

// Kind identifies the backend for diagnostics.
func (b *fallbackBackend) Kind() string {
	return "fallback"
}

// Close hangs up the PTY, which both stops the child's terminal and
// unblocks the reader, then force-kills the child if it outlives the
// grace period. Idempotent.
func (b *fallbackBackend) Close() error {
	b.closeOnce.Do(func() {
		_ = b.pty.Close()
		if b.cmd.Process != nil && !b.done.Load() {
			select {
			case <-b.exited:
			case <-time.After(terminateGrace):
				_ = b.cmd.Process.Kill()
				select {
				case <-b.exited:
				case <-time.After(killWait):
				}
			}
		}
	})
	return nil
}
