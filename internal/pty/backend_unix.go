//go:build !windows

package pty

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// newBackend selects the platform backend for a new session. On POSIX the
// native PTY is always present; the fallback is only used when forced.
func newBackend(cfg spawnConfig) (backend, error) {
	if forceFallback() {
		return newFallbackBackend(cfg)
	}
	return newUnixBackend(cfg)
}

// ConPTYAvailable reports whether the Windows pseudo-console API exists.
// Always false on POSIX systems; exposed so diagnostics and the scripting
// layer can report the backend choice uniformly across platforms.
func ConPTYAvailable() bool {
	return false
}

// unixBackend drives a child shell through a POSIX PTY master.
type unixBackend struct {
	master *os.File
	cmd    *exec.Cmd

	exited   chan struct{}
	exitCode atomic.Int32
	done     atomic.Bool

	closeOnce sync.Once
}

// newUnixBackend allocates a PTY pair and starts the shell on the slave as
// its controlling terminal. creack/pty owns the ptmx/unlock/setsid dance.
func newUnixBackend(cfg spawnConfig) (*unixBackend, error) {
	cmd := exec.Command(cfg.path, cfg.args...)
	cmd.Dir = cfg.dir
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, cfg.env...)
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: cfg.rows, Cols: cfg.cols})
	if err != nil {
		return nil, newError("spawn", ErrSpawnFailed, err)
	}

	b := &unixBackend{
		master: master,
		cmd:    cmd,
		exited: make(chan struct{}),
	}
	b.exitCode.Store(-1)
	go b.wait()
	return b, nil
}

// wait reaps the child and records its exit, unblocking Close and flipping
// liveness for everyone else.
func (b *unixBackend) wait() {
	err := b.cmd.Wait()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if b.cmd.ProcessState != nil {
		code = b.cmd.ProcessState.ExitCode()
	}
	b.exitCode.Store(int32(code))
	b.done.Store(true)
	close(b.exited)
}

// Read blocks on the master. EIO after the last slave descriptor closes is
// how Linux reports PTY hangup; both it and a closed master mean transport
// end, not failure.
func (b *unixBackend) Read(p []byte) (int, error) {
	n, err := b.master.Read(p)
	if err != nil {
		if errors.Is(err, unix.EIO) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, err
	}
	return n, nil
}

// Write sends input bytes to the child's terminal.
func (b *unixBackend) Write(p []byte) (int, error) {
	n, err := b.master.Write(p)
	if err != nil {
		return n, newError("write", ErrBrokenPipe, err)
	}
	return n, nil
}

// Resize issues the window-size ioctl on the master. The kernel raises
// SIGWINCH in the child on success.
func (b *unixBackend) Resize(rows, cols uint16) error {
	if err := pty.Setsize(b.master, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return newError("resize", ErrResizeFailed, err)
	}
	return nil
}

// Signal injects the line-discipline control byte for sig. The tty routes
// the resulting POSIX signal to the foreground process group, so a running
// job is interrupted rather than the shell itself. EOF is a control byte
// by definition, never a signal.
func (b *unixBackend) Signal(sig Signal) error {
	var c byte
	switch sig {
	case SignalInterrupt:
		c = ctrlC
	case SignalBreak:
		c = ctrlSlash
	case SignalSuspend:
		c = ctrlZ
	case SignalEOF:
		c = ctrlD
	default:
		return newError("signal", ErrSignalUnsupported, nil)
	}
	if _, err := b.master.Write([]byte{c}); err != nil {
		return newError("signal", ErrBrokenPipe, err)
	}
	return nil
}

// Alive reports whether the child is still running.
func (b *unixBackend) Alive() bool {
	return !b.done.Load()
}

// Pid returns the child process ID.
func (b *unixBackend) Pid() int {
	if b.cmd.Process == nil {
		return -1
	}
	return b.cmd.Process.Pid
}

// ExitCode returns the child's exit code once it has exited.
func (b *unixBackend) ExitCode() (int, bool) {
	if !b.done.Load() {
		return 0, false
	}
	return int(b.exitCode.Load()), true
}

// Kind identifies the backend for diagnostics.
func (b *unixBackend) Kind() string {
	return "unix"
}

// setEcho toggles terminal echo on the master so the host controls whether
// typed input is reflected in the output stream.
func (b *unixBackend) setEcho(on bool) error {
	return setEchoFd(int(b.master.Fd()), on)
}

// Close tears the session down: hang up the child, give it a short grace
// period, kill it if it lingers, then close the master. Safe to call more
// than once and safe on a child that already exited; the reap goroutine
// has the only Wait call, so there is no double-reap.
func (b *unixBackend) Close() error {
	b.closeOnce.Do(func() {
		if b.cmd.Process != nil && !b.done.Load() {
			_ = b.cmd.Process.Signal(syscall.SIGHUP)
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
		_ = b.master.Close()
	})
	return nil
}

// setEchoFd flips the ECHO bit in the terminal's local flags.
func setEchoFd(fd int, on bool) error {
	tio, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}
	if on {
		tio.Lflag |= unix.ECHO
	} else {
		tio.Lflag &^= unix.ECHO
	}
	return unix.IoctlSetTermios(fd, ioctlSetTermios, tio)
}
