//go:build !windows

package pty

import (
	"os/exec"
	"syscall"

	"github.com/charmbracelet/x/xpty"
)

// setupChildTTY makes the PTY slave the child's controlling terminal.
// xpty.Start wires the slave to stdin, so Ctty 0 names it. Without this,
// job control in shells like fish misbehaves.
func setupChildTTY(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}
}

// setEcho toggles terminal echo on the fallback PTY's master.
func (b *fallbackBackend) setEcho(on bool) error {
	up, ok := b.pty.(*xpty.UnixPty)
	if !ok {
		return nil
	}
	return setEchoFd(int(up.Master().Fd()), on)
}
