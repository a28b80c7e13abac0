//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/ktheindifferent/ox/internal/pty"
)

// watchResize follows SIGWINCH on the host terminal and mirrors every
// geometry change into the session.
func watchResize(session *pty.Session, fd int) {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			if w, h, err := term.GetSize(fd); err == nil {
				_ = session.Resize(uint16(h), uint16(w))
			}
		}
	}()
}
