//go:build windows

package main

import (
	"time"

	"golang.org/x/term"

	"github.com/ktheindifferent/ox/internal/pty"
)

// watchResize polls the console size; Windows has no SIGWINCH equivalent
// a console app can subscribe to without reading input records.
func watchResize(session *pty.Session, fd int) {
	go func() {
		lastW, lastH, err := term.GetSize(fd)
		if err != nil {
			return
		}
		for {
			time.Sleep(time.Second)
			w, h, err := term.GetSize(fd)
			if err != nil {
				return
			}
			if w != lastW || h != lastH {
				lastW, lastH = w, h
				_ = session.Resize(uint16(h), uint16(w))
			}
		}
	}()
}
