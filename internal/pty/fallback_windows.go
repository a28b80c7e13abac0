//go:build windows

package pty

import "os/exec"

// setupChildTTY is a no-op on Windows; the pseudo-console attachment is
// the controlling-terminal equivalent and xpty handles it.
func setupChildTTY(*exec.Cmd) {}
