package pty

import "golang.org/x/sys/unix"

// Darwin termios ioctl request numbers.
const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)
