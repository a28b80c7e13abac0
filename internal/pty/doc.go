// Package pty spawns interactive shells inside pseudo-terminals and moves
// bytes between them and the editor.
//
// A Session is the only type hosts touch: it resolves a shell, picks a
// platform backend (POSIX PTY, native ConPTY, or a portable fallback when
// ConPTY is missing), runs one background reader goroutine that accumulates
// decoded output, and guarantees that Close releases every process handle,
// pipe, and goroutine on any exit path. The Manager tracks one Session per
// terminal pane. The package never interprets escape sequences; output is
// delivered verbatim for the renderer to handle.
package pty
