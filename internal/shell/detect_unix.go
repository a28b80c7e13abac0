//go:build !windows

package shell

import (
	"os"
	"os/exec"
)

// probeOrder is the candidate search order when $SHELL gives no answer.
var probeOrder = []Kind{Bash, Zsh, Fish, Dash}

// kindBinary returns the PATH name for a shell kind, or "" when the kind
// does not exist on this platform.
func kindBinary(k Kind) string {
	switch k {
	case Bash:
		return "bash"
	case Dash:
		return "dash"
	case Zsh:
		return "zsh"
	case Fish:
		return "fish"
	}
	return ""
}

// kindArgs returns the default launch arguments for a shell kind. Unix
// shells become interactive on their own when attached to a PTY.
func kindArgs(Kind) []string {
	return nil
}

// lookKind resolves a kind to an executable on PATH.
func lookKind(k Kind) (Shell, error) {
	bin := kindBinary(k)
	if bin == "" {
		return Shell{}, ErrShellNotFound
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return Shell{}, ErrShellNotFound
	}
	return Shell{Kind: k, Path: path, Args: kindArgs(k), Name: k.String()}, nil
}

// Detect returns the user's shell. $SHELL wins when it points at a real
// binary; otherwise the candidates are probed in order, with /bin/sh as
// the last resort. Detect never fails.
func Detect() Shell {
	if env := os.Getenv("SHELL"); env != "" {
		if sh, err := fromPath(env); err == nil {
			return sh
		}
	}
	for _, k := range probeOrder {
		if sh, err := lookKind(k); err == nil {
			return sh
		}
	}
	return Shell{Kind: Custom, Path: "/bin/sh", Name: "sh"}
}

// Available returns every shell that resolves on this system, default
// first, in probe order, without duplicates.
func Available() []Shell {
	shells := []Shell{Detect()}
	for _, k := range probeOrder {
		if sh, err := lookKind(k); err == nil {
			shells = append(shells, sh)
		}
	}
	return dedupe(shells)
}
