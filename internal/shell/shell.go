// Package shell identifies and probes the interactive shells a terminal
// session can run. It holds no process state; every lookup consults the
// environment and PATH at call time.
package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrShellNotFound is returned when a requested shell cannot be resolved
// to an executable.
var ErrShellNotFound = errors.New("shell not found")

// Kind identifies a family of shells with shared launch and echo behavior.
type Kind int

const (
	// Custom is a user-specified or unrecognized shell binary.
	Custom Kind = iota
	// Dash is the Debian Almquist shell.
	Dash
	// Bash is the GNU Bourne-again shell.
	Bash
	// Zsh is the Z shell.
	Zsh
	// Fish is the friendly interactive shell.
	Fish
	// Cmd is the Windows command interpreter.
	Cmd
	// PowerShell is Windows PowerShell 5.x.
	PowerShell
	// PowerShellCore is cross-platform PowerShell 6+ (pwsh).
	PowerShellCore
	// Wsl is a Windows Subsystem for Linux distribution.
	Wsl
	// GitBash is the bash shipped with Git for Windows.
	GitBash
)

// String returns the canonical name of the shell kind.
func (k Kind) String() string {
	switch k {
	case Dash:
		return "dash"
	case Bash:
		return "bash"
	case Zsh:
		return "zsh"
	case Fish:
		return "fish"
	case Cmd:
		return "cmd"
	case PowerShell:
		return "powershell"
	case PowerShellCore:
		return "pwsh"
	case Wsl:
		return "wsl"
	case GitBash:
		return "gitbash"
	default:
		return "custom"
	}
}

// KindByName maps a canonical name back to a Kind.
func KindByName(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "dash":
		return Dash, true
	case "bash":
		return Bash, true
	case "zsh":
		return Zsh, true
	case "fish":
		return Fish, true
	case "cmd", "cmd.exe":
		return Cmd, true
	case "powershell":
		return PowerShell, true
	case "pwsh":
		return PowerShellCore, true
	case "wsl":
		return Wsl, true
	case "gitbash", "git-bash":
		return GitBash, true
	}
	return Custom, false
}

// Shell is a resolved shell: an executable path plus the arguments that
// start it in interactive mode.
type Shell struct {
	Kind Kind
	Path string
	Args []string
	Name string
}

// Command returns the spawn path and a copy of the launch arguments.
func (s Shell) Command() (string, []string) {
	args := make([]string, len(s.Args))
	copy(args, s.Args)
	return s.Path, args
}

// ManualInputEcho reports whether the shell stays silent about typed input
// once terminal echo is disabled. Such shells need the host to echo the
// command text itself. Unrecognized Unix shells are assumed to behave like
// bash.
func (s Shell) ManualInputEcho() bool {
	switch s.Kind {
	case Bash, Dash:
		return true
	case Custom:
		return runtime.GOOS != "windows"
	}
	return false
}

// InsertsExtraNewline reports whether the shell's line editor emits the
// bracketed-paste reset artifact that splices a spurious newline into
// command output. Zsh is the only known Unix shell that does not.
func (s Shell) InsertsExtraNewline() bool {
	switch s.Kind {
	case Bash, Dash, Fish:
		return true
	case Custom:
		return runtime.GOOS != "windows"
	}
	return false
}

// Resolve maps a selector to a Shell. The selector is either a canonical
// kind name ("zsh", "pwsh") or a path to a shell binary. An empty selector
// resolves to the platform default.
func Resolve(selector string) (Shell, error) {
	if selector == "" {
		return Detect(), nil
	}
	if k, ok := KindByName(selector); ok {
		sh, err := lookKind(k)
		if err != nil {
			return Shell{}, fmt.Errorf("%w: %s", ErrShellNotFound, selector)
		}
		return sh, nil
	}
	sh, err := fromPath(selector)
	if err != nil {
		return Shell{}, fmt.Errorf("%w: %s", ErrShellNotFound, selector)
	}
	return sh, nil
}

// fromPath resolves an explicit binary reference. Bare names are looked up
// on PATH; paths must exist. The kind is inferred from the basename so the
// echo quirks of known shells still apply.
func fromPath(p string) (Shell, error) {
	resolved := p
	if strings.ContainsRune(p, os.PathSeparator) || filepath.IsAbs(p) {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return Shell{}, fmt.Errorf("%w: %s", ErrShellNotFound, p)
		}
	} else {
		path, err := exec.LookPath(p)
		if err != nil {
			return Shell{}, fmt.Errorf("%w: %s", ErrShellNotFound, p)
		}
		resolved = path
	}

	base := strings.TrimSuffix(strings.ToLower(filepath.Base(resolved)), ".exe")
	kind, known := KindByName(base)
	sh := Shell{Kind: Custom, Path: resolved, Name: base}
	if known {
		sh.Kind = kind
		sh.Args = kindArgs(kind)
		sh.Name = kind.String()
	}
	return sh, nil
}

// dedupe removes shells whose executable path was already seen, keeping
// the first occurrence.
func dedupe(shells []Shell) []Shell {
	seen := make(map[string]bool, len(shells))
	out := shells[:0]
	for _, sh := range shells {
		key := sh.Path + "\x00" + strings.Join(sh.Args, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sh)
	}
	return out
}
