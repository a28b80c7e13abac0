//go:build windows

package shell

import (
	"os"
	"os/exec"
	"path/filepath"
)

// probeOrder prefers PowerShell Core, then Windows PowerShell, then cmd.
var probeOrder = []Kind{PowerShellCore, PowerShell, Cmd}

// kindBinary returns the PATH name for a shell kind, or "" when the kind
// does not exist on this platform.
func kindBinary(k Kind) string {
	switch k {
	case PowerShellCore:
		return "pwsh.exe"
	case PowerShell:
		return "powershell.exe"
	case Cmd:
		return "cmd.exe"
	case Wsl:
		return "wsl.exe"
	}
	return ""
}

// kindArgs returns the default launch arguments for a shell kind.
func kindArgs(k Kind) []string {
	switch k {
	case PowerShellCore, PowerShell:
		return []string{"-NoLogo"}
	}
	return nil
}

// lookKind resolves a kind to an executable on PATH. Cmd always resolves:
// COMSPEC or the system32 interpreter exists on every Windows install.
func lookKind(k Kind) (Shell, error) {
	bin := kindBinary(k)
	if bin == "" {
		return Shell{}, ErrShellNotFound
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		if k == Cmd {
			return cmdShell(), nil
		}
		return Shell{}, ErrShellNotFound
	}
	return Shell{Kind: k, Path: path, Args: kindArgs(k), Name: k.String()}, nil
}

// cmdShell builds the cmd.exe shell from COMSPEC or the well-known
// system32 location.
func cmdShell() Shell {
	path := os.Getenv("COMSPEC")
	if path == "" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		path = filepath.Join(root, "System32", "cmd.exe")
	}
	return Shell{Kind: Cmd, Path: path, Name: Cmd.String()}
}

// Detect returns the best installed shell. PowerShell variants are
// preferred; cmd.exe is the guaranteed fallback so detection never fails.
func Detect() Shell {
	for _, k := range probeOrder {
		if sh, err := lookKind(k); err == nil {
			return sh
		}
	}
	return cmdShell()
}

// Available returns every shell that resolves on this system: the PATH
// candidates, WSL distributions, Git Bash from its well-known install
// locations, and Windows Terminal profiles. Default first, no duplicates.
func Available() []Shell {
	shells := []Shell{Detect()}
	for _, k := range probeOrder {
		if sh, err := lookKind(k); err == nil {
			shells = append(shells, sh)
		}
	}
	shells = append(shells, wslShells()...)
	shells = append(shells, gitBashShells()...)
	shells = append(shells, windowsTerminalShells()...)
	return dedupe(shells)
}

// gitBashShells probes the usual Git for Windows install locations.
func gitBashShells() []Shell {
	candidates := []string{
		filepath.Join(os.Getenv("ProgramFiles"), "Git", "bin", "bash.exe"),
		filepath.Join(os.Getenv("ProgramFiles(x86)"), "Git", "bin", "bash.exe"),
		filepath.Join(os.Getenv("LocalAppData"), "Programs", "Git", "bin", "bash.exe"),
	}
	var shells []Shell
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		shells = append(shells, Shell{Kind: GitBash, Path: path, Name: GitBash.String()})
	}
	return shells
}
