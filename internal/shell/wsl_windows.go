//go:build windows

package shell

import (
	"os/exec"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// wslShells lists installed WSL distributions, one shell per distro.
// wsl.exe prints UTF-16LE; a missing or failing wsl.exe yields nothing.
func wslShells() []Shell {
	path, err := exec.LookPath("wsl.exe")
	if err != nil {
		return nil
	}
	out, err := exec.Command(path, "--list", "--quiet").Output()
	if err != nil {
		return nil
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(out)
	if err != nil {
		return nil
	}

	var shells []Shell
	for _, line := range strings.Split(string(decoded), "\n") {
		distro := strings.Trim(strings.TrimSpace(line), "\x00")
		if distro == "" {
			continue
		}
		shells = append(shells, Shell{
			Kind: Wsl,
			Path: path,
			Args: []string{"-d", distro},
			Name: "wsl:" + distro,
		})
	}
	return shells
}
