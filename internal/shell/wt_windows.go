//go:build windows

package shell

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// windowsTerminalShells reads the user's Windows Terminal profiles and
// offers every profile whose command line points at a real binary. Parse
// problems skip the source; profile discovery is best effort.
func windowsTerminalShells() []Shell {
	path := windowsTerminalSettings()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	list := gjson.GetBytes(data, "profiles.list")
	if !list.IsArray() {
		// Older settings files hold the profiles array directly.
		list = gjson.GetBytes(data, "profiles")
	}
	if !list.IsArray() {
		return nil
	}

	var shells []Shell
	for _, profile := range list.Array() {
		if profile.Get("hidden").Bool() {
			continue
		}
		cmdline := profile.Get("commandline").String()
		if cmdline == "" {
			continue
		}
		bin, args := splitCommandline(expandPercent(cmdline))
		if bin == "" {
			continue
		}
		resolved, err := fromPath(bin)
		if err != nil {
			continue
		}
		name := profile.Get("name").String()
		if name == "" {
			name = resolved.Name
		}
		shells = append(shells, Shell{
			Kind: Custom,
			Path: resolved.Path,
			Args: args,
			Name: name,
		})
	}
	return shells
}

// windowsTerminalSettings locates settings.json under the Windows
// Terminal package directory, or returns "".
func windowsTerminalSettings() string {
	local := os.Getenv("LocalAppData")
	if local == "" {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(local, "Packages", "Microsoft.WindowsTerminal_*", "LocalState", "settings.json"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// splitCommandline separates the binary from its arguments, honoring a
// leading double-quoted path.
func splitCommandline(cmdline string) (string, []string) {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return "", nil
	}
	if cmdline[0] == '"' {
		end := strings.IndexByte(cmdline[1:], '"')
		if end < 0 {
			return "", nil
		}
		bin := cmdline[1 : 1+end]
		rest := strings.Fields(cmdline[end+2:])
		return bin, rest
	}
	fields := strings.Fields(cmdline)
	return fields[0], fields[1:]
}

// expandPercent substitutes %NAME% environment references, leaving unset
// names untouched.
func expandPercent(s string) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '%')
		if i < 0 {
			b.WriteString(s)
			break
		}
		j := strings.IndexByte(s[i+1:], '%')
		if j < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		name := s[i+1 : i+1+j]
		if v := os.Getenv(name); v != "" {
			b.WriteString(v)
		} else {
			b.WriteString("%" + name + "%")
		}
		s = s[i+j+2:]
	}
	return b.String()
}
