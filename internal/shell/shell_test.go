package shell

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Bash, "bash"},
		{Dash, "dash"},
		{Zsh, "zsh"},
		{Fish, "fish"},
		{Cmd, "cmd"},
		{PowerShell, "powershell"},
		{PowerShellCore, "pwsh"},
		{Wsl, "wsl"},
		{GitBash, "gitbash"},
		{Custom, "custom"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindByName(t *testing.T) {
	for _, k := range []Kind{Dash, Bash, Zsh, Fish, Cmd, PowerShell, PowerShellCore, Wsl, GitBash} {
		got, ok := KindByName(k.String())
		if !ok || got != k {
			t.Errorf("KindByName(%q) = %v, %v; want %v, true", k.String(), got, ok, k)
		}
	}

	if _, ok := KindByName("not-a-shell"); ok {
		t.Error("KindByName accepted an unknown name")
	}
	if k, ok := KindByName("PWSH"); !ok || k != PowerShellCore {
		t.Errorf("KindByName is not case-insensitive: got %v, %v", k, ok)
	}
}

func TestManualInputEcho(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{Bash, true},
		{Dash, true},
		{Zsh, false},
		{Fish, false},
		{Cmd, false},
		{PowerShell, false},
		{PowerShellCore, false},
		{Wsl, false},
	}

	for _, tt := range tests {
		sh := Shell{Kind: tt.kind}
		if got := sh.ManualInputEcho(); got != tt.want {
			t.Errorf("%v.ManualInputEcho() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestInsertsExtraNewline(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{Bash, true},
		{Dash, true},
		{Fish, true},
		{Zsh, false},
		{Cmd, false},
		{PowerShell, false},
		{PowerShellCore, false},
	}

	for _, tt := range tests {
		sh := Shell{Kind: tt.kind}
		if got := sh.InsertsExtraNewline(); got != tt.want {
			t.Errorf("%v.InsertsExtraNewline() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestDetectNeverEmpty(t *testing.T) {
	sh := Detect()
	if sh.Path == "" {
		t.Fatal("Detect returned a shell with no path")
	}
	if sh.Name == "" {
		t.Error("Detect returned a shell with no name")
	}
}

func TestDetectHonorsShellEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("$SHELL detection is Unix-only")
	}
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skipf("bash not installed: %v", err)
	}

	t.Setenv("SHELL", bash)
	sh := Detect()
	if sh.Kind != Bash {
		t.Errorf("Detect() kind = %v, want Bash", sh.Kind)
	}
	if sh.Path != bash {
		t.Errorf("Detect() path = %q, want %q", sh.Path, bash)
	}
}

func TestDetectIgnoresBogusShellEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("$SHELL detection is Unix-only")
	}

	t.Setenv("SHELL", "/nonexistent/not-a-shell")
	sh := Detect()
	if sh.Path == "/nonexistent/not-a-shell" {
		t.Error("Detect trusted a $SHELL that does not exist")
	}
	if sh.Path == "" {
		t.Error("Detect fell through to an empty shell")
	}
}

func TestResolveEmptySelector(t *testing.T) {
	sh, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") error: %v", err)
	}
	if sh.Path == "" {
		t.Error("Resolve(\"\") returned empty path")
	}
}

func TestResolveByName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("probes Unix shell names")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skipf("bash not installed: %v", err)
	}

	sh, err := Resolve("bash")
	if err != nil {
		t.Fatalf("Resolve(\"bash\") error: %v", err)
	}
	if sh.Kind != Bash {
		t.Errorf("kind = %v, want Bash", sh.Kind)
	}
}

func TestResolveByPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a Unix path")
	}

	sh, err := Resolve("/bin/sh")
	if err != nil {
		t.Skipf("/bin/sh not present: %v", err)
	}
	if sh.Path != "/bin/sh" {
		t.Errorf("path = %q, want /bin/sh", sh.Path)
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("definitely-not-a-shell-binary-xyz")
	if err == nil {
		t.Fatal("Resolve accepted an unknown selector")
	}
	if !errors.Is(err, ErrShellNotFound) {
		t.Errorf("error %v does not wrap ErrShellNotFound", err)
	}
}

func TestAvailableStartsWithDefault(t *testing.T) {
	avail := Available()
	if len(avail) == 0 {
		t.Fatal("Available returned nothing")
	}
	def := Detect()
	if avail[0].Path != def.Path {
		t.Errorf("Available()[0].Path = %q, want default %q", avail[0].Path, def.Path)
	}

	seen := make(map[string]bool)
	for _, sh := range avail {
		key := sh.Path + "\x00" + strings.Join(sh.Args, "\x00")
		if seen[key] {
			t.Errorf("duplicate shell in Available: %q", sh.Path)
		}
		seen[key] = true
	}
}

func TestCommandCopiesArgs(t *testing.T) {
	sh := Shell{Kind: Wsl, Path: "wsl.exe", Args: []string{"-d", "Ubuntu"}}
	_, args := sh.Command()
	args[0] = "mutated"
	if sh.Args[0] != "-d" {
		t.Error("Command leaked its argument slice")
	}
}

func TestDedupe(t *testing.T) {
	shells := []Shell{
		{Kind: Bash, Path: "/bin/bash"},
		{Kind: Bash, Path: "/bin/bash"},
		{Kind: Custom, Path: "/bin/bash", Args: []string{"-l"}},
		{Kind: Zsh, Path: "/bin/zsh"},
	}
	got := dedupe(shells)
	if len(got) != 3 {
		t.Fatalf("dedupe kept %d shells, want 3", len(got))
	}
	if got[0].Path != "/bin/bash" || got[1].Args == nil || got[2].Path != "/bin/zsh" {
		t.Errorf("dedupe reordered entries: %+v", got)
	}
}
