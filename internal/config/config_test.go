package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".oxrc")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullTerminalTable(t *testing.T) {
	path := writeConfig(t, `
terminal = {
    shell = "zsh",
    args = {"-l", "--no-rcs"},
    rows = 40,
    cols = 120,
    workdir = "/src",
    env = {"FOO=bar", "BAZ=qux"},
}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Shell != "zsh" {
		t.Errorf("Shell = %q", cfg.Shell)
	}
	if len(cfg.Args) != 2 || cfg.Args[0] != "-l" || cfg.Args[1] != "--no-rcs" {
		t.Errorf("Args = %v", cfg.Args)
	}
	if cfg.Rows != 40 || cfg.Cols != 120 {
		t.Errorf("size = %dx%d, want 40x120", cfg.Rows, cfg.Cols)
	}
	if cfg.Workdir != "/src" {
		t.Errorf("Workdir = %q", cfg.Workdir)
	}
	if len(cfg.Env) != 2 || cfg.Env[0] != "FOO=bar" {
		t.Errorf("Env = %v", cfg.Env)
	}
}

func TestLoadEnvMapForm(t *testing.T) {
	path := writeConfig(t, `terminal = { env = { FOO = "bar" } }`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Env) != 1 || cfg.Env[0] != "FOO=bar" {
		t.Errorf("Env = %v, want [FOO=bar]", cfg.Env)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.oxrc"))
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if !reflect.DeepEqual(cfg, Config{Rows: 24, Cols: 80}) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("cfg = %+v, want Default()", cfg)
	}
}

func TestLoadMissingTableYieldsDefaults(t *testing.T) {
	path := writeConfig(t, `some_other_setting = true`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadBrokenLuaReported(t *testing.T) {
	path := writeConfig(t, `terminal = {`)
	cfg, err := Load(path)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("Load = %v, want ErrConfig", err)
	}
	// Defaults survive so the host can continue.
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("cfg = %+v, want defaults on error", cfg)
	}
}

func TestLoadRuntimeErrorReported(t *testing.T) {
	path := writeConfig(t, `error("boom")`)
	if _, err := Load(path); !errors.Is(err, ErrConfig) {
		t.Fatalf("Load = %v, want ErrConfig", err)
	}
}

func TestLoadIgnoresWrongTypes(t *testing.T) {
	path := writeConfig(t, `terminal = { rows = "forty", cols = -1, shell = 12 }`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rows != 24 || cfg.Cols != 80 || cfg.Shell != "" {
		t.Errorf("cfg = %+v, want defaults for mistyped fields", cfg)
	}
}
