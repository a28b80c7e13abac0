// Package config loads terminal settings from the editor's Lua
// configuration file (.oxrc). Loading is request-scoped: the file is
// evaluated on every call and nothing is cached, so hosts and tests own
// their caching policy.
package config

import (
	"errors"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// ErrConfig is returned when a configuration file exists but cannot be
// evaluated. Hosts log it and continue with defaults; a broken config
// never prevents opening a terminal.
var ErrConfig = errors.New("config load failed")

// Config holds the terminal section of the editor configuration.
type Config struct {
	// Shell is a selector: a kind name, a binary path, or empty for
	// auto-detection.
	Shell string

	// Args are extra arguments appended to the shell's defaults.
	Args []string

	Rows uint16
	Cols uint16

	// Workdir is the initial working directory for new sessions.
	Workdir string

	// Env holds extra KEY=VALUE entries for the child environment.
	Env []string
}

// Default returns the built-in configuration: auto-detect at 80x24.
func Default() Config {
	return Config{Rows: 24, Cols: 80}
}

// Load evaluates the Lua file at path and reads its global `terminal`
// table. A missing file or a missing table yields defaults with no error;
// a Lua runtime or syntax error yields defaults plus a wrapped ErrConfig.
//
// The recognized shape is:
//
//	terminal = {
//	    shell = "zsh",
//	    args = {"-l"},
//	    rows = 40,
//	    cols = 120,
//	    workdir = "/src",
//	    env = {"FOO=bar"},
//	}
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	L := lua.NewState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	tbl, ok := L.GetGlobal("terminal").(*lua.LTable)
	if !ok {
		return cfg, nil
	}

	if v, ok := tbl.RawGetString("shell").(lua.LString); ok {
		cfg.Shell = string(v)
	}
	if v, ok := tbl.RawGetString("rows").(lua.LNumber); ok && v > 0 {
		cfg.Rows = uint16(v)
	}
	if v, ok := tbl.RawGetString("cols").(lua.LNumber); ok && v > 0 {
		cfg.Cols = uint16(v)
	}
	if v, ok := tbl.RawGetString("workdir").(lua.LString); ok {
		cfg.Workdir = string(v)
	}
	if args, ok := tbl.RawGetString("args").(*lua.LTable); ok {
		args.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				cfg.Args = append(cfg.Args, string(s))
			}
		})
	}
	if env, ok := tbl.RawGetString("env").(*lua.LTable); ok {
		env.ForEach(func(k, v lua.LValue) {
			s, ok := v.(lua.LString)
			if !ok {
				return
			}
			// Both {"K=V"} arrays and {K = "V"} maps are accepted.
			if key, isKey := k.(lua.LString); isKey {
				cfg.Env = append(cfg.Env, string(key)+"="+string(s))
			} else {
				cfg.Env = append(cfg.Env, string(s))
			}
		})
	}
	return cfg, nil
}
