package pty

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/ktheindifferent/ox/internal/shell"
)

// luaModule exposes manager-backed terminal operations to scripts.
type luaModule struct {
	m *Manager
}

// RegisterLua installs the ox.terminal module into a Lua state. Scripts
// address sessions by the IDs the manager hands out; failures surface
// Lua-style as (nil, message) pairs rather than raised errors.
func RegisterLua(L *lua.LState, m *Manager) {
	api := &luaModule{m: m}

	mod := L.NewTable()
	L.SetField(mod, "open", L.NewFunction(api.open))
	L.SetField(mod, "run", L.NewFunction(api.run))
	L.SetField(mod, "silent_run", L.NewFunction(api.silentRun))
	L.SetField(mod, "char", L.NewFunction(api.char))
	L.SetField(mod, "char_pop", L.NewFunction(api.charPop))
	L.SetField(mod, "output", L.NewFunction(api.output))
	L.SetField(mod, "try_read", L.NewFunction(api.tryRead))
	L.SetField(mod, "clear", L.NewFunction(api.clear))
	L.SetField(mod, "resize", L.NewFunction(api.resize))
	L.SetField(mod, "signal", L.NewFunction(api.signal))
	L.SetField(mod, "alive", L.NewFunction(api.alive))
	L.SetField(mod, "backend", L.NewFunction(api.backend))
	L.SetField(mod, "pid", L.NewFunction(api.pid))
	L.SetField(mod, "close", L.NewFunction(api.close))
	L.SetField(mod, "list", L.NewFunction(api.list))
	L.SetField(mod, "shells", L.NewFunction(api.shells))
	L.SetField(mod, "detect", L.NewFunction(api.detect))
	L.SetField(mod, "conpty_available", L.NewFunction(api.conptyAvailable))

	ox, ok := L.GetGlobal("ox").(*lua.LTable)
	if !ok {
		ox = L.NewTable()
		L.SetGlobal("ox", ox)
	}
	L.SetField(ox, "terminal", mod)
}

// ShellToLua converts a resolved shell to a Lua table with kind, path,
// args, and name fields.
func ShellToLua(L *lua.LState, sh shell.Shell) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "kind", lua.LString(sh.Kind.String()))
	L.SetField(tbl, "path", lua.LString(sh.Path))
	L.SetField(tbl, "name", lua.LString(sh.Name))
	args := L.NewTable()
	for _, a := range sh.Args {
		args.Append(lua.LString(a))
	}
	L.SetField(tbl, "args", args)
	return tbl
}

// ShellFromLua reads a shell table back into a shell.Shell. Unknown kind
// names yield Custom, mirroring Resolve's handling of bare paths.
func ShellFromLua(tbl *lua.LTable) shell.Shell {
	sh := shell.Shell{Kind: shell.Custom}
	if v, ok := tbl.RawGetString("kind").(lua.LString); ok {
		if k, known := shell.KindByName(string(v)); known {
			sh.Kind = k
		}
	}
	if v, ok := tbl.RawGetString("path").(lua.LString); ok {
		sh.Path = string(v)
	}
	if v, ok := tbl.RawGetString("name").(lua.LString); ok {
		sh.Name = string(v)
	}
	if args, ok := tbl.RawGetString("args").(*lua.LTable); ok {
		args.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				sh.Args = append(sh.Args, string(s))
			}
		})
	}
	return sh
}

// session looks up the session for the ID in the first argument, pushing
// a (nil, message) pair when it is gone.
func (api *luaModule) session(L *lua.LState) (*Session, bool) {
	id := L.CheckString(1)
	s, ok := api.m.Get(id)
	if !ok {
		L.Push(lua.LNil)
		L.Push(lua.LString(ErrSessionNotFound.Error()))
		return nil, false
	}
	return s, true
}

// pushErr pushes a (nil, message) failure pair.
func pushErr(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// open(opts?) -> id | nil, err
// opts: {shell=, args={}, rows=, cols=, workdir=, env={}}
func (api *luaModule) open(L *lua.LState) int {
	var opts Options
	if tbl := L.OptTable(1, nil); tbl != nil {
		if v, ok := tbl.RawGetString("shell").(lua.LString); ok {
			opts.Shell = string(v)
		}
		if v, ok := tbl.RawGetString("rows").(lua.LNumber); ok {
			opts.Rows = uint16(v)
		}
		if v, ok := tbl.RawGetString("cols").(lua.LNumber); ok {
			opts.Cols = uint16(v)
		}
		if v, ok := tbl.RawGetString("workdir").(lua.LString); ok {
			opts.Workdir = string(v)
		}
		if args, ok := tbl.RawGetString("args").(*lua.LTable); ok {
			args.ForEach(func(_, v lua.LValue) {
				if s, ok := v.(lua.LString); ok {
					opts.Args = append(opts.Args, string(s))
				}
			})
		}
		if env, ok := tbl.RawGetString("env").(*lua.LTable); ok {
			env.ForEach(func(_, v lua.LValue) {
				if s, ok := v.(lua.LString); ok {
					opts.Env = append(opts.Env, string(s))
				}
			})
		}
	}

	_, id, err := api.m.Create(opts)
	if err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LString(id))
	return 1
}

// run(id, text) -> true | nil, err
func (api *luaModule) run(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	if err := s.RunCommand(L.CheckString(2)); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// silent_run(id, text) -> true | nil, err
func (api *luaModule) silentRun(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	if err := s.SilentRunCommand(L.CheckString(2)); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// char(id, s) -> true | nil, err; each rune is fed as one keystroke
func (api *luaModule) char(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	for _, c := range L.CheckString(2) {
		if err := s.CharInput(c); err != nil {
			return pushErr(L, err)
		}
	}
	L.Push(lua.LTrue)
	return 1
}

// char_pop(id) -> true | nil, err
func (api *luaModule) charPop(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	if err := s.CharPop(); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// output(id) -> string | nil, err
func (api *luaModule) output(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	L.Push(lua.LString(s.Output()))
	return 1
}

// try_read(id) -> string | nil, err; empty string means no new output
func (api *luaModule) tryRead(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	L.Push(lua.LString(s.TryRead()))
	return 1
}

// clear(id) -> true | nil, err
func (api *luaModule) clear(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	if err := s.Clear(); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// resize(id, rows, cols) -> true | nil, err
func (api *luaModule) resize(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	if err := s.Resize(uint16(L.CheckInt(2)), uint16(L.CheckInt(3))); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// signal(id, name) -> true | nil, err; name is interrupt|break|suspend|eof
func (api *luaModule) signal(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	sig, ok := ParseSignal(L.CheckString(2))
	if !ok {
		return pushErr(L, ErrSignalUnsupported)
	}
	if err := s.Signal(sig); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// alive(id) -> bool | nil, err
func (api *luaModule) alive(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	L.Push(lua.LBool(s.Alive()))
	return 1
}

// backend(id) -> string | nil, err
func (api *luaModule) backend(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	L.Push(lua.LString(s.BackendKind()))
	return 1
}

// pid(id) -> number | nil, err
func (api *luaModule) pid(L *lua.LState) int {
	s, ok := api.session(L)
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(s.Pid()))
	return 1
}

// close(id) -> true | nil, err
func (api *luaModule) close(L *lua.LState) int {
	id := L.CheckString(1)
	if err := api.m.Close(id); err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// list() -> table of session ids
func (api *luaModule) list(L *lua.LState) int {
	tbl := L.NewTable()
	for _, id := range api.m.List() {
		tbl.Append(lua.LString(id))
	}
	L.Push(tbl)
	return 1
}

// shells() -> table of shell tables, default first
func (api *luaModule) shells(L *lua.LState) int {
	tbl := L.NewTable()
	for _, sh := range shell.Available() {
		tbl.Append(ShellToLua(L, sh))
	}
	L.Push(tbl)
	return 1
}

// detect() -> shell table for the platform default
func (api *luaModule) detect(L *lua.LState) int {
	L.Push(ShellToLua(L, shell.Detect()))
	return 1
}

// conpty_available() -> bool
func (api *luaModule) conptyAvailable(L *lua.LState) int {
	L.Push(lua.LBool(ConPTYAvailable()))
	return 1
}
