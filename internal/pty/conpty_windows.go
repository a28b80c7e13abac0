//go:build windows

package pty

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procCreatePseudoConsole = kernel32.NewProc("CreatePseudoConsole")
	procResizePseudoConsole = kernel32.NewProc("ResizePseudoConsole")
	procClosePseudoConsole  = kernel32.NewProc("ClosePseudoConsole")
	procPeekNamedPipe       = kernel32.NewProc("PeekNamedPipe")
)

const procThreadAttributePseudoConsole = 0x00020016

var conptyProbe = sync.OnceValue(func() bool {
	return procCreatePseudoConsole.Find() == nil
})

// ConPTYAvailable reports whether the native pseudo-console API exists on
// this system. It is absent before Windows 10 1809; absence is not an
// error, it routes session creation to the fallback backend.
func ConPTYAvailable() bool {
	return conptyProbe()
}

// newBackend selects the platform backend for a new session: native ConPTY
// when the API exists, the portable fallback otherwise or when forced.
func newBackend(cfg spawnConfig) (backend, error) {
	if !forceFallback() && ConPTYAvailable() {
		return newConptyBackend(cfg)
	}
	return newFallbackBackend(cfg)
}

// conptyBackend drives a child shell through a Windows pseudo-console.
// Pipe I/O goes through raw handles rather than os.File so the Go
// runtime's async I/O layer never holds the anonymous pipe handles.
type conptyBackend struct {
	hpc     uintptr
	pipeIn  windows.Handle // write end, child stdin
	pipeOut windows.Handle // read end, child stdout
	process windows.Handle
	pid     uint32

	exited   chan struct{}
	exitCode atomic.Int32
	done     atomic.Bool

	stop      chan struct{}
	closeOnce sync.Once
}

func makeCoord(cols, rows uint16) uintptr {
	return uintptr(cols) | uintptr(rows)<<16
}

// newConptyBackend creates the pipe pairs, binds a pseudo-console to them,
// and starts the shell attached to it. Every partial-acquisition failure
// path releases exactly the handles acquired so far.
func newConptyBackend(cfg spawnConfig) (*conptyBackend, error) {
	var inRead, inWrite, outRead, outWrite windows.Handle
	if err := windows.CreatePipe(&inRead, &inWrite, nil, 0); err != nil {
		return nil, newError("spawn", ErrSpawnFailed, err)
	}
	if err := windows.CreatePipe(&outRead, &outWrite, nil, 0); err != nil {
		windows.CloseHandle(inRead)
		windows.CloseHandle(inWrite)
		return nil, newError("spawn", ErrSpawnFailed, err)
	}

	var hpc uintptr
	r1, _, _ := procCreatePseudoConsole.Call(
		makeCoord(cfg.cols, cfg.rows),
		uintptr(inRead),
		uintptr(outWrite),
		0,
		uintptr(unsafe.Pointer(&hpc)),
	)
	if r1 != 0 { // S_OK is 0
		windows.CloseHandle(inRead)
		windows.CloseHandle(inWrite)
		windows.CloseHandle(outRead)
		windows.CloseHandle(outWrite)
		return nil, newError("spawn", ErrSpawnFailed, windows.Errno(r1))
	}

	// The conhost side owns its pipe ends now.
	windows.CloseHandle(inRead)
	windows.CloseHandle(outWrite)

	process, pid, err := startProcessWithConsole(hpc, cfg)
	if err != nil {
		procClosePseudoConsole.Call(hpc)
		windows.CloseHandle(inWrite)
		windows.CloseHandle(outRead)
		return nil, newError("spawn", ErrSpawnFailed, err)
	}

	b := &conptyBackend{
		hpc:     hpc,
		pipeIn:  inWrite,
		pipeOut: outRead,
		process: process,
		pid:     pid,
		exited:  make(chan struct{}),
		stop:    make(chan struct{}),
	}
	b.exitCode.Store(-1)
	go b.watchProcess()
	return b, nil
}

// startProcessWithConsole launches the child with the pseudo-console handle
// inherited through an extended startup attribute list. The child gets its
// own process group so Ctrl-Break events can target it.
func startProcessWithConsole(hpc uintptr, cfg spawnConfig) (windows.Handle, uint32, error) {
	attrs, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		return 0, 0, err
	}
	defer attrs.Delete()

	// The attribute value is the HPCON itself, not a pointer to it.
	if err := attrs.Update(procThreadAttributePseudoConsole,
		unsafe.Pointer(hpc), unsafe.Sizeof(hpc)); err != nil {
		return 0, 0, err
	}

	cmdLine := windows.ComposeCommandLine(append([]string{cfg.path}, cfg.args...))
	cmdLinePtr, err := windows.UTF16PtrFromString(cmdLine)
	if err != nil {
		return 0, 0, err
	}

	var dirPtr *uint16
	if cfg.dir != "" {
		dirPtr, err = windows.UTF16PtrFromString(cfg.dir)
		if err != nil {
			return 0, 0, err
		}
	}

	envBlock, err := environBlock(cfg.env)
	if err != nil {
		return 0, 0, err
	}
	flags := uint32(windows.EXTENDED_STARTUPINFO_PRESENT | windows.CREATE_NEW_PROCESS_GROUP)
	if envBlock != nil {
		flags |= windows.CREATE_UNICODE_ENVIRONMENT
	}

	si := &windows.StartupInfoEx{ProcThreadAttributeList: attrs.List()}
	si.Cb = uint32(unsafe.Sizeof(*si))

	var pi windows.ProcessInformation
	if err := windows.CreateProcess(nil, cmdLinePtr, nil, nil, false,
		flags, envBlock, dirPtr, &si.StartupInfo, &pi); err != nil {
		return 0, 0, err
	}
	windows.CloseHandle(pi.Thread)
	return pi.Process, pi.ProcessId, nil
}

// environBlock builds a UTF-16 environment block from the inherited
// environment plus extra entries, later entries winning. nil extra means
// inherit (pass nil to CreateProcess).
func environBlock(extra []string) (*uint16, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	merged := make([]string, 0, len(extra)+64)
	index := make(map[string]int)
	for _, kv := range append(os.Environ(), extra...) {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = strings.ToUpper(kv[:i])
		}
		if at, ok := index[key]; ok {
			merged[at] = kv
			continue
		}
		index[key] = len(merged)
		merged = append(merged, kv)
	}
	var block []uint16
	for _, kv := range merged {
		block = append(block, utf16.Encode([]rune(kv))...)
		block = append(block, 0)
	}
	block = append(block, 0)
	return &block[0], nil
}

// watchProcess records the exit code and flips liveness when the child
// exits.
func (b *conptyBackend) watchProcess() {
	windows.WaitForSingleObject(b.process, windows.INFINITE)
	var code uint32
	if err := windows.GetExitCodeProcess(b.process, &code); err == nil {
		b.exitCode.Store(int32(code))
	} else {
		b.exitCode.Store(0)
	}
	b.done.Store(true)
	close(b.exited)
}

// peek returns the number of bytes waiting in the output pipe.
func (b *conptyBackend) peek() (uint32, bool) {
	var avail uint32
	r1, _, _ := procPeekNamedPipe.Call(uintptr(b.pipeOut), 0, 0, 0,
		uintptr(unsafe.Pointer(&avail)), 0)
	return avail, r1 != 0
}

// Read polls the output pipe with PeekNamedPipe and only calls ReadFile
// when data is waiting, so no OS thread is ever stuck in a blocking read
// that teardown cannot cancel. After process exit the pipe is drained to
// the last byte before transport end is reported.
func (b *conptyBackend) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		select {
		case <-b.stop:
			return 0, io.EOF
		default:
		}

		avail, ok := b.peek()
		if !ok {
			return 0, io.EOF
		}
		if avail > 0 {
			var n uint32
			if err := windows.ReadFile(b.pipeOut, p, &n, nil); err != nil {
				return int(n), io.EOF
			}
			return int(n), nil
		}
		if b.done.Load() {
			return 0, io.EOF
		}
		time.Sleep(readPollInterval)
	}
}

// Write sends input bytes to the pseudo-console's input pipe. It shares no
// handle with Read, so writers and the reader never block each other.
func (b *conptyBackend) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n uint32
	if err := windows.WriteFile(b.pipeIn, p, &n, nil); err != nil {
		return int(n), newError("write", ErrBrokenPipe, err)
	}
	return int(n), nil
}

// Resize changes the pseudo-console dimensions; works while the child runs.
func (b *conptyBackend) Resize(rows, cols uint16) error {
	r1, _, _ := procResizePseudoConsole.Call(b.hpc, makeCoord(cols, rows))
	if r1 != 0 {
		return newError("resize", ErrResizeFailed, windows.Errno(r1))
	}
	return nil
}

// Signal delivers control events to the child. Interrupt and EOF go
// through the input pipe as control bytes: the ConPTY input processor
// raises the console event in the attached conhost, which is the only way
// to reach the foreground client from outside its console. Break targets
// the child's own process group directly. Suspend has no Windows
// equivalent.
func (b *conptyBackend) Signal(sig Signal) error {
	switch sig {
	case SignalInterrupt:
		_, err := b.Write([]byte{ctrlC})
		return err
	case SignalBreak:
		if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, b.pid); err != nil {
			return newError("signal", ErrSignalUnsupported, err)
		}
		return nil
	case SignalEOF:
		_, err := b.Write([]byte{ctrlD})
		return err
	default:
		return newError("signal", ErrSignalUnsupported, nil)
	}
}

// Alive reports whether the child is still running.
func (b *conptyBackend) Alive() bool {
	return !b.done.Load()
}

// Pid returns the child process ID.
func (b *conptyBackend) Pid() int {
	return int(b.pid)
}

// ExitCode returns the child's exit code once it has exited.
func (b *conptyBackend) ExitCode() (int, bool) {
	if !b.done.Load() {
		return 0, false
	}
	return int(b.exitCode.Load()), true
}

// Kind identifies the backend for diagnostics.
func (b *conptyBackend) Kind() string {
	return "conpty"
}

// Close releases everything in a fixed order: unblock the reader, close
// the pseudo-console (conhost hangs up the client, the usual graceful
// stop), force-terminate after the grace period, then close pipe handles
// and the process handle last, after the watcher is done with it. The
// order holds on partially-initialized sessions too; spawn failures
// release their own subset before Close can run.
func (b *conptyBackend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		procClosePseudoConsole.Call(b.hpc)

		if !b.done.Load() {
			select {
			case <-b.exited:
			case <-time.After(terminateGrace):
				_ = windows.TerminateProcess(b.process, 1)
				select {
				case <-b.exited:
				case <-time.After(killWait):
				}
			}
		}

		windows.CloseHandle(b.pipeIn)
		windows.CloseHandle(b.pipeOut)
		windows.CloseHandle(b.process)
	})
	return nil
}
