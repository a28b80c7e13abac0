package pty

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ktheindifferent/ox/internal/log"
	"github.com/ktheindifferent/ox/internal/shell"
)

// settleDelay gives a freshly spawned shell time to print its first prompt
// before the session is handed to the host.
const settleDelay = 100 * time.Millisecond

// pasteArtifact is the bracketed-paste disable sequence most Unix line
// editors emit before running a command. It splices a spurious newline
// into the output stream, so it is filtered for shells known to produce it.
const pasteArtifact = "\x1b[?2004l\r\r\n"

// Options configures a new session. The zero value detects the platform
// default shell at 80x24 with no logging.
type Options struct {
	// Shell selects what to launch: a kind name ("zsh", "pwsh"), a binary
	// path, or empty for auto-detection.
	Shell string

	// Args are extra arguments appended to the shell's default argument
	// vector.
	Args []string

	Rows uint16
	Cols uint16

	// Workdir is the child's initial working directory.
	Workdir string

	// Env holds extra KEY=VALUE entries layered over the inherited
	// environment.
	Env []string

	Logger *log.Logger

	// OnUpdate fires, outside the session lock, whenever new output has
	// been appended. Hosts use it to schedule a re-render.
	OnUpdate func()
}

// Session is one live PTY-backed shell bound to one terminal pane. All
// methods are safe for concurrent use; the session's own mutex guards the
// accumulators while blocking I/O stays outside it, so a slow host write
// never stalls the reader and vice versa.
type Session struct {
	mu       sync.Mutex
	shell    shell.Shell
	backend  backend
	logger   *log.Logger
	onUpdate func()

	buf     []byte // decoded output since the last Clear
	drained int    // TryRead high-water mark into buf
	pending []rune // line buffer for CharInput, reset on newline
	rows    uint16
	cols    uint16

	silentStrip   string // command echo to drop after SilentRunCommand
	trimLeadingNL bool   // drop the newline echoed by Clear's prompt refresh

	closed     atomic.Bool
	readerDone chan struct{}
}

// New opens a session for the shell named by opts.Shell, auto-detecting
// when it is empty. A failure to resolve or spawn returns an error and no
// session; there is nothing to release.
func New(opts Options) (*Session, error) {
	sh, err := shell.Resolve(opts.Shell)
	if err != nil {
		return nil, err
	}
	return NewWithShell(sh, opts)
}

// NewWithShell opens a session for an already resolved shell. The backend
// is chosen here, once, and never switched: native ConPTY on Windows when
// available, the portable fallback otherwise, the POSIX PTY elsewhere.
func NewWithShell(sh shell.Shell, opts Options) (*Session, error) {
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Null
	}
	logger = logger.WithComponent("pty")

	path, args := sh.Command()
	args = append(args, opts.Args...)

	b, err := newBackend(spawnConfig{
		path: path,
		args: args,
		rows: opts.Rows,
		cols: opts.Cols,
		dir:  opts.Workdir,
		env:  opts.Env,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		shell:      sh,
		backend:    b,
		logger:     logger,
		onUpdate:   opts.OnUpdate,
		rows:       opts.Rows,
		cols:       opts.Cols,
		readerDone: make(chan struct{}),
	}
	go s.readLoop()
	s.initialize()

	logger.Info("session spawned shell=%s backend=%s pid=%d", sh.Name, b.Kind(), b.Pid())
	return s, nil
}

// initialize turns off terminal echo where the platform supports it, so
// the host controls what the user sees typed, and lets the shell settle
// on its first prompt.
func (s *Session) initialize() {
	if ec, ok := s.backend.(echoController); ok {
		if err := ec.setEcho(false); err != nil {
			s.logger.Debug("disable echo: %v", err)
		}
	}
	time.Sleep(settleDelay)
}

// readLoop is the session's only reader: it blocks on the backend, decodes
// lossily, filters shell quirks, and appends under the lock. It exits when
// the transport ends (child exit or Close) and never outlives the session.
// A panic in the loop is recovered and treated as transport end; terminal
// output is expendable, editor stability is not.
func (s *Session) readLoop() {
	defer close(s.readerDone)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reader recovered from panic: %v", r)
		}
	}()

	var dec streamDecoder
	buf := make([]byte, 4096)
	for {
		n, err := s.backend.Read(buf)
		if n > 0 {
			s.appendOutput(dec.decode(buf[:n]))
		}
		if err != nil {
			s.appendOutput(dec.flush())
			s.logger.Debug("reader finished shell=%s", s.shell.Name)
			return
		}
	}
}

// appendOutput filters and appends decoded text, then notifies the host
// outside the lock.
func (s *Session) appendOutput(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	text = s.filterLocked(text)
	if text == "" {
		s.mu.Unlock()
		return
	}
	s.buf = append(s.buf, text...)
	cb := s.onUpdate
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// filterLocked applies per-shell output fixups. Caller holds s.mu.
func (s *Session) filterLocked(text string) string {
	if s.shell.InsertsExtraNewline() {
		text = strings.ReplaceAll(text, pasteArtifact, "")
	}
	if s.silentStrip != "" {
		if i := strings.Index(text, s.silentStrip); i >= 0 {
			text = text[:i] + text[i+len(s.silentStrip):]
			s.silentStrip = ""
		}
	}
	if s.trimLeadingNL && text != "" {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(text, "\r"), "\n")
		if trimmed != text {
			s.trimLeadingNL = false
		}
		text = trimmed
	}
	return text
}

// localEcho appends text the terminal will not echo itself, so the user
// still sees what was typed.
func (s *Session) localEcho(text string) {
	s.mu.Lock()
	s.buf = append(s.buf, text...)
	cb := s.onUpdate
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// write sends bytes to the backend, normalizing post-exit failures into
// benign no-ops: once the child is gone there is nothing left to break.
func (s *Session) write(p []byte) error {
	if s.closed.Load() {
		return nil
	}
	if _, err := s.backend.Write(p); err != nil {
		if !s.backend.Alive() {
			return nil
		}
		return err
	}
	return nil
}

// Write feeds raw bytes to the child in the order received, implementing
// io.Writer for hosts that stream input. Writes on a closed or exited
// session are dropped without error.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// RunCommand sends text to the child as typed input. Shells that do not
// echo with terminal echo disabled get the text mirrored into the output
// accumulator so the pane still shows the command. A no-op once the child
// has exited.
func (s *Session) RunCommand(text string) error {
	if !s.Alive() {
		return nil
	}
	if s.shell.ManualInputEcho() {
		s.localEcho(text)
	}
	return s.write([]byte(text))
}

// SilentRunCommand clears accumulated output first so the caller captures
// only what this command produces, and suppresses the echoed command line
// itself from the capture.
func (s *Session) SilentRunCommand(text string) error {
	if !s.Alive() {
		return nil
	}
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.drained = 0
	s.silentStrip = strings.TrimSuffix(text, "\n")
	s.mu.Unlock()
	return s.write([]byte(text))
}

// CharInput forwards one typed character immediately and tracks it in the
// pending line buffer; a newline commits the line and resets the buffer,
// matching shell line-editing expectations.
func (s *Session) CharInput(c rune) error {
	if !s.Alive() {
		return nil
	}
	s.mu.Lock()
	if c == '\n' {
		s.pending = s.pending[:0]
	} else {
		s.pending = append(s.pending, c)
	}
	s.mu.Unlock()
	if s.shell.ManualInputEcho() {
		s.localEcho(string(c))
	}
	return s.write([]byte(string(c)))
}

// CharPop removes the last pending character and forwards a backspace to
// the child. Bytes already flushed are not un-sent; the child's line
// editor handles the erase.
func (s *Session) CharPop() error {
	s.mu.Lock()
	if n := len(s.pending); n > 0 {
		s.pending = s.pending[:n-1]
		if s.shell.ManualInputEcho() && len(s.buf) > 0 {
			s.buf = trimLastRune(s.buf)
			if s.drained > len(s.buf) {
				s.drained = len(s.buf)
			}
		}
	}
	s.mu.Unlock()
	return s.write([]byte{0x7f})
}

// PendingInput returns the uncommitted line buffer.
func (s *Session) PendingInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.pending)
}

// Output returns everything accumulated since the last Clear. May contain
// raw ANSI escape sequences; interpreting them is the renderer's job.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

// TryRead drains output accumulated since the last drain. It never
// blocks; an empty result means no new output yet, not end of stream.
func (s *Session) TryRead() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := string(s.buf[s.drained:])
	s.drained = len(s.buf)
	return out
}

// ClearOutput discards the accumulated output without touching the child.
func (s *Session) ClearOutput() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.drained = 0
	s.mu.Unlock()
}

// Clear resets the accumulator and asks the shell for a fresh prompt, so
// the pane restarts at a clean line. The newline echoed by the refresh is
// trimmed from the next chunk.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.drained = 0
	s.trimLeadingNL = true
	s.mu.Unlock()
	if !s.Alive() {
		return nil
	}
	return s.write([]byte("\n"))
}

// Resize propagates a pane geometry change to the child's terminal. A
// rejected resize leaves the session fully usable.
func (s *Session) Resize(rows, cols uint16) error {
	if !s.Alive() {
		return nil
	}
	if err := s.backend.Resize(rows, cols); err != nil {
		s.logger.Warn("resize to %dx%d failed: %v", rows, cols, err)
		return err
	}
	s.mu.Lock()
	s.rows, s.cols = rows, cols
	s.mu.Unlock()
	return nil
}

// Size returns the last successfully applied dimensions.
func (s *Session) Size() (rows, cols uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// Signal delivers a control signal to the child's foreground job. A
// platform/signal combination the backend cannot deliver is reported,
// never fatal, and signaling an exited child is a no-op.
func (s *Session) Signal(sig Signal) error {
	if !s.Alive() {
		return nil
	}
	if err := s.backend.Signal(sig); err != nil {
		s.logger.Warn("signal %s: %v", sig, err)
		return err
	}
	return nil
}

// SetEcho toggles terminal echo where the backend supports it. Echo is
// disabled at session open for editor panes that render their own input;
// stream hosts turn it back on. A no-op where the platform has no echo
// control.
func (s *Session) SetEcho(on bool) error {
	if ec, ok := s.backend.(echoController); ok {
		return ec.setEcho(on)
	}
	return nil
}

// Alive reports whether the child process and transport are usable. False
// exactly when the child has exited or the session was closed.
func (s *Session) Alive() bool {
	return !s.closed.Load() && s.backend.Alive()
}

// Pid returns the child process ID.
func (s *Session) Pid() int {
	return s.backend.Pid()
}

// ExitCode returns the child's exit code and whether it has exited.
func (s *Session) ExitCode() (int, bool) {
	return s.backend.ExitCode()
}

// Shell returns the resolved shell this session runs.
func (s *Session) Shell() shell.Shell {
	return s.shell
}

// BackendKind names the backend in use ("unix", "conpty", "fallback"),
// exposed for diagnostics and the scripting layer.
func (s *Session) BackendKind() string {
	return s.backend.Kind()
}

// Close releases the session unconditionally: backend teardown (graceful
// stop, bounded grace, force kill, handles in fixed order), then joins the
// reader. It does not depend on the child having exited, succeeds on
// partially dead sessions, and the second and later calls return nil
// immediately.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	_ = s.backend.Close()
	select {
	case <-s.readerDone:
	case <-time.After(killWait):
		s.logger.Warn("reader did not exit in time shell=%s", s.shell.Name)
	}
	code, _ := s.backend.ExitCode()
	s.logger.Info("session closed shell=%s exit=%d", s.shell.Name, code)
	return nil
}

// trimLastRune drops the final UTF-8 rune from b.
func trimLastRune(b []byte) []byte {
	i := len(b) - 1
	for i > 0 && b[i]&0xc0 == 0x80 {
		i--
	}
	return b[:i]
}
