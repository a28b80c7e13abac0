// Package main is a diagnostic terminal host for the PTY subsystem: it
// opens a shell session and bridges it to the controlling terminal, which
// exercises the full spawn/write/read/resize/signal/close contract from
// the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ktheindifferent/ox/internal/config"
	"github.com/ktheindifferent/ox/internal/log"
	"github.com/ktheindifferent/ox/internal/pty"
	"github.com/ktheindifferent/ox/internal/shell"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

// drainInterval paces output forwarding to stdout.
const drainInterval = 20 * time.Millisecond

type options struct {
	shell      string
	rows       uint
	cols       uint
	dir        string
	configPath string
	backend    string
	logLevel   string
	listShells bool
}

func main() {
	os.Exit(run(parseFlags()))
}

func run(opts options) int {
	logger := log.New(log.Config{
		Level:  log.ParseLevel(opts.logLevel),
		Output: os.Stderr,
		Prefix: "ox-term",
	})
	log.Set(logger)

	if opts.listShells {
		printShells()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Warn("config: %v", err)
	}
	if opts.shell != "" {
		cfg.Shell = opts.shell
	}
	if opts.rows > 0 {
		cfg.Rows = uint16(opts.rows)
	}
	if opts.cols > 0 {
		cfg.Cols = uint16(opts.cols)
	}
	if opts.dir != "" {
		cfg.Workdir = opts.dir
	}

	switch opts.backend {
	case "auto":
	case "fallback":
		os.Setenv(pty.ForceFallbackEnv, "1")
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown backend %q (auto|fallback)\n", opts.backend)
		return 1
	}

	session, err := pty.New(pty.Options{
		Shell:   cfg.Shell,
		Args:    cfg.Args,
		Rows:    cfg.Rows,
		Cols:    cfg.Cols,
		Workdir: cfg.Workdir,
		Env:     cfg.Env,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open terminal: %v\n", err)
		return 1
	}
	defer session.Close()
	logger.Debug("backend=%s conpty=%v", session.BackendKind(), pty.ConPTYAvailable())

	// This host streams the child's own echo back to the user.
	if err := session.SetEcho(true); err != nil {
		logger.Debug("enable echo: %v", err)
	}

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, rawErr := term.MakeRaw(stdinFd)
		if rawErr != nil {
			fmt.Fprintf(os.Stderr, "Error: raw mode: %v\n", rawErr)
			return 1
		}
		defer term.Restore(stdinFd, oldState)

		if w, h, sizeErr := term.GetSize(stdinFd); sizeErr == nil {
			_ = session.Resize(uint16(h), uint16(w))
		}
		watchResize(session, stdinFd)
	}

	// SIGTERM closes cleanly; Ctrl-C travels to the child as a raw byte.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	go func() {
		<-sigs
		session.Close()
	}()

	go pumpStdin(session)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for range ticker.C {
		if chunk := session.TryRead(); chunk != "" {
			os.Stdout.WriteString(chunk)
		}
		if !session.Alive() {
			break
		}
	}
	// The child may have produced output between the last drain and exit.
	if chunk := session.TryRead(); chunk != "" {
		os.Stdout.WriteString(chunk)
	}

	if code, ok := session.ExitCode(); ok {
		return code
	}
	return 0
}

// pumpStdin forwards the user's keystrokes to the child in arrival order.
func pumpStdin(session *pty.Session) {
	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if _, werr := session.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			_ = session.Signal(pty.SignalEOF)
			return
		}
	}
}

// printShells lists every detected shell, default first and starred.
func printShells() {
	for i, sh := range shell.Available() {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-12s %s", marker, sh.Name, sh.Path)
		if len(sh.Args) > 0 {
			line += " " + strings.Join(sh.Args, " ")
		}
		fmt.Println(line)
	}
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.shell, "shell", "", "Shell to launch (name or path, default: auto-detect)")
	flag.UintVar(&opts.rows, "rows", 0, "Initial terminal rows (default: host terminal size)")
	flag.UintVar(&opts.cols, "cols", 0, "Initial terminal columns (default: host terminal size)")
	flag.StringVar(&opts.dir, "dir", "", "Initial working directory")
	flag.StringVar(&opts.configPath, "config", "", "Path to .oxrc configuration file")
	flag.StringVar(&opts.backend, "backend", "auto", "PTY backend (auto, fallback)")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.listShells, "list-shells", false, "List detected shells and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ox-term - interactive PTY session host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: ox-term [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ox-term                     Run the default shell\n")
		fmt.Fprintf(os.Stderr, "  ox-term -shell zsh          Run a specific shell\n")
		fmt.Fprintf(os.Stderr, "  ox-term -backend fallback   Force the portable backend\n")
		fmt.Fprintf(os.Stderr, "  ox-term -list-shells        Show what is installed\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("ox-term %s (%s)\n", version, commit)
		os.Exit(0)
	}
	return opts
}
