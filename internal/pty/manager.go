package pty

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ktheindifferent/ox/internal/log"
)

// EventPublisher receives terminal lifecycle events.
type EventPublisher interface {
	Publish(eventType string, data map[string]any)
}

// ManagerOptions configures a session manager.
type ManagerOptions struct {
	// DefaultShell is the selector applied when a Create call leaves the
	// shell empty. Empty means auto-detect per request.
	DefaultShell string

	// DefaultRows and DefaultCols size sessions that do not specify
	// geometry.
	DefaultRows uint16
	DefaultCols uint16

	Logger *log.Logger

	// EventBus receives terminal.created / terminal.closed events. May be
	// nil.
	EventBus EventPublisher
}

// Manager tracks the live sessions of an editor instance, one per open
// terminal pane, keyed by generated IDs.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	defaultShell string
	defaultRows  uint16
	defaultCols  uint16
	logger       *log.Logger
	eventBus     EventPublisher

	closed atomic.Bool
}

// NewManager creates a session manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.DefaultRows == 0 {
		opts.DefaultRows = 24
	}
	if opts.DefaultCols == 0 {
		opts.DefaultCols = 80
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Null
	}
	return &Manager{
		sessions:     make(map[string]*Session),
		defaultShell: opts.DefaultShell,
		defaultRows:  opts.DefaultRows,
		defaultCols:  opts.DefaultCols,
		logger:       logger.WithComponent("pty.manager"),
		eventBus:     opts.EventBus,
	}
}

// Create opens a new session and returns it with its ID.
func (m *Manager) Create(opts Options) (*Session, string, error) {
	if m.closed.Load() {
		return nil, "", ErrManagerClosed
	}
	if opts.Shell == "" {
		opts.Shell = m.defaultShell
	}
	if opts.Rows == 0 {
		opts.Rows = m.defaultRows
	}
	if opts.Cols == 0 {
		opts.Cols = m.defaultCols
	}
	if opts.Logger == nil {
		opts.Logger = m.logger
	}

	s, err := New(opts)
	if err != nil {
		return nil, "", err
	}

	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("created session %s shell=%s", id, s.Shell().Name)
	m.publish("terminal.created", map[string]any{
		"id":      id,
		"shell":   s.Shell().Name,
		"backend": s.BackendKind(),
		"pid":     s.Pid(),
	})
	return s, id, nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns the IDs of all tracked sessions.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes a session by ID and stops tracking it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	err := s.Close()
	code, _ := s.ExitCode()
	m.publish("terminal.closed", map[string]any{
		"id":       id,
		"exitCode": code,
	})
	return err
}

// CloseAll closes every tracked session.
func (m *Manager) CloseAll() {
	for _, id := range m.List() {
		_ = m.Close(id)
	}
}

// Shutdown closes every session and refuses further Creates. Each close
// is itself bounded, so the extra timeout only guards against a stuck
// teardown; sessions still open when it fires are abandoned to their own
// force-kill path.
func (m *Manager) Shutdown(timeout time.Duration) {
	if m.closed.Swap(true) {
		return
	}

	ids := m.List()
	if len(ids) == 0 {
		return
	}
	m.logger.Info("shutting down %d session(s)", len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = m.Close(id)
		}(id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		m.logger.Warn("shutdown timed out with sessions still closing")
	}
}

// publish emits an event with a timestamp when a bus is configured.
func (m *Manager) publish(eventType string, data map[string]any) {
	if m.eventBus == nil {
		return
	}
	if data == nil {
		data = make(map[string]any)
	}
	data["timestamp"] = time.Now().UnixMilli()
	m.eventBus.Publish(eventType, data)
}
