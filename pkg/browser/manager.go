package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTooManySessions is returned when the session limit is reached.
var ErrTooManySessions = errors.New("browser: maximum number of sessions reached")

// Manager hands out pages from a Driver and keeps track of them so that a
// shutdown can close anything still open.
type Manager struct {
	mu          sync.Mutex
	driver      Driver
	opts        Options
	sessions    map[string]*trackedPage
	maxSessions int
	closed      bool
}

// NewManager creates a manager for driver. opts applies to every session.
func NewManager(driver Driver, opts Options) *Manager {
	return &Manager{
		driver:      driver,
		opts:        opts.withDefaults(),
		sessions:    make(map[string]*trackedPage),
		maxSessions: DefaultMaxSessions,
	}
}

// SetMaxSessions sets the maximum number of concurrent sessions.
func (m *Manager) SetMaxSessions(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxSessions = max
	}
}

// Open launches a new session. It implements SessionProvider.
func (m *Manager) Open(ctx context.Context) (Page, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("session manager shut down")
	}
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (%d)", ErrTooManySessions, m.maxSessions)
	}
	id := uuid.NewString()
	// reserve the slot while the browser starts
	m.sessions[id] = nil
	m.mu.Unlock()

	page, err := m.driver.Open(ctx, m.opts)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.sessions, id)
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	if m.closed {
		// Shutdown ran while the browser was starting
		delete(m.sessions, id)
		_ = page.Close()
		return nil, fmt.Errorf("session manager shut down")
	}
	tp := &trackedPage{Page: page, id: id, manager: m, createdAt: time.Now()}
	m.sessions[id] = tp
	return tp, nil
}

// ActiveSessions returns the number of open sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Shutdown closes all open sessions and stops the driver.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	open := make([]*trackedPage, 0, len(m.sessions))
	for _, tp := range m.sessions {
		if tp != nil {
			open = append(open, tp)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, tp := range open {
		if err := tp.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.driver.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// trackedPage removes itself from the manager when closed.
type trackedPage struct {
	Page
	id        string
	manager   *Manager
	createdAt time.Time
	closeOnce sync.Once
	closeErr  error
}

func (t *trackedPage) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.Page.Close()
		t.manager.release(t.id)
	})
	return t.closeErr
}
