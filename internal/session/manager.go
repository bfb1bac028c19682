package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRetention     = 6 * time.Hour
	defaultIdleTTL       = 30 * time.Minute
	defaultPruneInterval = 10 * time.Minute
)

type sessionKey struct {
	studentID uuid.UUID
	quizID    uuid.UUID
}

// Manager keeps live controllers keyed by (student, quiz) so that every
// connection of a student lands on the same session.
type Manager struct {
	deps      Deps
	// Retention is how long a submitted session stays in memory.
	Retention time.Duration
	// IdleTTL is how long an unstarted or untimed session without a
	// connection stays in memory after its last use.
	IdleTTL   time.Duration

	mu       sync.Mutex
	sessions map[sessionKey]*Controller
}

// NewManager creates an empty registry.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:      deps.withDefaults(),
		Retention: defaultRetention,
		IdleTTL:   defaultIdleTTL,
		sessions:  make(map[sessionKey]*Controller),
	}
}

// Open returns the controller for the pair, initializing a new one when
// needed. Controllers that fail to initialize are not kept, except those
// submitted through this process. With ErrAlreadyCompleted the returned
// controller is still usable for reading the submitted state.
func (m *Manager) Open(ctx context.Context, studentID, quizID uuid.UUID) (*Controller, error) {
	key := sessionKey{studentID, quizID}

	m.mu.Lock()
	c, ok := m.sessions[key]
	if !ok {
		c = NewController(m.deps)
		m.sessions[key] = c
	}
	m.mu.Unlock()

	err := c.Initialize(ctx, studentID, quizID)
	if err == nil {
		return c, nil
	}

	// Sessions submitted through this process answer from memory until pruned.
	completed := errors.Is(err, ErrAlreadyCompleted)
	if completed && ok {
		return c, err
	}
	m.mu.Lock()
	if m.sessions[key] == c {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	if completed {
		return c, err
	}
	return nil, err
}

// Get returns an already opened controller.
func (m *Manager) Get(studentID, quizID uuid.UUID) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[sessionKey{studentID, quizID}]
	return c, ok
}

// Close stops and forgets the session without submitting it.
func (m *Manager) Close(studentID, quizID uuid.UUID) {
	key := sessionKey{studentID, quizID}
	m.mu.Lock()
	c, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Len reports how many sessions are held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Prune drops sessions submitted more than Retention before now, and closes
// idle sessions unused for IdleTTL. A closed session's attempt stays open in
// storage and resumes on the next Open.
func (m *Manager) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for key, c := range m.sessions {
		if out, ok := c.Outcome(); ok {
			if now.Sub(out.CompletedAt) >= m.Retention {
				delete(m.sessions, key)
				pruned++
			}
			continue
		}
		if since, ok := c.idleSince(); ok && now.Sub(since) >= m.IdleTTL {
			delete(m.sessions, key)
			c.Close()
			pruned++
		}
	}
	return pruned
}

// Run prunes periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.deps.Clock.NewTicker(defaultPruneInterval)
	defer ticker.Stop()

	log := m.deps.Logger.With().Str("component", "session_manager").Logger()
	log.Info().Msg("Session manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session manager stopped")
			return
		case <-ticker.C():
			if n := m.Prune(m.deps.Clock.Now()); n > 0 {
				log.Debug().Int("pruned", n).Int("held", m.Len()).Msg("Pruned sessions")
			}
		}
	}
}

// Shutdown closes every held session. In-progress attempts remain open in
// storage and resume on the next Open.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[sessionKey]*Controller)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
