package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/config"
	"github.com/yousuf/jsstack/internal/logs"
)

// Manager manages session contexts
type Manager struct {
	sessions map[string]*Context
	mu       sync.RWMutex
	config   *config.Config
}

// NewManager creates a new session manager
func NewManager(cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{
		sessions: make(map[string]*Context),
		config:   cfg,
	}
}

// GetOrCreateSession gets an existing session or creates a new one
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) (*Context, error) {
	// Try to get existing session
	m.mu.RLock()
	session, exists := m.sessions[sessionID]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := m.sessions[sessionID]; exists {
		return session, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	grips, err := NewGripCache(m.config.Session.GripCacheSize)
	if err != nil {
		return nil, err
	}

	session = NewContext(sessionID, grips)
	m.sessions[sessionID] = session

	zap.L().Named(logs.Session).Info("session created", zap.String("session", sessionID))
	return session, nil
}

// GetSession retrieves an existing session
func (m *Manager) GetSession(sessionID string) *Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// DeleteSession removes a session and cleans up its resources
func (m *Manager) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return errors.Errorf("session %q not found", sessionID)
	}

	if err := session.Close(); err != nil {
		return errors.Wrap(err, "failed to close session")
	}

	delete(m.sessions, sessionID)
	return nil
}

// ExpireIdle closes sessions not accessed within timeout and returns how
// many were removed
func (m *Manager) ExpireIdle(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	m.mu.RLock()
	var idle []string
	for sessionID, session := range m.sessions {
		if time.Since(session.LastAccessed()) >= timeout {
			idle = append(idle, sessionID)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, sessionID := range idle {
		// a concurrent delete may have won
		if err := m.DeleteSession(sessionID); err != nil {
			continue
		}
		removed++
		zap.L().Named(logs.Session).Info("session expired", zap.String("session", sessionID))
	}
	return removed
}

// CloseAll closes all sessions
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for sessionID, session := range m.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "session %q", sessionID))
		}
	}

	m.sessions = make(map[string]*Context)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing sessions: %v", errs)
	}

	return nil
}
