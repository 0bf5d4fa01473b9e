package service

import (
	"context"
	"sync"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SessionManager owns the live sessions, one per user. A session is opened
// at login and dropped at logout.
type SessionManager struct {
	deps SessionDeps

	mu       sync.Mutex
	sessions map[string]*Session
	loading  singleflight.Group
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	return &SessionManager{deps: deps.withDefaults(), sessions: map[string]*Session{}}
}

// Open creates and loads a fresh session for user, replacing any previous one.
// A load failure still yields a usable (empty) session.
func (m *SessionManager) Open(ctx context.Context, user domain.User, accessToken string) *Session {
	return m.open(ctx, user, accessToken, true)
}

func (m *SessionManager) open(ctx context.Context, user domain.User, accessToken string, replace bool) *Session {
	s := NewSession(user, accessToken, m.deps)
	if err := s.Load(ctx); err != nil {
		m.deps.Logger.Warn("session: opened with empty state", zap.String("user_id", user.ID), zap.Error(err))
	}

	m.mu.Lock()
	prev, exists := m.sessions[user.ID]
	if exists && !replace {
		m.mu.Unlock()
		return prev
	}
	m.sessions[user.ID] = s
	m.mu.Unlock()

	if !exists {
		m.deps.Metrics.SessionOpened()
	}
	return s
}

// Get returns the live session of userID.
func (m *SessionManager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Acquire returns the live session or opens one for a user holding a valid
// token whose session was lost (e.g. after a restart). Concurrent callers for
// the same user share one load, and a session opened meanwhile wins.
func (m *SessionManager) Acquire(ctx context.Context, user domain.User) *Session {
	if s, ok := m.Get(user.ID); ok {
		return s
	}
	v, _, _ := m.loading.Do(user.ID, func() (any, error) {
		if s, ok := m.Get(user.ID); ok {
			return s, nil
		}
		return m.open(context.WithoutCancel(ctx), user, "", false), nil
	})
	return v.(*Session)
}

// Close drops the session of userID and returns it, if any.
func (m *SessionManager) Close(userID string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.status = domain.AuthUnauthenticated
		s.resetLocked()
		s.mu.Unlock()
		m.deps.Metrics.SessionClosed()
	}
	return s, ok
}

// Len reports how many sessions are open.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
