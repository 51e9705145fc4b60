package repository

import (
	"context"
	"slices"
	"sync"

	"tree_nav/internal/domain/session"
	errs "tree_nav/internal/errors"
)

type SessionMapStorage struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
}

func NewSessionMapStorage() *SessionMapStorage {
	return &SessionMapStorage{
		sessions: make(map[string]session.Session),
	}
}

func (m *SessionMapStorage) StoreSession(_ context.Context, s session.Session) error {
	s.Choices = slices.Clone(s.Choices)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *SessionMapStorage) GetSession(_ context.Context, sessionID string) (session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return session.Session{}, errs.ErrSessionNotFound
	}
	s.Choices = slices.Clone(s.Choices)
	return s, nil
}

func (m *SessionMapStorage) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return errs.ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}
