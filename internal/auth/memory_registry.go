package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/workoutlog/pkg"
)

type memorySession struct {
	userID    int
	expiresAt time.Time
}

// MemoryRegistry is a process-local session registry with the same
// semantics as the redis backed Service. Used for local runs and tests.
type MemoryRegistry struct {
	mutex    sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession

	RandStringFunc func(s int) (string, error)
	NowFunc        func() time.Time
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		ttl:            ttl,
		sessions:       make(map[string]memorySession),
		RandStringFunc: pkg.GenerateRandomString,
		NowFunc:        time.Now,
	}
}

func (m *MemoryRegistry) CreateSession(_ context.Context, userID int) (string, error) {
	token, err := m.RandStringFunc(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sessions[token] = memorySession{
		userID:    userID,
		expiresAt: m.NowFunc().Add(m.ttl),
	}
	return token, nil
}

func (m *MemoryRegistry) ResolveSession(_ context.Context, token string) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if !m.NowFunc().Before(s.expiresAt) {
		delete(m.sessions, token)
		return 0, ErrSessionNotFound
	}
	return s.userID, nil
}

func (m *MemoryRegistry) DeleteSession(_ context.Context, token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *MemoryRegistry) DeleteUserSessions(_ context.Context, userID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for token, s := range m.sessions {
		if s.userID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *MemoryRegistry) ScanAndClean(_ context.Context) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.NowFunc()
	for token, s := range m.sessions {
		if !now.Before(s.expiresAt) {
			delete(m.sessions, token)
		}
	}
}

func (m *MemoryRegistry) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sessions)
}
