package mocks

import (
	"context"
	"sync"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// MockUserCache is an in-memory implementation of UserCache for testing
type MockUserCache struct {
	mu    sync.RWMutex
	byPID map[string]*domain.User
	byID  map[string]string
}

// NewMockUserCache creates a new MockUserCache
func NewMockUserCache() *MockUserCache {
	return &MockUserCache{
		byPID: make(map[string]*domain.User),
		byID:  make(map[string]string),
	}
}

func (m *MockUserCache) GetByPersonIdentifier(ctx context.Context, pid string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.byPID[pid]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneUser(user), nil
}

func (m *MockUserCache) GetIdentifier(ctx context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pid, ok := m.byID[id]
	if !ok {
		return "", domain.ErrRecordNotFound
	}
	return pid, nil
}

func (m *MockUserCache) Set(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPID[user.PersonIdentifier] = cloneUser(user)
	m.byID[user.ID] = user.PersonIdentifier
	return nil
}

func (m *MockUserCache) Remove(ctx context.Context, pid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pid != "" {
		delete(m.byPID, pid)
	}
	if id != "" {
		delete(m.byID, id)
	}
	return nil
}

// Helper methods for testing

func (m *MockUserCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPID = make(map[string]*domain.User)
	m.byID = make(map[string]string)
}

func (m *MockUserCache) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPID)
}
