package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// MockUserStore is an in-memory implementation of UserStore for testing. It
// mirrors the real store's semantics: ID assignment, timestamp stamping and
// identifier uniqueness.
type MockUserStore struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	nextID int

	// Unavailable makes every call fail with domain.ErrStoreUnavailable,
	// simulating a store outage.
	Unavailable bool

	// Now lets tests pin the stamping clock. Defaults to time.Now.
	Now func() time.Time
}

// NewMockUserStore creates a new MockUserStore
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*domain.User)}
}

func (m *MockUserStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockUserStore) Save(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return domain.ErrStoreUnavailable
	}

	now := m.now()
	if user.ID == "" {
		for _, u := range m.users {
			if u.PersonIdentifier == user.PersonIdentifier {
				return domain.ErrDuplicateRecord
			}
		}
		m.nextID++
		user.ID = fmt.Sprintf("mock-user-%d", m.nextID)
		user.Created = now
	}
	user.LastModified = now

	copied := cloneUser(user)
	m.users[user.ID] = copied
	return nil
}

func (m *MockUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unavailable {
		return nil, domain.ErrStoreUnavailable
	}
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneUser(user), nil
}

func (m *MockUserStore) GetByPersonIdentifier(ctx context.Context, pid string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unavailable {
		return nil, domain.ErrStoreUnavailable
	}
	for _, user := range m.users {
		if user.PersonIdentifier == pid && !user.Superseded() {
			return cloneUser(user), nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (m *MockUserStore) IdentifierInUse(ctx context.Context, pid string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unavailable {
		return false, domain.ErrStoreUnavailable
	}
	for _, user := range m.users {
		if user.PersonIdentifier == pid {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserStore) UpsertLogin(ctx context.Context, userID, eidName string, at time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, domain.ErrStoreUnavailable
	}
	user, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	found := false
	for i := range user.Logins {
		if strings.EqualFold(user.Logins[i].EIDName, eidName) {
			user.Logins[i].LastLogin = at
			found = true
			break
		}
	}
	if !found {
		user.Logins = append(user.Logins, domain.UserLogin{
			EIDName:    eidName,
			FirstLogin: at,
			LastLogin:  at,
		})
	}
	user.LastModified = m.now()
	return cloneUser(user), nil
}

func (m *MockUserStore) Supersede(ctx context.Context, old *domain.User, replacement *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, domain.ErrStoreUnavailable
	}
	stored, ok := m.users[old.ID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	for _, u := range m.users {
		if u.PersonIdentifier == replacement.PersonIdentifier && !u.Superseded() {
			return nil, domain.ErrDuplicateRecord
		}
	}

	now := m.now()
	m.nextID++
	replacement.ID = fmt.Sprintf("mock-user-%d", m.nextID)
	replacement.PreviousUserID = &stored.ID
	replacement.Created = now
	replacement.LastModified = now

	stored.ClosedCode = domain.ClosedCodeChangedPID
	stored.ClosedCodeLastUpdated = &now
	stored.NextUserID = &replacement.ID
	stored.LastModified = now

	m.users[replacement.ID] = cloneUser(replacement)
	return cloneUser(replacement), nil
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return domain.ErrStoreUnavailable
	}
	if _, ok := m.users[id]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Unavailable {
		return domain.ErrStoreUnavailable
	}
	return nil
}

// Helper methods for testing

// SetUnavailable flips the outage flag under the store lock, safe to call
// while other goroutines use the store.
func (m *MockUserStore) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unavailable = down
}

func (m *MockUserStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*domain.User)
	m.nextID = 0
}

func (m *MockUserStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func cloneUser(u *domain.User) *domain.User {
	copied := *u
	copied.HelpDeskReferences = append([]string(nil), u.HelpDeskReferences...)
	copied.Logins = append([]domain.UserLogin(nil), u.Logins...)
	if u.PreviousUserID != nil {
		prev := *u.PreviousUserID
		copied.PreviousUserID = &prev
	}
	if u.NextUserID != nil {
		next := *u.NextUserID
		copied.NextUserID = &next
	}
	if u.ClosedCodeLastUpdated != nil {
		ts := *u.ClosedCodeLastUpdated
		copied.ClosedCodeLastUpdated = &ts
	}
	return &copied
}
