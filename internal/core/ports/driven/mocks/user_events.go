package mocks

import (
	"sync"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// MockUserEvents records published domain events for assertions
type MockUserEvents struct {
	mu     sync.Mutex
	events []domain.UserEvent
}

// NewMockUserEvents creates a new MockUserEvents
func NewMockUserEvents() *MockUserEvents {
	return &MockUserEvents{}
}

func (m *MockUserEvents) Publish(ev domain.UserEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Helper methods for testing

func (m *MockUserEvents) Events() []domain.UserEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.UserEvent(nil), m.events...)
}

func (m *MockUserEvents) Last() *domain.UserEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	ev := m.events[len(m.events)-1]
	return &ev
}

func (m *MockUserEvents) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
