package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
)

// MockLoginQueue is an in-memory implementation of LoginQueue for testing.
// Published events sit in a slice; Consume drains them through the handler.
// Events whose handler fails move to the pending set, which ProcessPending
// retries.
type MockLoginQueue struct {
	mu        sync.Mutex
	published []domain.LoginEvent
	pending   []domain.LoginEvent
	removed   bool
	PingErr   error
}

// NewMockLoginQueue creates a new MockLoginQueue
func NewMockLoginQueue() *MockLoginQueue {
	return &MockLoginQueue{}
}

func (m *MockLoginQueue) Publish(ctx context.Context, ev domain.LoginEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, ev)
	return nil
}

func (m *MockLoginQueue) Consume(ctx context.Context, block time.Duration, handler driven.LoginHandler) (int, error) {
	m.mu.Lock()
	events := m.published
	m.published = nil
	m.mu.Unlock()

	processed := 0
	for _, ev := range events {
		if err := handler(ctx, ev); err != nil {
			m.mu.Lock()
			m.pending = append(m.pending, ev)
			m.mu.Unlock()
			continue
		}
		processed++
	}
	return processed, nil
}

func (m *MockLoginQueue) ProcessPending(ctx context.Context, handler driven.LoginHandler) (int, error) {
	m.mu.Lock()
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	processed := 0
	for _, ev := range events {
		if err := handler(ctx, ev); err != nil {
			m.mu.Lock()
			m.pending = append(m.pending, ev)
			m.mu.Unlock()
			continue
		}
		processed++
	}
	return processed, nil
}

func (m *MockLoginQueue) ReclaimOrphans(ctx context.Context, handler driven.LoginHandler) (int, error) {
	return 0, nil
}

func (m *MockLoginQueue) RemoveConsumer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
	return nil
}

func (m *MockLoginQueue) Ping(ctx context.Context) error {
	return m.PingErr
}

// Helper methods for testing

func (m *MockLoginQueue) Published() []domain.LoginEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LoginEvent(nil), m.published...)
}

func (m *MockLoginQueue) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *MockLoginQueue) ConsumerRemoved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}
