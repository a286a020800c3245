package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

func TestBusDeliversEvents(t *testing.T) {
	bus := NewBus(8, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var seen []domain.UserEventType
	go bus.Run(ctx, func(_ context.Context, ev domain.UserEvent) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})

	bus.Publish(domain.UserEvent{Type: domain.UserCreated, User: &domain.User{ID: "a"}})
	bus.Publish(domain.UserEvent{Type: domain.UserUpdated, User: &domain.User{ID: "a"}})

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 2 events, got %d", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-bus.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != domain.UserCreated || seen[1] != domain.UserUpdated {
		t.Errorf("expected in-order delivery, got %v", seen)
	}
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(1, nil, nil)

	// No consumer running; the second publish overflows the buffer and must
	// be dropped rather than block.
	done := make(chan struct{})
	go func() {
		bus.Publish(domain.UserEvent{Type: domain.UserCreated})
		bus.Publish(domain.UserEvent{Type: domain.UserCreated})
		bus.Publish(domain.UserEvent{Type: domain.UserCreated})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Publish to drop events instead of blocking")
	}
}

func TestBusDrainsBufferedEventsOnShutdown(t *testing.T) {
	bus := NewBus(8, nil, nil)
	bus.Publish(domain.UserEvent{Type: domain.UserCreated, User: &domain.User{ID: "a"}})
	bus.Publish(domain.UserEvent{Type: domain.UserUpdated, User: &domain.User{ID: "a"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var mu sync.Mutex
	count := 0
	bus.Run(ctx, func(_ context.Context, ev domain.UserEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	if count != 2 {
		t.Errorf("expected buffered events to drain on shutdown, handled %d", count)
	}
}
