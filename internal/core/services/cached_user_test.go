package services

import (
	"context"
	"testing"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven/mocks"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
)

func newTestCachedService() (*mocks.MockUserStore, *mocks.MockUserCache, *mocks.MockUserEvents, *cachedUserService) {
	store := mocks.NewMockUserStore()
	validator := mocks.NewMockPIDValidator()
	events := mocks.NewMockUserEvents()
	cache := mocks.NewMockUserCache()
	inner := NewUserService(store, validator, events, nil)
	svc := NewCachedUserService(inner, cache, events, nil).(*cachedUserService)
	return store, cache, events, svc
}

// drainEvents feeds every published event through the cache listener, playing
// the role of the asynchronous bus.
func drainEvents(ctx context.Context, events *mocks.MockUserEvents, svc *cachedUserService) {
	for _, ev := range events.Events() {
		svc.HandleEvent(ctx, ev)
	}
	events.Reset()
}

func TestCachedUserService_ReadPathDoesNotPopulateCache(t *testing.T) {
	_, cache, _, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Events not yet processed: the fallthrough read must not write the
	// cache synchronously.
	if _, err := svc.Get(ctx, user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.Count() != 0 {
		t.Error("expected read path to leave cache population to the event listener")
	}
}

func TestCachedUserService_EventListenerPopulatesCache(t *testing.T) {
	store, cache, events, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	if cache.Count() != 1 {
		t.Fatal("expected created event to populate the cache")
	}

	// Served from cache even with the store down
	store.Unavailable = true
	got, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("expected cache hit, got error: %v", err)
	}
	if got.PersonIdentifier != testPID {
		t.Errorf("expected cached record, got %+v", got)
	}

	users, err := svc.Search(ctx, testPID)
	if err != nil {
		t.Fatalf("expected cache hit on search, got error: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected one cached record, got %d", len(users))
	}
}

func TestCachedUserService_StatusUpdateReachesCacheViaEvents(t *testing.T) {
	_, _, events, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	if _, err := svc.UpdateStatus(ctx, user.ID, driving.UpdateStatusRequest{ClosedCode: "SPERRET"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	got, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Active() || got.ClosedCode != "SPERRET" {
		t.Errorf("expected cache to reflect the committed status, got %+v", got)
	}

	users, err := svc.Search(ctx, testPID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].ClosedCode != "SPERRET" {
		t.Error("expected identifier lookup to reflect the committed status")
	}
}

func TestCachedUserService_IdentifierChangeMovesCacheEntries(t *testing.T) {
	_, cache, events, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	replacement, err := svc.ChangeIdentifier(ctx, driving.ChangeIdentifierRequest{
		CurrentIdentifier: testPID,
		NewIdentifier:     "10987654321",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	if _, err := cache.GetByPersonIdentifier(ctx, testPID); err != domain.ErrRecordNotFound {
		t.Error("expected old identifier's primary entry to be removed")
	}
	if _, err := cache.GetIdentifier(ctx, user.ID); err != domain.ErrRecordNotFound {
		t.Error("expected old record's secondary entry to be removed")
	}

	cached, err := cache.GetByPersonIdentifier(ctx, "10987654321")
	if err != nil {
		t.Fatalf("expected new identifier to be cached: %v", err)
	}
	if cached.ID != replacement.ID {
		t.Errorf("expected cached replacement record, got %+v", cached)
	}
}

func TestCachedUserService_DeleteEvictsBothEntries(t *testing.T) {
	_, cache, events, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	if cache.Count() != 1 {
		t.Fatal("expected created event to populate the cache")
	}

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	if cache.Count() != 0 {
		t.Error("expected deleted event to evict the cached record")
	}
	if _, err := svc.Get(ctx, user.ID); err != domain.ErrRecordNotFound {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestCachedUserService_SupersededRecordsAreNotCached(t *testing.T) {
	_, cache, events, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ChangeIdentifier(ctx, driving.ChangeIdentifierRequest{
		CurrentIdentifier: testPID,
		NewIdentifier:     "10987654321",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events.Reset()

	// A read of the superseded record falls through and emits a read event,
	// but the listener must not resurrect the old identifier's entry.
	if _, err := svc.Get(ctx, user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drainEvents(ctx, events, svc)

	if _, err := cache.GetByPersonIdentifier(ctx, testPID); err != domain.ErrRecordNotFound {
		t.Error("expected superseded record to stay out of the cache")
	}
}

func TestCachedUserService_RecordLoginDelegates(t *testing.T) {
	store, _, _, svc := newTestCachedService()
	ctx := context.Background()

	user, err := svc.Create(ctx, driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Now()
	if _, err := svc.RecordLogin(ctx, user.ID, "MinID", at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := store.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored.Logins) != 1 || !stored.Logins[0].LastLogin.Equal(at) {
		t.Errorf("expected login recorded in store, got %+v", stored.Logins)
	}
}
