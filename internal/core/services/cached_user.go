package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
)

// Ensure cachedUserService implements UserService
var _ driving.UserService = (*cachedUserService)(nil)

// cachedUserService is a read-through cache in front of the lifecycle
// service. Reads are served from the cache when possible; misses fall through
// to the inner service and emit a read event so the asynchronous listener
// repopulates the cache. The read path never writes cache entries itself,
// which keeps concurrent writers from pinning half-updated records.
//
// All writes delegate to the inner service; cache maintenance happens only in
// HandleEvent, driven by the domain events the inner service publishes.
type cachedUserService struct {
	inner  driving.UserService
	cache  driven.UserCache
	events driven.UserEvents
	logger *slog.Logger
}

// NewCachedUserService wraps inner with the read-through cache. Wire
// HandleEvent as the event-bus listener for the returned service.
func NewCachedUserService(
	inner driving.UserService,
	cache driven.UserCache,
	events driven.UserEvents,
	logger *slog.Logger,
) driving.UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedUserService{
		inner:  inner,
		cache:  cache,
		events: events,
		logger: logger,
	}
}

// Create delegates to the lifecycle service
func (s *cachedUserService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	return s.inner.Create(ctx, req)
}

// Get resolves id -> person identifier through the secondary index, then
// serves the record from the primary cache. Any miss falls through.
func (s *cachedUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	pid, err := s.cache.GetIdentifier(ctx, id)
	if err == nil {
		if user, err := s.cache.GetByPersonIdentifier(ctx, pid); err == nil {
			return user, nil
		}
	}

	user, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(domain.UserEvent{Type: domain.UserRead, User: user})
	return user, nil
}

// Search serves the primary cache entry when present, otherwise falls through
func (s *cachedUserService) Search(ctx context.Context, personIdentifier string) ([]*domain.User, error) {
	if user, err := s.cache.GetByPersonIdentifier(ctx, personIdentifier); err == nil {
		return []*domain.User{user}, nil
	}

	users, err := s.inner.Search(ctx, personIdentifier)
	if err != nil {
		return nil, err
	}
	if len(users) == 1 {
		s.events.Publish(domain.UserEvent{Type: domain.UserRead, User: users[0]})
	}
	return users, nil
}

// UpdateStatus delegates to the lifecycle service
func (s *cachedUserService) UpdateStatus(ctx context.Context, id string, req driving.UpdateStatusRequest) (*domain.User, error) {
	return s.inner.UpdateStatus(ctx, id, req)
}

// UpdateAttributes delegates to the lifecycle service
func (s *cachedUserService) UpdateAttributes(ctx context.Context, id string, req driving.UpdateAttributesRequest) (*domain.User, error) {
	return s.inner.UpdateAttributes(ctx, id, req)
}

// RecordLogin delegates to the lifecycle service
func (s *cachedUserService) RecordLogin(ctx context.Context, id, eidName string, at time.Time) (*domain.User, error) {
	return s.inner.RecordLogin(ctx, id, eidName, at)
}

// ChangeIdentifier delegates to the lifecycle service
func (s *cachedUserService) ChangeIdentifier(ctx context.Context, req driving.ChangeIdentifierRequest) (*domain.User, error) {
	return s.inner.ChangeIdentifier(ctx, req)
}

// Delete delegates to the lifecycle service
func (s *cachedUserService) Delete(ctx context.Context, id string) error {
	return s.inner.Delete(ctx, id)
}

// HandleEvent applies one domain event to the cache. Best effort: a failed
// cache write is logged and dropped, the next event or fallthrough read heals
// the entry.
func (s *cachedUserService) HandleEvent(ctx context.Context, ev domain.UserEvent) {
	var err error
	switch ev.Type {
	case domain.UserCreated, domain.UserUpdated, domain.UserRead:
		// Superseded records are never cached; serving them by identifier
		// would shadow the live record on the other end of the chain.
		if !ev.User.Superseded() {
			err = s.cache.Set(ctx, ev.User)
		}

	case domain.UserDeleted:
		err = s.cache.Remove(ctx, ev.User.PersonIdentifier, ev.User.ID)

	case domain.UserIdentifierChanged:
		oldID := ""
		if ev.User.PreviousUserID != nil {
			oldID = *ev.User.PreviousUserID
		}
		if err = s.cache.Remove(ctx, ev.OldPersonIdentifier, oldID); err == nil {
			err = s.cache.Set(ctx, ev.User)
		}
	}
	if err != nil {
		s.logger.Warn("cache event handling failed",
			"event", string(ev.Type),
			"error", err,
		)
	}
}

// CacheListener extracts the event handler from a cached service so the
// runtime can subscribe it to the event bus. Returns nil for an uncached
// service.
func CacheListener(svc driving.UserService) func(context.Context, domain.UserEvent) {
	cached, ok := svc.(*cachedUserService)
	if !ok {
		return nil
	}
	return cached.HandleEvent
}
