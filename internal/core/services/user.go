package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
)

// Ensure userService implements UserService
var _ driving.UserService = (*userService)(nil)

// userService implements the user-record lifecycle engine. Every operation is
// atomic against the store; successful writes publish a domain event for the
// cache listener (fire-and-forget).
type userService struct {
	store     driven.UserStore
	validator driven.PIDValidator
	events    driven.UserEvents
	logger    *slog.Logger
}

// NewUserService creates a new UserService. events may be nil when no cache
// listener is wired.
func NewUserService(
	store driven.UserStore,
	validator driven.PIDValidator,
	events driven.UserEvents,
	logger *slog.Logger,
) driving.UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		store:     store,
		validator: validator,
		events:    events,
		logger:    logger,
	}
}

// Create creates an active record for the person identifier. The identifier
// must pass the current validation policy and must never have been used
// before, not even by a record since superseded.
func (s *userService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req.PersonIdentifier); err != nil {
		return nil, err
	}

	inUse, err := s.store.IdentifierInUse(ctx, req.PersonIdentifier)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, domain.ErrDuplicateRecord
	}

	user := &domain.User{PersonIdentifier: req.PersonIdentifier}
	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	s.publish(domain.UserEvent{Type: domain.UserCreated, User: user})
	s.logger.Info("user record created", "user_id", user.ID)
	return user, nil
}

// Get retrieves a user record by ID
func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.store.Get(ctx, id)
}

// Search finds records by person identifier. The store guarantees at most one
// live record per identifier, so the result has zero or one entries.
func (s *userService) Search(ctx context.Context, personIdentifier string) ([]*domain.User, error) {
	if err := s.validator.Validate(personIdentifier); err != nil {
		return nil, err
	}

	user, err := s.store.GetByPersonIdentifier(ctx, personIdentifier)
	if err != nil {
		if err == domain.ErrRecordNotFound {
			return []*domain.User{}, nil
		}
		return nil, err
	}
	return []*domain.User{user}, nil
}

// UpdateStatus sets or clears the closed code. Three branches, deliberately
// kept apart: an identical code is a no-op so the change timestamp is not
// re-stamped on repeated writes; an empty code clears and reactivates; a new
// code closes the record and stamps the transition.
func (s *userService) UpdateStatus(ctx context.Context, id string, req driving.UpdateStatusRequest) (*domain.User, error) {
	if !domain.ValidClosedCode(req.ClosedCode) {
		return nil, fmt.Errorf("%w: malformed closed code", domain.ErrInvalidAttribute)
	}

	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case req.ClosedCode == user.ClosedCode:
		return user, nil

	case req.ClosedCode == "":
		user.ClosedCode = ""
		user.ClosedCodeLastUpdated = nil

	default:
		now := time.Now()
		user.ClosedCode = req.ClosedCode
		user.ClosedCodeLastUpdated = &now
	}

	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	s.publish(domain.UserEvent{Type: domain.UserUpdated, User: user})
	s.logger.Info("user status updated", "user_id", user.ID, "active", user.Active())
	return user, nil
}

// UpdateAttributes replaces the full help-desk reference list. Blank or
// malformed entries are rejected, never silently dropped.
func (s *userService) UpdateAttributes(ctx context.Context, id string, req driving.UpdateAttributesRequest) (*domain.User, error) {
	for _, ref := range req.HelpDeskReferences {
		if !domain.ValidHelpDeskReference(ref) {
			return nil, fmt.Errorf("%w: malformed help-desk reference", domain.ErrInvalidAttribute)
		}
	}

	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.HelpDeskReferences = req.HelpDeskReferences
	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	s.publish(domain.UserEvent{Type: domain.UserUpdated, User: user})
	return user, nil
}

// RecordLogin records a login with the given eID at the given time. Matching
// against existing login entries ignores case; reprocessing the same event is
// safe because only LastLogin moves.
func (s *userService) RecordLogin(ctx context.Context, id, eidName string, at time.Time) (*domain.User, error) {
	if !domain.ValidEIDName(eidName) {
		return nil, fmt.Errorf("%w: malformed eID name", domain.ErrInvalidAttribute)
	}

	user, err := s.store.UpsertLogin(ctx, id, eidName, at)
	if err != nil {
		return nil, err
	}

	s.publish(domain.UserEvent{Type: domain.UserUpdated, User: user})
	return user, nil
}

// ChangeIdentifier supersedes the record holding the current identifier with
// a fresh active record for the new one. Both sides are committed in a single
// store transaction; the old record stays behind, deactivated and linked.
func (s *userService) ChangeIdentifier(ctx context.Context, req driving.ChangeIdentifierRequest) (*domain.User, error) {
	if err := s.validator.Validate(req.NewIdentifier); err != nil {
		return nil, err
	}

	current, err := s.store.GetByPersonIdentifier(ctx, req.CurrentIdentifier)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetByPersonIdentifier(ctx, req.NewIdentifier); err == nil {
		return nil, domain.ErrDuplicateRecord
	} else if err != domain.ErrRecordNotFound {
		return nil, err
	}

	replacement := &domain.User{PersonIdentifier: req.NewIdentifier}
	replacement, err = s.store.Supersede(ctx, current, replacement)
	if err != nil {
		return nil, err
	}

	s.publish(domain.UserEvent{
		Type:                domain.UserIdentifierChanged,
		User:                replacement,
		OldPersonIdentifier: req.CurrentIdentifier,
	})
	s.logger.Info("person identifier changed",
		"old_user_id", current.ID,
		"new_user_id", replacement.ID,
	)
	return replacement, nil
}

// Delete erases a record entirely. The loaded record rides on the event so
// the cache listener knows which keys to drop.
func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(domain.UserEvent{Type: domain.UserDeleted, User: user})
	s.logger.Info("user record deleted", "user_id", id)
	return nil
}

func (s *userService) publish(ev domain.UserEvent) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}
