package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven/mocks"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
)

const testPID = "12345678901"

func newTestUserService() (*mocks.MockUserStore, *mocks.MockPIDValidator, *mocks.MockUserEvents, *userService) {
	store := mocks.NewMockUserStore()
	validator := mocks.NewMockPIDValidator()
	events := mocks.NewMockUserEvents()
	svc := NewUserService(store, validator, events, nil).(*userService)
	return store, validator, events, svc
}

func mustCreate(t *testing.T, svc *userService, pid string) *domain.User {
	t.Helper()
	user, err := svc.Create(context.Background(), driving.CreateUserRequest{PersonIdentifier: pid})
	if err != nil {
		t.Fatalf("unexpected error creating user: %v", err)
	}
	return user
}

func TestUserService_Create(t *testing.T) {
	_, _, events, svc := newTestUserService()

	user := mustCreate(t, svc, testPID)

	if user.ID == "" {
		t.Error("expected store-assigned id")
	}
	if !user.Active() {
		t.Error("expected new record to be active")
	}
	if user.ClosedCode != "" {
		t.Errorf("expected empty closed code, got %q", user.ClosedCode)
	}
	if user.Created.IsZero() || user.LastModified.IsZero() {
		t.Error("expected store-stamped timestamps")
	}
	if ev := events.Last(); ev == nil || ev.Type != domain.UserCreated {
		t.Errorf("expected created event, got %+v", ev)
	}
}

func TestUserService_Create_InvalidIdentifier(t *testing.T) {
	_, validator, _, svc := newTestUserService()
	validator.Reject["bogus"] = true

	_, err := svc.Create(context.Background(), driving.CreateUserRequest{PersonIdentifier: "bogus"})
	if !errors.Is(err, domain.ErrInvalidIdentifier) {
		t.Errorf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestUserService_Create_Duplicate(t *testing.T) {
	_, _, _, svc := newTestUserService()
	mustCreate(t, svc, testPID)

	_, err := svc.Create(context.Background(), driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != domain.ErrDuplicateRecord {
		t.Errorf("expected ErrDuplicateRecord, got %v", err)
	}
}

func TestUserService_Create_ConsumedIdentifierNotReusable(t *testing.T) {
	_, _, _, svc := newTestUserService()
	mustCreate(t, svc, testPID)

	// Move the record off the identifier, leaving a superseded record behind
	_, err := svc.ChangeIdentifier(context.Background(), driving.ChangeIdentifierRequest{
		CurrentIdentifier: testPID,
		NewIdentifier:     "10987654321",
	})
	if err != nil {
		t.Fatalf("unexpected error changing identifier: %v", err)
	}

	// The consumed identifier stays burned for plain creates
	_, err = svc.Create(context.Background(), driving.CreateUserRequest{PersonIdentifier: testPID})
	if err != domain.ErrDuplicateRecord {
		t.Errorf("expected ErrDuplicateRecord for consumed identifier, got %v", err)
	}
}

func TestUserService_Search(t *testing.T) {
	_, _, _, svc := newTestUserService()
	created := mustCreate(t, svc, testPID)

	users, err := svc.Search(context.Background(), testPID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].ID != created.ID {
		t.Errorf("expected exactly the created record, got %+v", users)
	}

	users, err = svc.Search(context.Background(), "10987654321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected empty result for unknown identifier, got %d records", len(users))
	}
}

func TestUserService_UpdateStatus_CloseAndReopen(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)
	ctx := context.Background()

	closed, err := svc.UpdateStatus(ctx, user.ID, driving.UpdateStatusRequest{ClosedCode: "SPERRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.Active() {
		t.Error("expected record to be inactive after close")
	}
	if closed.ClosedCode != "SPERRET" {
		t.Errorf("expected closed code SPERRET, got %q", closed.ClosedCode)
	}
	if closed.ClosedCodeLastUpdated == nil {
		t.Fatal("expected closed code timestamp to be stamped")
	}

	reopened, err := svc.UpdateStatus(ctx, user.ID, driving.UpdateStatusRequest{ClosedCode: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reopened.Active() {
		t.Error("expected record to be active after reopen")
	}
	if reopened.ClosedCode != "" {
		t.Errorf("expected cleared closed code, got %q", reopened.ClosedCode)
	}
	if reopened.ClosedCodeLastUpdated != nil {
		t.Error("expected closed code timestamp to be cleared")
	}
}

func TestUserService_UpdateStatus_IdenticalCodeIsNoOp(t *testing.T) {
	_, _, events, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)
	ctx := context.Background()

	first, err := svc.UpdateStatus(ctx, user.ID, driving.UpdateStatusRequest{ClosedCode: "SPERRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstStamp := *first.ClosedCodeLastUpdated
	eventCount := len(events.Events())

	second, err := svc.UpdateStatus(ctx, user.ID, driving.UpdateStatusRequest{ClosedCode: "SPERRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.ClosedCodeLastUpdated.Equal(firstStamp) {
		t.Error("expected identical code not to re-stamp the change timestamp")
	}
	if len(events.Events()) != eventCount {
		t.Error("expected no event for the idempotent status write")
	}
}

func TestUserService_UpdateStatus_InvalidCode(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)

	_, err := svc.UpdateStatus(context.Background(), user.ID, driving.UpdateStatusRequest{ClosedCode: "9bad-"})
	if !errors.Is(err, domain.ErrInvalidAttribute) {
		t.Errorf("expected ErrInvalidAttribute, got %v", err)
	}
}

func TestUserService_UpdateStatus_NotFound(t *testing.T) {
	_, _, _, svc := newTestUserService()

	_, err := svc.UpdateStatus(context.Background(), "missing", driving.UpdateStatusRequest{ClosedCode: "X"})
	if err != domain.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUserService_UpdateAttributes(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)
	ctx := context.Background()

	updated, err := svc.UpdateAttributes(ctx, user.ID, driving.UpdateAttributesRequest{
		HelpDeskReferences: []string{"123456", "654321"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.HelpDeskReferences) != 2 {
		t.Fatalf("expected 2 references, got %d", len(updated.HelpDeskReferences))
	}

	// The list is replaced wholesale, not merged
	updated, err = svc.UpdateAttributes(ctx, user.ID, driving.UpdateAttributesRequest{
		HelpDeskReferences: []string{"999999"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.HelpDeskReferences) != 1 || updated.HelpDeskReferences[0] != "999999" {
		t.Errorf("expected replaced list [999999], got %v", updated.HelpDeskReferences)
	}

	// Empty input clears the list
	updated, err = svc.UpdateAttributes(ctx, user.ID, driving.UpdateAttributesRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.HelpDeskReferences) != 0 {
		t.Errorf("expected cleared list, got %v", updated.HelpDeskReferences)
	}
}

func TestUserService_UpdateAttributes_BlankReferenceRejected(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)

	_, err := svc.UpdateAttributes(context.Background(), user.ID, driving.UpdateAttributesRequest{
		HelpDeskReferences: []string{"123456", ""},
	})
	if !errors.Is(err, domain.ErrInvalidAttribute) {
		t.Errorf("expected ErrInvalidAttribute for blank entry, got %v", err)
	}
}

func TestUserService_RecordLogin_FirstAndRepeat(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)
	ctx := context.Background()

	t1 := time.Now().Add(-time.Hour)
	t2 := time.Now()

	updated, err := svc.RecordLogin(ctx, user.ID, "MinID", t1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Logins) != 1 {
		t.Fatalf("expected 1 login entry, got %d", len(updated.Logins))
	}
	if !updated.Logins[0].FirstLogin.Equal(t1) || !updated.Logins[0].LastLogin.Equal(t1) {
		t.Error("expected first and last login stamped to t1")
	}

	updated, err = svc.RecordLogin(ctx, user.ID, "MinID", t2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Logins) != 1 {
		t.Fatalf("expected reprocessing to keep a single entry, got %d", len(updated.Logins))
	}
	if !updated.Logins[0].FirstLogin.Equal(t1) {
		t.Error("expected FirstLogin to stay at t1")
	}
	if !updated.Logins[0].LastLogin.Equal(t2) {
		t.Error("expected LastLogin to move to t2")
	}
}

func TestUserService_RecordLogin_CaseInsensitiveMatch(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, user.ID, "MinID", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := svc.RecordLogin(ctx, user.ID, "minid", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Logins) != 1 {
		t.Errorf("expected case-insensitive match to update the same entry, got %d entries", len(updated.Logins))
	}
	if updated.Logins[0].EIDName != "MinID" {
		t.Errorf("expected original eID name to be kept, got %q", updated.Logins[0].EIDName)
	}
}

func TestUserService_RecordLogin_Invalid(t *testing.T) {
	_, _, _, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)

	if _, err := svc.RecordLogin(context.Background(), user.ID, "", time.Now()); !errors.Is(err, domain.ErrInvalidAttribute) {
		t.Errorf("expected ErrInvalidAttribute for empty eID name, got %v", err)
	}
	if _, err := svc.RecordLogin(context.Background(), "missing", "MinID", time.Now()); err != domain.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	store, _, events, svc := newTestUserService()
	user := mustCreate(t, svc, testPID)
	events.Reset()

	if err := svc.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Get(context.Background(), user.ID); err != domain.ErrRecordNotFound {
		t.Errorf("expected record gone, got %v", err)
	}

	evs := events.Events()
	if len(evs) != 1 || evs[0].Type != domain.UserDeleted {
		t.Fatalf("expected a single deleted event, got %+v", evs)
	}
	if evs[0].User.PersonIdentifier != testPID {
		t.Error("expected the deleted record on the event")
	}

	if err := svc.Delete(context.Background(), user.ID); err != domain.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
	}
}

func TestUserService_ChangeIdentifier(t *testing.T) {
	store, _, events, svc := newTestUserService()
	old := mustCreate(t, svc, testPID)
	ctx := context.Background()

	replacement, err := svc.ChangeIdentifier(ctx, driving.ChangeIdentifierRequest{
		CurrentIdentifier: testPID,
		NewIdentifier:     "10987654321",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !replacement.Active() {
		t.Error("expected replacement record to be active")
	}
	if replacement.PreviousUserID == nil || *replacement.PreviousUserID != old.ID {
		t.Error("expected replacement to link back to the old record")
	}

	oldStored, err := store.Get(ctx, old.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oldStored.Active() {
		t.Error("expected old record to be deactivated")
	}
	if !oldStored.Superseded() || *oldStored.NextUserID != replacement.ID {
		t.Error("expected old record to carry the next-record link")
	}

	// The old identifier no longer resolves to a live record
	users, err := svc.Search(ctx, testPID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected no live record for old identifier, got %d", len(users))
	}

	users, err = svc.Search(ctx, "10987654321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].ID != replacement.ID {
		t.Errorf("expected new identifier to resolve to the replacement, got %+v", users)
	}

	ev := events.Last()
	if ev == nil || ev.Type != domain.UserIdentifierChanged {
		t.Fatalf("expected identifier_changed event, got %+v", ev)
	}
	if ev.OldPersonIdentifier != testPID {
		t.Errorf("expected event to carry old identifier, got %q", ev.OldPersonIdentifier)
	}
}

func TestUserService_ChangeIdentifier_Errors(t *testing.T) {
	_, _, _, svc := newTestUserService()
	mustCreate(t, svc, testPID)
	mustCreate(t, svc, "10987654321")
	ctx := context.Background()

	_, err := svc.ChangeIdentifier(ctx, driving.ChangeIdentifierRequest{
		CurrentIdentifier: "11111111111",
		NewIdentifier:     "22222222222",
	})
	if err != domain.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound for unknown current identifier, got %v", err)
	}

	_, err = svc.ChangeIdentifier(ctx, driving.ChangeIdentifierRequest{
		CurrentIdentifier: testPID,
		NewIdentifier:     "10987654321",
	})
	if err != domain.ErrDuplicateRecord {
		t.Errorf("expected ErrDuplicateRecord for occupied new identifier, got %v", err)
	}
}

