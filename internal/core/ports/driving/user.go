package driving

import (
	"context"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// CreateUserRequest represents a request to create a new user record
type CreateUserRequest struct {
	PersonIdentifier string `json:"person_identifier"`
}

// UpdateStatusRequest closes or reopens a user record. An empty ClosedCode
// clears the code and reactivates the record.
type UpdateStatusRequest struct {
	ClosedCode string `json:"closed_code"`
}

// UpdateAttributesRequest replaces the full help-desk reference list. An empty
// list clears it; the list is never merged.
type UpdateAttributesRequest struct {
	HelpDeskReferences []string `json:"help_desk_references"`
}

// ChangeIdentifierRequest moves a user record to a new person identifier. The
// old record is deactivated and linked as the previous record of the new one.
type ChangeIdentifierRequest struct {
	CurrentIdentifier string `json:"current_identifier"`
	NewIdentifier     string `json:"new_identifier"`
}

// UserService is the user-record lifecycle engine. Every operation acts on a
// single record and is atomic against the record store.
type UserService interface {
	// Create creates an active record for the person identifier
	Create(ctx context.Context, req CreateUserRequest) (*domain.User, error)

	// Get retrieves a user record by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// Search finds records by person identifier. Returns an empty slice when
	// nothing matches; at most one live record can exist per identifier.
	Search(ctx context.Context, personIdentifier string) ([]*domain.User, error)

	// UpdateStatus sets or clears the closed code
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*domain.User, error)

	// UpdateAttributes replaces the help-desk reference list
	UpdateAttributes(ctx context.Context, id string, req UpdateAttributesRequest) (*domain.User, error)

	// RecordLogin records a login with the given eID at the given time,
	// creating the login entry on first use
	RecordLogin(ctx context.Context, id, eidName string, at time.Time) (*domain.User, error)

	// ChangeIdentifier supersedes the current record with a new one carrying
	// the new person identifier
	ChangeIdentifier(ctx context.Context, req ChangeIdentifierRequest) (*domain.User, error)

	// Delete removes a user record entirely. Administrative erasure only;
	// deactivation through UpdateStatus is the normal lifecycle path.
	Delete(ctx context.Context, id string) error
}
