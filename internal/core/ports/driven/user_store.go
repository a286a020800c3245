package driven

import (
	"context"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// UserStore handles durable user persistence (PostgreSQL). The store owns all
// timestamp stamping: Created/LastModified on save, FirstLogin/LastLogin on
// login upsert. Callers never set these directly.
type UserStore interface {
	// Save creates or updates a user. On create (empty ID) the store assigns
	// a new UUID and stamps Created; every save stamps LastModified.
	Save(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID, including its login entries
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByPersonIdentifier retrieves the live (non-superseded) user for a
	// person identifier
	GetByPersonIdentifier(ctx context.Context, pid string) (*domain.User, error)

	// IdentifierInUse reports whether any record, superseded or not, carries
	// the person identifier
	IdentifierInUse(ctx context.Context, pid string) (bool, error)

	// UpsertLogin records a login for the eID name, matching existing entries
	// case-insensitively. FirstLogin is set once; LastLogin moves to at.
	// Returns the user with logins reloaded.
	UpsertLogin(ctx context.Context, userID, eidName string, at time.Time) (*domain.User, error)

	// Supersede deactivates old with domain.ClosedCodeChangedPID, inserts
	// replacement linked via the previous/next chain, and commits both in one
	// transaction. Returns the stored replacement.
	Supersede(ctx context.Context, old *domain.User, replacement *domain.User) (*domain.User, error)

	// Delete removes a user record. Outside the normal lifecycle flow; kept
	// for operational cleanup only.
	Delete(ctx context.Context, id string) error

	// Ping checks store connectivity. Used as the liveness gate before
	// pipeline retry passes.
	Ping(ctx context.Context) error
}
