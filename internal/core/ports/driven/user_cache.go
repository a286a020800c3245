package driven

import (
	"context"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// UserCache is the read-through cache in front of the user store (Redis).
// Two maps are kept: person identifier -> record (primary) and record id ->
// person identifier (secondary index). Misses surface as
// domain.ErrRecordNotFound.
type UserCache interface {
	// GetByPersonIdentifier retrieves a cached record by person identifier
	GetByPersonIdentifier(ctx context.Context, pid string) (*domain.User, error)

	// GetIdentifier resolves a record id to its person identifier via the
	// secondary index
	GetIdentifier(ctx context.Context, id string) (string, error)

	// Set stores both the primary entry and the secondary index entry
	Set(ctx context.Context, user *domain.User) error

	// Remove drops the primary entry for pid and the secondary entry for id.
	// Either argument may be empty.
	Remove(ctx context.Context, pid, id string) error
}
