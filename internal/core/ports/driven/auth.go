package driven

import "github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"

// AuthAdapter handles authentication cryptographic operations.
// Implementations must be safe for concurrent use.
type AuthAdapter interface {
	// HashPassword generates a bcrypt hash from a plaintext password
	HashPassword(password string) (string, error)

	// VerifyPassword checks if a password matches a hash
	VerifyPassword(password, hash string) bool

	// GenerateToken creates a signed access token from claims
	GenerateToken(claims *domain.AccessClaims) (string, error)

	// ParseToken validates an access token and extracts its claims.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	ParseToken(token string) (*domain.AccessClaims, error)
}
