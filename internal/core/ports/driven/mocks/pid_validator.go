package mocks

import (
	"fmt"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// MockPIDValidator accepts everything unless told otherwise
type MockPIDValidator struct {
	// Reject lists identifiers that fail validation
	Reject map[string]bool
}

// NewMockPIDValidator creates a validator that accepts all identifiers
func NewMockPIDValidator() *MockPIDValidator {
	return &MockPIDValidator{Reject: make(map[string]bool)}
}

func (m *MockPIDValidator) Validate(pid string) error {
	if pid == "" || m.Reject[pid] {
		return fmt.Errorf("%w: rejected by policy", domain.ErrInvalidIdentifier)
	}
	return nil
}
