// Package pid validates Norwegian person identifiers (fødselsnummer and
// D-numbers) against the service's acceptance policy.
package pid

import (
	"fmt"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PIDValidator = (*Validator)(nil)

// Policy decides which identifier classes the service accepts. The policy is
// injected at construction and re-checked on every call; there is no global
// toggle.
type Policy struct {
	// AcceptReal accepts ordinary fødselsnummer and D-numbers
	AcceptReal bool

	// AcceptSynthetic accepts synthetic test identifiers (month offset +80
	// for Tenor test data, +40 for Dolly)
	AcceptSynthetic bool
}

// Validator checks identifier format, checksum and class.
type Validator struct {
	policy Policy
}

// NewValidator creates a validator for the given policy.
func NewValidator(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// Mod-11 control digit weights for the two check digits.
var (
	weights1 = [9]int{3, 7, 6, 1, 8, 9, 4, 5, 2}
	weights2 = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
)

// Validate returns nil when pid is an 11-digit identifier with valid control
// digits and its class is accepted by the policy. Failures wrap
// domain.ErrInvalidIdentifier.
func (v *Validator) Validate(pid string) error {
	digits, err := parseDigits(pid)
	if err != nil {
		return err
	}

	if !checkControlDigits(digits) {
		return fmt.Errorf("%w: control digits do not match", domain.ErrInvalidIdentifier)
	}

	synthetic, err := classify(digits)
	if err != nil {
		return err
	}

	if synthetic && !v.policy.AcceptSynthetic {
		return fmt.Errorf("%w: synthetic identifiers not accepted", domain.ErrInvalidIdentifier)
	}
	if !synthetic && !v.policy.AcceptReal {
		return fmt.Errorf("%w: real identifiers not accepted", domain.ErrInvalidIdentifier)
	}
	return nil
}

func parseDigits(pid string) ([11]int, error) {
	var digits [11]int
	if len(pid) != 11 {
		return digits, fmt.Errorf("%w: must be 11 digits", domain.ErrInvalidIdentifier)
	}
	for i, c := range pid {
		if c < '0' || c > '9' {
			return digits, fmt.Errorf("%w: must be 11 digits", domain.ErrInvalidIdentifier)
		}
		digits[i] = int(c - '0')
	}
	return digits, nil
}

func checkControlDigits(d [11]int) bool {
	sum := 0
	for i, w := range weights1 {
		sum += w * d[i]
	}
	k1 := 11 - sum%11
	if k1 == 11 {
		k1 = 0
	}
	if k1 == 10 || k1 != d[9] {
		return false
	}

	sum = 0
	for i, w := range weights2 {
		sum += w * d[i]
	}
	k2 := 11 - sum%11
	if k2 == 11 {
		k2 = 0
	}
	return k2 != 10 && k2 == d[10]
}

// classify determines whether the identifier is synthetic from its month
// offset. Day offset +40 marks a D-number, which is a real identifier.
func classify(d [11]int) (synthetic bool, err error) {
	day := d[0]*10 + d[1]
	month := d[2]*10 + d[3]

	if day > 40 {
		day -= 40 // D-number
	}
	if day < 1 || day > 31 {
		return false, fmt.Errorf("%w: impossible day of birth", domain.ErrInvalidIdentifier)
	}

	switch {
	case month >= 1 && month <= 12:
		return false, nil
	case month >= 41 && month <= 52:
		return true, nil
	case month >= 81 && month <= 92:
		return true, nil
	default:
		return false, fmt.Errorf("%w: impossible month of birth", domain.ErrInvalidIdentifier)
	}
}
