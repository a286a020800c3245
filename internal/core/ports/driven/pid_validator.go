package driven

// PIDValidator validates person identifiers against the current acceptance
// policy. Implementations return domain.ErrInvalidIdentifier (wrapped) when
// the identifier fails format, checksum or policy checks.
type PIDValidator interface {
	Validate(pid string) error
}
