package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrRecordNotFound indicates the referenced id or identifier does not
	// resolve to a user record
	ErrRecordNotFound = errors.New("user record not found")

	// ErrDuplicateRecord indicates a create or identifier change would violate
	// person-identifier uniqueness
	ErrDuplicateRecord = errors.New("duplicate user record")

	// ErrInvalidIdentifier indicates the person identifier fails format or
	// policy validation
	ErrInvalidIdentifier = errors.New("invalid person identifier")

	// ErrInvalidAttribute indicates a field fails its format constraint
	// (closed code, help-desk reference, eID name)
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrStoreUnavailable indicates the record store cannot be reached
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrTokenInvalid indicates a malformed or badly signed access token
	ErrTokenInvalid = errors.New("invalid access token")

	// ErrTokenExpired indicates an access token past its expiry
	ErrTokenExpired = errors.New("access token expired")
)
