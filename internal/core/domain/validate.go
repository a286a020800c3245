package domain

import "regexp"

const (
	maxClosedCodeLength  = 50
	maxEIDNameLength     = 50
	maxHelpDeskRefLength = 20
)

var (
	// Closed codes start with a letter, may contain letters, digits, hyphen
	// and underscore, and end with a letter or digit.
	closedCodePattern = regexp.MustCompile(`^[A-Za-z]([A-Za-z0-9_-]*[A-Za-z0-9])?$`)

	// eID names as reported by the login flow ("MinID", "BankID mobil", ...).
	eidNamePattern = regexp.MustCompile(`^[A-Za-z]([A-Za-z0-9 _-]*[A-Za-z0-9])?$`)

	// Help-desk case references are plain case numbers.
	helpDeskRefPattern = regexp.MustCompile(`^[0-9]+$`)
)

// ValidClosedCode reports whether code is usable as a closed code. The empty
// string is valid: it means "clear the code" (reopen).
func ValidClosedCode(code string) bool {
	if code == "" {
		return true
	}
	return len(code) <= maxClosedCodeLength && closedCodePattern.MatchString(code)
}

// ValidEIDName reports whether name is usable as an authentication-method name.
func ValidEIDName(name string) bool {
	return name != "" && len(name) <= maxEIDNameLength && eidNamePattern.MatchString(name)
}

// ValidHelpDeskReference reports whether ref is a well-formed case reference.
// Blank entries are rejected, not silently dropped.
func ValidHelpDeskReference(ref string) bool {
	return ref != "" && len(ref) <= maxHelpDeskRefLength && helpDeskRefPattern.MatchString(ref)
}
