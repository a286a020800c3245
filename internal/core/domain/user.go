package domain

import (
	"strings"
	"time"
)

// ClosedCodeChangedPID marks a record that was superseded by a person-identifier
// change. The old record is deactivated with this code, never deleted.
const ClosedCodeChangedPID = "CHANGED_PID"

// User represents one identity record. The ID is assigned by the store on
// creation and never supplied by callers. Active status is derived from
// ClosedCode, not stored independently.
type User struct {
	ID                    string      `json:"id"`
	PersonIdentifier      string      `json:"person_identifier"`
	ClosedCode            string      `json:"closed_code,omitempty"`
	ClosedCodeLastUpdated *time.Time  `json:"closed_code_last_updated,omitempty"`
	HelpDeskReferences    []string    `json:"help_desk_references,omitempty"`
	Logins                []UserLogin `json:"logins,omitempty"`
	Created               time.Time   `json:"created"`
	LastModified          time.Time   `json:"last_modified"`

	// Identifier-change chain. A record with NextUserID set has been
	// superseded; PreviousUserID points back from the replacement.
	PreviousUserID *string `json:"previous_user_id,omitempty"`
	NextUserID     *string `json:"next_user_id,omitempty"`
}

// UserLogin tracks usage of one authentication method (eID) for a user.
// FirstLogin is set once and never changes; LastLogin moves on every login.
type UserLogin struct {
	EIDName    string    `json:"eid_name"`
	FirstLogin time.Time `json:"first_login"`
	LastLogin  time.Time `json:"last_login"`
}

// Active reports whether the record is active. A record is active exactly when
// it carries no closed code.
func (u *User) Active() bool {
	return u.ClosedCode == ""
}

// Superseded reports whether the record has been replaced through an
// identifier change.
func (u *User) Superseded() bool {
	return u.NextUserID != nil && *u.NextUserID != ""
}

// FindLogin returns the login entry matching the eID name, ignoring case.
func (u *User) FindLogin(eidName string) *UserLogin {
	for i := range u.Logins {
		if strings.EqualFold(u.Logins[i].EIDName, eidName) {
			return &u.Logins[i]
		}
	}
	return nil
}
