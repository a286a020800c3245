package domain

import "time"

// UserEventType identifies what happened to a record.
type UserEventType string

const (
	UserCreated           UserEventType = "created"
	UserUpdated           UserEventType = "updated"
	UserRead              UserEventType = "read"
	UserDeleted           UserEventType = "deleted"
	UserIdentifierChanged UserEventType = "identifier_changed"
)

// UserEvent is emitted after every successful store operation. The cache
// listener consumes these to keep its entries consistent; emission is
// fire-and-forget so a slow listener never blocks a write.
type UserEvent struct {
	Type UserEventType
	User *User

	// OldPersonIdentifier is set on identifier_changed events so the stale
	// primary cache entry can be dropped.
	OldPersonIdentifier string
}

// LoginEvent is the payload carried on the login-update stream. LoginTime is
// the moment the login actually happened, not when the event is processed.
type LoginEvent struct {
	UserID    string
	EIDName   string
	LoginTime time.Time
}
