package http

import (
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
)

// UserConverter maps the internal user record to one external protocol's
// resource shape. Converters are stateless and pure; all lifecycle logic
// stays behind the driving interface.
type UserConverter interface {
	Convert(user *domain.User) any
}

func msPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Login API resource

type loginUserResource struct {
	ID               string               `json:"id"`
	PersonIdentifier string               `json:"person_identifier"`
	Active           bool                 `json:"active"`
	ClosedCode       string               `json:"closed_code,omitempty"`
	Logins           []loginEntryResource `json:"logins,omitempty"`
}

type loginEntryResource struct {
	EID        string `json:"eid"`
	FirstLogin int64  `json:"first_login"`
	LastLogin  int64  `json:"last_login"`
}

// LoginConverter renders the shape consumed by the login-flow API
type LoginConverter struct{}

func (LoginConverter) Convert(user *domain.User) any {
	res := loginUserResource{
		ID:               user.ID,
		PersonIdentifier: user.PersonIdentifier,
		Active:           user.Active(),
		ClosedCode:       user.ClosedCode,
	}
	for _, l := range user.Logins {
		res.Logins = append(res.Logins, loginEntryResource{
			EID:        l.EIDName,
			FirstLogin: l.FirstLogin.UnixMilli(),
			LastLogin:  l.LastLogin.UnixMilli(),
		})
	}
	return res
}

// Admin API resource, the full record including the supersession chain

type adminUserResource struct {
	ID                    string               `json:"id"`
	PersonIdentifier      string               `json:"person_identifier"`
	Active                bool                 `json:"active"`
	ClosedCode            string               `json:"closed_code,omitempty"`
	ClosedCodeLastUpdated *int64               `json:"closed_code_last_updated,omitempty"`
	HelpDeskReferences    []string             `json:"help_desk_references,omitempty"`
	Logins                []loginEntryResource `json:"logins,omitempty"`
	Created               int64                `json:"created"`
	LastModified          int64                `json:"last_modified"`
	PreviousUserID        *string              `json:"previous_user_id,omitempty"`
	NextUserID            *string              `json:"next_user_id,omitempty"`
}

// AdminConverter renders the unabridged record for the admin API
type AdminConverter struct{}

func (AdminConverter) Convert(user *domain.User) any {
	res := adminUserResource{
		ID:                    user.ID,
		PersonIdentifier:      user.PersonIdentifier,
		Active:                user.Active(),
		ClosedCode:            user.ClosedCode,
		ClosedCodeLastUpdated: msPtr(user.ClosedCodeLastUpdated),
		HelpDeskReferences:    user.HelpDeskReferences,
		Created:               user.Created.UnixMilli(),
		LastModified:          user.LastModified.UnixMilli(),
		PreviousUserID:        user.PreviousUserID,
		NextUserID:            user.NextUserID,
	}
	for _, l := range user.Logins {
		res.Logins = append(res.Logins, loginEntryResource{
			EID:        l.EIDName,
			FirstLogin: l.FirstLogin.UnixMilli(),
			LastLogin:  l.LastLogin.UnixMilli(),
		})
	}
	return res
}

// IM adapter resource, the legacy CRUD shape

type imUserResource struct {
	UserID       string   `json:"userId"`
	Pid          string   `json:"pid"`
	Status       string   `json:"status"`
	ClosedCode   string   `json:"closedCode,omitempty"`
	HelpDeskRefs []string `json:"helpDeskRefs,omitempty"`
	Created      int64    `json:"created"`
	LastModified int64    `json:"lastModified"`
}

// IMConverter renders the legacy IM adapter shape
type IMConverter struct{}

func (IMConverter) Convert(user *domain.User) any {
	status := "active"
	if !user.Active() {
		status = "closed"
	}
	return imUserResource{
		UserID:       user.ID,
		Pid:          user.PersonIdentifier,
		Status:       status,
		ClosedCode:   user.ClosedCode,
		HelpDeskRefs: user.HelpDeskReferences,
		Created:      user.Created.UnixMilli(),
		LastModified: user.LastModified.UnixMilli(),
	}
}

// SCIM resource, simple field mapping only

type scimUserResource struct {
	Schemas  []string `json:"schemas"`
	ID       string   `json:"id"`
	UserName string   `json:"userName"`
	Active   bool     `json:"active"`
	Meta     scimMeta `json:"meta"`
}

type scimMeta struct {
	ResourceType string `json:"resourceType"`
	Created      string `json:"created"`
	LastModified string `json:"lastModified"`
}

// SCIMConverter renders a minimal SCIM User
type SCIMConverter struct{}

func (SCIMConverter) Convert(user *domain.User) any {
	return scimUserResource{
		Schemas:  []string{"urn:ietf:params:scim:schemas:core:2.0:User"},
		ID:       user.ID,
		UserName: user.PersonIdentifier,
		Active:   user.Active(),
		Meta: scimMeta{
			ResourceType: "User",
			Created:      user.Created.UTC().Format(time.RFC3339),
			LastModified: user.LastModified.UTC().Format(time.RFC3339),
		},
	}
}
