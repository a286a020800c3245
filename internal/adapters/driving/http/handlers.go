package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
)

// ErrorResponse carries a stable machine-readable code and a description.
// Descriptions never echo back raw input; identifiers do not belong in
// responses or logs for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady gates readiness on store connectivity
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "record store unreachable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache_unavailable", "redis unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Login API - consumed by the login flow, search-or-create plus login
// recording

type searchRequest struct {
	PersonIdentifier string `json:"person_identifier"`
}

func (s *Server) handleLoginSearchUsers(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	users, err := s.userService.Search(r.Context(), req.PersonIdentifier)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertAll(LoginConverter{}, users))
}

func (s *Server) handleLoginCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, LoginConverter{}.Convert(user))
}

type recordLoginRequest struct {
	EIDName string `json:"eid_name"`

	// LoginTime is epoch milliseconds; zero means now
	LoginTime int64 `json:"login_time,omitempty"`
}

// handleLoginRecordLogin records a login. With a stream configured the event
// is enqueued and applied asynchronously; otherwise it is applied directly.
func (s *Server) handleLoginRecordLogin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req recordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if !domain.ValidEIDName(req.EIDName) {
		writeError(w, http.StatusBadRequest, "invalid_attribute", "malformed eID name")
		return
	}

	at := time.Now()
	if req.LoginTime != 0 {
		at = time.UnixMilli(req.LoginTime)
	}

	if s.loginQueue != nil {
		err := s.loginQueue.Publish(r.Context(), domain.LoginEvent{
			UserID:    id,
			EIDName:   req.EIDName,
			LoginTime: at,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to enqueue login event")
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	user, err := s.userService.RecordLogin(r.Context(), id, req.EIDName, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginConverter{}.Convert(user))
}

// Admin API - full record surface behind basic auth

func (s *Server) handleAdminSearchUsers(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	users, err := s.userService.Search(r.Context(), req.PersonIdentifier)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertAll(AdminConverter{}, users))
}

func (s *Server) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminConverter{}.Convert(user))
}

func (s *Server) handleAdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := s.userService.UpdateStatus(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminConverter{}.Convert(user))
}

func (s *Server) handleAdminUpdateAttributes(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateAttributesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := s.userService.UpdateAttributes(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminConverter{}.Convert(user))
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.userService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminChangeIdentifier(w http.ResponseWriter, r *http.Request) {
	var req driving.ChangeIdentifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := s.userService.ChangeIdentifier(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminConverter{}.Convert(user))
}

// IM adapter - legacy CRUD shapes

type imCreateRequest struct {
	Pid string `json:"pid"`
}

func (s *Server) handleIMCreateUser(w http.ResponseWriter, r *http.Request) {
	var req imCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), driving.CreateUserRequest{PersonIdentifier: req.Pid})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IMConverter{}.Convert(user))
}

func (s *Server) handleIMGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IMConverter{}.Convert(user))
}

type imUpdateRequest struct {
	// Absent fields leave the corresponding part of the record untouched
	ClosedCode   *string   `json:"closedCode,omitempty"`
	HelpDeskRefs *[]string `json:"helpDeskRefs,omitempty"`
}

// handleIMUpdateUser is the legacy combined update: status and help-desk
// references in one request, applied in that order.
func (s *Server) handleIMUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req imUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := s.userService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if req.ClosedCode != nil {
		user, err = s.userService.UpdateStatus(r.Context(), id, driving.UpdateStatusRequest{ClosedCode: *req.ClosedCode})
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.HelpDeskRefs != nil {
		user, err = s.userService.UpdateAttributes(r.Context(), id, driving.UpdateAttributesRequest{HelpDeskReferences: *req.HelpDeskRefs})
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, IMConverter{}.Convert(user))
}

// SCIM adapter - field mapping only, no protocol semantics

func (s *Server) handleSCIMGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SCIMConverter{}.Convert(user))
}

// Helpers

func convertAll(c UserConverter, users []*domain.User) []any {
	out := make([]any, 0, len(users))
	for _, u := range users {
		out = append(out, c.Convert(u))
	}
	return out
}

// writeServiceError maps domain errors to status codes and stable machine
// codes. Unknown failures stay opaque.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "invalid_identifier", "person identifier failed validation")
	case errors.Is(err, domain.ErrInvalidAttribute):
		writeError(w, http.StatusBadRequest, "invalid_attribute", "attribute failed validation")
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user record not found")
	case errors.Is(err, domain.ErrDuplicateRecord):
		writeError(w, http.StatusConflict, "duplicate_record", "user record already exists")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusInternalServerError, "store_unavailable", "record store unreachable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
