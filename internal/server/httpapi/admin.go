package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	auditdomain "creator-access-gate/internal/audit/domain"
	"creator-access-gate/internal/credential/domain"
	credentialservice "creator-access-gate/internal/credential/service"
	"creator-access-gate/internal/security"
	"creator-access-gate/internal/server/middleware"
)

type adminLoginRequest struct {
	Token string `json:"token"`
}

type createCredentialRequest struct {
	ResourceID string     `json:"resourceId"`
	Secret     string     `json:"secret"`
	Mode       string     `json:"mode"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	MaxUses    *int       `json:"maxUses"`
}

// credentialView is the admin representation of a credential. Secret is set only in the
// response to a create that generated it.
type credentialView struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resourceId"`
	Mode       string     `json:"mode"`
	MaxUses    *int       `json:"maxUses"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	UseCount   int        `json:"useCount"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	Secret     string     `json:"secret,omitempty"`
}

type credentialListResponse struct {
	Credentials []credentialView `json:"credentials"`
}

type accessEventView struct {
	ID              string    `json:"id"`
	CredentialID    string    `json:"credentialId"`
	ResourceID      string    `json:"resourceId"`
	CreatorName     string    `json:"creatorName"`
	CreatorSlug     string    `json:"creatorSlug"`
	SourceAddress   string    `json:"sourceAddress"`
	AgentDescriptor string    `json:"agentDescriptor"`
	OccurredAt      time.Time `json:"occurredAt"`
}

type accessEventListResponse struct {
	Events []accessEventView `json:"events"`
}

func toCredentialView(c *domain.Credential, now time.Time) credentialView {
	v := credentialView{
		ID:         c.ID,
		ResourceID: c.ResourceID,
		Mode:       string(c.Policy.Mode()),
		ExpiresAt:  c.ExpiresAt,
		UseCount:   c.UseCount,
		Status:     string(domain.CredentialStatus(c, now)),
		CreatedAt:  c.CreatedAt,
	}
	if n, ok := c.Policy.MaxUses(); ok {
		v.MaxUses = &n
	}
	return v
}

func toAccessEventView(e *auditdomain.EventView) accessEventView {
	return accessEventView{
		ID:              e.ID,
		CredentialID:    e.CredentialID,
		ResourceID:      e.ResourceID,
		CreatorName:     e.CreatorName,
		CreatorSlug:     e.CreatorSlug,
		SourceAddress:   e.SourceAddress,
		AgentDescriptor: e.AgentDescriptor,
		OccurredAt:      e.OccurredAt,
	}
}

// handleAdminLogin exchanges the admin token for an HttpOnly cookie.
func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !DecodeJSON(w, r, &req, false) {
		return
	}
	if !security.SharedSecretEqual(req.Token, a.adminToken) {
		WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookie,
		Value:    req.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.production,
		SameSite: http.SameSiteStrictMode,
	})
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (a *API) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if !DecodeJSON(w, r, &req, false) {
		return
	}
	res, err := a.credentials.Issue(r.Context(), credentialservice.IssueInput{
		ResourceID: strings.TrimSpace(req.ResourceID),
		Secret:     req.Secret,
		Mode:       req.Mode,
		ExpiresAt:  req.ExpiresAt,
		MaxUses:    req.MaxUses,
	})
	if err != nil {
		writeServiceError(w, a.logger, err, "Unauthorized")
		return
	}
	a.logger.Info().
		Str("credential_id", res.Credential.ID).
		Str("resource_id", res.Credential.ResourceID).
		Str("mode", string(res.Credential.Policy.Mode())).
		Bool("generated", res.Generated).
		Msg("admin: credential issued")

	view := toCredentialView(res.Credential, a.credentials.Now())
	if res.Generated {
		view.Secret = res.Secret
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *API) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := a.credentials.List(r.Context(), r.URL.Query().Get("resourceId"))
	if err != nil {
		writeServiceError(w, a.logger, err, "Unauthorized")
		return
	}
	now := a.credentials.Now()
	out := credentialListResponse{Credentials: make([]credentialView, 0, len(creds))}
	for _, c := range creds {
		out.Credentials = append(out.Credentials, toCredentialView(c, now))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *API) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.credentials.Delete(r.Context(), id); err != nil {
		writeServiceError(w, a.logger, err, "Unauthorized")
		return
	}
	a.logger.Info().Str("credential_id", id).Msg("admin: credential deleted")
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleListEvents returns the access log newest first, optionally for one resource. The
// audit log applies the default and maximum limits.
func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var (
		events []*auditdomain.EventView
		err    error
	)
	if raw := q.Get("resourceId"); raw != "" {
		resourceID, ok := canonicalResourceID(w, raw)
		if !ok {
			return
		}
		events, err = a.events.ListByResource(r.Context(), resourceID, limit)
	} else {
		events, err = a.events.ListRecent(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, a.logger, err, "Unauthorized")
		return
	}
	out := accessEventListResponse{Events: make([]accessEventView, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, toAccessEventView(e))
	}
	WriteJSON(w, http.StatusOK, out)
}
