package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"creator-access-gate/internal/server/middleware"
)

const unknownAgent = "Unknown"

type validateRequest struct {
	ResourceID string `json:"resourceId"`
	Secret     string `json:"secret"`
}

type validateTokenRequest struct {
	ResourceID string `json:"resourceId"`
	Token      string `json:"token"`
}

type accessStatusResponse struct {
	ResourceID    string `json:"resourceId"`
	Authenticated bool   `json:"authenticated"`
}

// handleValidate redeems a password typed into the gallery form.
func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !DecodeJSON(w, r, &req, false) {
		return
	}
	a.redeem(w, r, strings.TrimSpace(req.ResourceID), req.Secret, "Invalid password")
}

// handleValidateToken redeems a share-link token. The token and resource id may come from the
// JSON body or the query string; the body wins.
func (a *API) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if !DecodeJSON(w, r, &req, true) {
		return
	}
	q := r.URL.Query()
	if req.Token == "" {
		req.Token = q.Get("token")
	}
	if req.ResourceID == "" {
		req.ResourceID = q.Get("resourceId")
	}
	a.redeem(w, r, strings.TrimSpace(req.ResourceID), req.Token, "Invalid token")
}

func (a *API) redeem(w http.ResponseWriter, r *http.Request, resourceID, secret, unauthorized string) {
	if resourceID == "" || secret == "" {
		WriteError(w, http.StatusBadRequest, "resourceId and secret are required")
		return
	}
	agent := r.UserAgent()
	if agent == "" {
		agent = unknownAgent
	}
	res, err := a.validator.Redeem(r.Context(), resourceID, secret, middleware.ClientIP(r), agent)
	if err != nil {
		writeServiceError(w, a.logger, err, unauthorized)
		return
	}
	a.gate.SetCookie(w, res.Grant)
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleAccessCheck reports whether the caller holds a valid grant for the resource.
func (a *API) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := canonicalResourceID(w, chi.URLParam(r, "resourceId"))
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, accessStatusResponse{
		ResourceID:    resourceID,
		Authenticated: a.gate.CheckRequest(r, resourceID),
	})
}

// handleAccessRevoke clears the grant cookie. A copy of the token held elsewhere stays valid
// until it expires.
func (a *API) handleAccessRevoke(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := canonicalResourceID(w, chi.URLParam(r, "resourceId"))
	if !ok {
		return
	}
	a.gate.ClearCookie(w, resourceID)
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// canonicalResourceID parses raw as a uuid and returns its lowercase hyphenated form, so the
// cookie name matches the one set at redemption.
func canonicalResourceID(w http.ResponseWriter, raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "resourceId must be a uuid")
		return "", false
	}
	return id.String(), true
}
