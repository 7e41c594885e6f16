package middleware

import (
	"net/http"
	"strings"

	"creator-access-gate/internal/security"
)

// AdminCookie is the cookie set by /admin/login and accepted in place of a Bearer header.
const AdminCookie = "admin_token"

const bearerPrefix = "bearer "

// AdminAuth admits requests presenting token as a Bearer header or the admin_token cookie.
// Everything else gets 401.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !security.SharedSecretEqual(PresentedAdminToken(r), token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PresentedAdminToken returns the Bearer token, falling back to the admin cookie, or "".
func PresentedAdminToken(r *http.Request) string {
	if t := extractBearer(r.Header.Get("Authorization")); t != "" {
		return t
	}
	if c, err := r.Cookie(AdminCookie); err == nil {
		return c.Value
	}
	return ""
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
