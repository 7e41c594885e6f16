package session

import (
	"net/http"
	"time"
)

// CookiePrefix prefixes the per-resource grant cookie; grants for different creators coexist.
const CookiePrefix = "creator_access_"

// CookieName returns the grant cookie name for resourceID.
func CookieName(resourceID string) string {
	return CookiePrefix + resourceID
}

// SetCookie writes grant as an HttpOnly, SameSite=Strict cookie expiring with the grant.
func (g *Gate) SetCookie(w http.ResponseWriter, grant *Grant) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(grant.ResourceID),
		Value:    grant.Token,
		Path:     "/",
		Expires:  grant.ExpiresAt,
		MaxAge:   int(time.Until(grant.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the grant cookie for resourceID. The token itself stays valid until
// its expiry if the client kept a copy.
func (g *Gate) ClearCookie(w http.ResponseWriter, resourceID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(resourceID),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// CheckRequest reports whether r carries a valid grant cookie for resourceID.
func (g *Gate) CheckRequest(r *http.Request, resourceID string) bool {
	c, err := r.Cookie(CookieName(resourceID))
	if err != nil {
		return false
	}
	return g.Check(c.Value, resourceID)
}
