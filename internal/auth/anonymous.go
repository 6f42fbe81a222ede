package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AnonymousCookieName is the cookie that carries a visitor's stable
// pseudo-identity. The cookie holds identity only; the usage count
// lives in the anonymous_usage table.
const AnonymousCookieName = "anonymous_id"

// anonymousCookieMaxAge keeps the identity for a year.
const anonymousCookieMaxAge = 365 * 24 * time.Hour

// GetOrCreateAnonymousID returns the visitor's anonymous id, minting
// and setting a new one when no valid cookie exists. If the response
// writer cannot persist the cookie the freshly minted id is still
// returned, so the current request proceeds; the visitor may simply
// get a new id next time.
func GetOrCreateAnonymousID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if cookie, err := r.Cookie(AnonymousCookieName); err == nil && cookie.Value != "" {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     AnonymousCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(anonymousCookieMaxAge),
			MaxAge:   int(anonymousCookieMaxAge.Seconds()),
		})
	}
	return id
}
