package auth

import (
	"net/http"
	"strings"

	"auth-backend/internal/biz"
)

// SessionCookieName is the name of the session ID cookie.
const SessionCookieName = "session_id"

// SetSessionCookie stores the session ID with a lifetime tied to the
// session's absolute expiry.
func SetSessionCookie(w http.ResponseWriter, session *biz.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// SessionIDFromRequest extracts the session ID from the cookie (Web) or the
// Authorization header (SPA/Mobile). Returns "" when neither is present.
func SessionIDFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	return ""
}
