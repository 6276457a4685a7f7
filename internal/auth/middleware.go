package auth

import (
	"encoding/json"
	"net/http"

	"auth-backend/internal/biz"
)

// Middleware validates the session on protected routes and loads the
// session's user into the request context. An expired session is treated as
// "not authenticated", never as a server fault.
type Middleware struct {
	sessions *biz.SessionUsecase
	users    biz.UserRepo
}

// NewMiddleware creates the session middleware.
func NewMiddleware(sessions *biz.SessionUsecase, users biz.UserRepo) *Middleware {
	return &Middleware{sessions: sessions, users: users}
}

// RequireSession rejects requests without a valid session.
func (m *Middleware) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, session, ok := m.resolve(r)
			if !ok {
				writeUnauthorized(w, "not authenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user, session)))
		})
	}
}

// OptionalSession loads the user if a valid session is present but does not
// require one.
func (m *Middleware) OptionalSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, session, ok := m.resolve(r); ok {
				r = r.WithContext(ContextWithUser(r.Context(), user, session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) resolve(r *http.Request) (*biz.User, *biz.Session, bool) {
	sessionID := SessionIDFromRequest(r)
	if sessionID == "" {
		return nil, nil, false
	}

	session, err := m.sessions.Validate(r.Context(), sessionID)
	if err != nil || session == nil {
		return nil, nil, false
	}

	user, err := m.users.GetUserByID(r.Context(), session.UserID)
	if err != nil || user == nil {
		return nil, nil, false
	}

	return user, session, true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
