package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"auth-backend/internal/auth"
	"auth-backend/internal/biz"
	"auth-backend/internal/oidc"

	"github.com/gorilla/mux"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	client       *auth.Client
	attempts     auth.AttemptStore
	identity     *biz.IdentityUsecase
	sessions     *biz.SessionUsecase
	frontendURL  string
	cookieSecure bool
	log          *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	client *auth.Client,
	attempts auth.AttemptStore,
	identity *biz.IdentityUsecase,
	sessions *biz.SessionUsecase,
	frontendURL string,
	cookieSecure bool,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		client:       client,
		attempts:     attempts,
		identity:     identity,
		sessions:     sessions,
		frontendURL:  frontendURL,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// RegisterRoutes registers auth routes. Routes needing an authenticated user
// run under the session middleware so the user lands in request context.
func (h *AuthHandler) RegisterRoutes(r *mux.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", h.callback).Methods(http.MethodGet)
	r.HandleFunc("/auth/login/password", h.passwordLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)

	r.Handle("/auth/logout_all", sessionMiddleware(http.HandlerFunc(h.logoutAll))).Methods(http.MethodPost)
	r.Handle("/auth/userinfo", sessionMiddleware(http.HandlerFunc(h.userinfo))).Methods(http.MethodGet)
}

// login initiates the authorization-code flow.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	req, err := h.client.AuthorizeURL(r.Context())
	if err != nil {
		h.log.Error("failed to build authorize URL", "error", err)
		writeError(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	// The attempt must be persisted before the redirect leaves.
	if err := h.attempts.Put(w, auth.Attempt{State: req.State, Nonce: req.Nonce}); err != nil {
		h.log.Error("failed to store attempt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	http.Redirect(w, r, req.URL, http.StatusFound)
}

// callback completes the flow: validate the redirect, exchange the code,
// validate the ID token, link the identity and open a session.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.attempts.Get(r)
	// The attempt is single-use: clear it before any validation so a failed
	// callback cannot be replayed.
	h.attempts.Clear(w)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or expired login attempt")
		return
	}

	resp := oidc.ParseAuthorizeResponse(r.URL.Query())
	code, err := oidc.ValidateAuthorizeResponse(resp, attempt.State)
	if err != nil {
		h.log.Warn("authorize response rejected", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.client.Exchange(r.Context(), code)
	if err != nil {
		h.log.Error("token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	validated, err := h.client.ValidateIDToken(r.Context(), token, attempt.Nonce)
	if err != nil {
		h.log.Warn("id token rejected", "error", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := h.identity.Link(r.Context(), &validated.Identity)
	if err != nil {
		h.log.Warn("identity linking failed", "error", err)
		writeError(w, linkErrorStatus(err), err.Error())
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	auth.SetSessionCookie(w, session, h.cookieSecure)
	h.log.Info("user logged in", "user_id", user.ID, "session_id", session.ID)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// passwordLogin authenticates with email and password and opens a session.
func (h *AuthHandler) passwordLogin(w http.ResponseWriter, r *http.Request) {
	var req PasswordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identity.AuthenticateByPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, biz.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.log.Error("password login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	auth.SetSessionCookie(w, session, h.cookieSecure)
	writeJSON(w, http.StatusOK, UserInfoResponse{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	})
}

// logout revokes the current session and clears its cookie.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := auth.SessionIDFromRequest(r); sessionID != "" {
		if err := h.sessions.Revoke(r.Context(), sessionID); err != nil {
			h.log.Error("failed to revoke session", "error", err)
		}
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// logoutAll revokes every session of the authenticated user.
func (h *AuthHandler) logoutAll(w http.ResponseWriter, r *http.Request) {
	user := auth.MustGetUserFromContext(r.Context())
	if err := h.sessions.RevokeAllForUser(r.Context(), user.ID); err != nil {
		h.log.Error("failed to revoke sessions", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to revoke sessions")
		return
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "all sessions revoked"})
}

// userinfo returns current user information.
func (h *AuthHandler) userinfo(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, UserInfoResponse{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	})
}

// linkErrorStatus maps linker failures onto HTTP statuses: policy errors are
// user-actionable, integrity errors are server faults.
func linkErrorStatus(err error) int {
	switch {
	case errors.Is(err, biz.ErrEmailNotVerified),
		errors.Is(err, biz.ErrAccountConflict),
		errors.Is(err, biz.ErrEmailLinkingDisabled):
		return http.StatusForbidden
	case errors.Is(err, biz.ErrMissingClaims):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
