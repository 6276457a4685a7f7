package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	// AttemptCookieName is the name of the in-flight attempt cookie.
	AttemptCookieName = "oidc_attempt"

	// attemptMaxAge bounds how long an unconsumed attempt survives.
	attemptMaxAge = 600 // seconds
)

// ErrNoAttempt is returned when no valid attempt is stored on the request.
var ErrNoAttempt = errors.New("missing or invalid authorization attempt")

// Attempt is the ephemeral per-login record round-tripped through the
// provider redirect. Single-use: consumed exactly once by the callback.
type Attempt struct {
	State string `json:"state"`
	Nonce string `json:"nonce"`
}

// AttemptStore persists the in-flight authorization attempt between the
// login redirect and the provider callback.
type AttemptStore interface {
	Put(w http.ResponseWriter, attempt Attempt) error
	Get(r *http.Request) (*Attempt, error)
	Clear(w http.ResponseWriter)
}

// CookieAttemptStore keeps the attempt in a short-lived httpOnly cookie.
type CookieAttemptStore struct {
	Secure bool
}

// Put stores the attempt on the response.
func (s *CookieAttemptStore) Put(w http.ResponseWriter, attempt Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AttemptCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   attemptMaxAge,
	})
	return nil
}

// Get reads the attempt from the request.
func (s *CookieAttemptStore) Get(r *http.Request) (*Attempt, error) {
	cookie, err := r.Cookie(AttemptCookieName)
	if err != nil {
		return nil, ErrNoAttempt
	}
	payload, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, ErrNoAttempt
	}
	var attempt Attempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return nil, ErrNoAttempt
	}
	if attempt.State == "" || attempt.Nonce == "" {
		return nil, ErrNoAttempt
	}
	return &attempt, nil
}

// Clear removes the attempt cookie. Called unconditionally by the callback so
// an attempt cannot be replayed even when validation fails.
func (s *CookieAttemptStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AttemptCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
