package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	return req
}

func TestAttemptRoundTrip(t *testing.T) {
	store := &CookieAttemptStore{}

	rec := httptest.NewRecorder()
	if err := store.Put(rec, Attempt{State: "state-1", Nonce: "nonce-1"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != AttemptCookieName {
		t.Fatalf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Fatal("attempt cookie must be httpOnly")
	}
	if cookie.MaxAge != attemptMaxAge {
		t.Fatalf("max age = %d, want %d", cookie.MaxAge, attemptMaxAge)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("same site = %v, want lax", cookie.SameSite)
	}

	attempt, err := store.Get(requestWithCookies(t, rec))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if attempt.State != "state-1" || attempt.Nonce != "nonce-1" {
		t.Fatalf("unexpected attempt: %+v", attempt)
	}
}

func TestAttemptSecureFlag(t *testing.T) {
	store := &CookieAttemptStore{Secure: true}
	rec := httptest.NewRecorder()
	if err := store.Put(rec, Attempt{State: "s", Nonce: "n"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if !rec.Result().Cookies()[0].Secure {
		t.Fatal("secure flag not propagated")
	}
}

func TestAttemptGetRejectsInvalid(t *testing.T) {
	store := &CookieAttemptStore{}

	tests := []struct {
		name  string
		value string
	}{
		{"not base64", "%%%"},
		{"not json", "bm90LWpzb24"},
		{"missing state", "eyJub25jZSI6Im4ifQ"},
		{"missing nonce", "eyJzdGF0ZSI6InMifQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
			req.AddCookie(&http.Cookie{Name: AttemptCookieName, Value: tt.value})
			if _, err := store.Get(req); !errors.Is(err, ErrNoAttempt) {
				t.Fatalf("got %v, want ErrNoAttempt", err)
			}
		})
	}

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
		if _, err := store.Get(req); !errors.Is(err, ErrNoAttempt) {
			t.Fatalf("got %v, want ErrNoAttempt", err)
		}
	})
}

func TestAttemptClear(t *testing.T) {
	store := &CookieAttemptStore{}
	rec := httptest.NewRecorder()
	store.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].Name != AttemptCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("clear cookie = %+v", cookies[0])
	}
}
