package biz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// sessionAbsoluteTTL caps a session's lifetime regardless of use.
	sessionAbsoluteTTL = 14 * 24 * time.Hour
	// sessionIdleTTL is the sliding window extended on each validated use.
	sessionIdleTTL = 2 * 24 * time.Hour
)

// SessionUsecase manages the server-side session lifecycle.
type SessionUsecase struct {
	sessions SessionRepo
	log      *slog.Logger
}

// NewSessionUsecase creates the session manager.
func NewSessionUsecase(sessions SessionRepo, log *slog.Logger) *SessionUsecase {
	return &SessionUsecase{sessions: sessions, log: log}
}

// Create starts a new session for userID with a 14-day absolute expiry and a
// 2-day idle expiry.
func (uc *SessionUsecase) Create(ctx context.Context, userID string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		ExpiresAt:     now.Add(sessionAbsoluteTTL),
		IdleExpiresAt: now.Add(sessionIdleTTL),
		CreatedAt:     now,
	}
	if err := uc.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Validate checks sessionID and extends its idle expiry in a single logical
// operation. An expired session returns (nil, nil): "not authenticated", not
// a fault. A missing session returns ErrSessionNotFound.
func (uc *SessionUsecase) Validate(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	now := time.Now().UTC()
	session, err := uc.sessions.ExtendSessionIdle(ctx, sessionID, now, now.Add(sessionIdleTTL))
	if err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	if session != nil {
		return session, nil
	}

	// No live row matched: distinguish a missing session from an expired one.
	existing, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if existing == nil {
		return nil, ErrSessionNotFound
	}
	return nil, nil
}

// Revoke deletes the session immediately and unconditionally.
func (uc *SessionUsecase) Revoke(ctx context.Context, sessionID string) error {
	return uc.sessions.DeleteSession(ctx, sessionID)
}

// RevokeAllForUser deletes every session belonging to userID.
func (uc *SessionUsecase) RevokeAllForUser(ctx context.Context, userID string) error {
	return uc.sessions.DeleteSessionsByUser(ctx, userID)
}

// Cleanup deletes all sessions past either expiry. Intended to run
// periodically out-of-band, never on a request path.
func (uc *SessionUsecase) Cleanup(ctx context.Context) (int64, error) {
	n, err := uc.sessions.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		uc.log.Info("removed expired sessions", "count", n)
	}
	return n, nil
}
