package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auth-backend/internal/biz"
)

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, session *biz.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, idle_expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		session.ID, session.UserID, session.ExpiresAt, session.IdleExpiresAt, session.CreatedAt)
	return wrapConstraint(err, "insert session")
}

// GetSession returns the session with id, or (nil, nil) when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*biz.Session, error) {
	var sess biz.Session
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, idle_expires_at, created_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.IdleExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

// ExtendSessionIdle pushes the idle expiry forward in a single conditional
// UPDATE so the liveness check and the extension cannot race.
func (s *Store) ExtendSessionIdle(ctx context.Context, id string, now, idleExpiresAt time.Time) (*biz.Session, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET idle_expires_at = ? WHERE id = ? AND expires_at > ? AND idle_expires_at > ?",
		idleExpiresAt, id, now, now)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetSession(ctx, id)
}

// DeleteSession removes the session with id. Deleting a missing session is
// not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteSessionsByUser removes every session belonging to userID.
func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("delete sessions for user: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past either expiry at now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ? OR idle_expires_at < ?", now, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
