package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auth-backend/internal/biz"
)

// GetUserByID returns the user with id, or (nil, nil) when absent.
func (s *Store) GetUserByID(ctx context.Context, id string) (*biz.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE id = ?", id))
}

// GetUserByEmail returns the user with email, or (nil, nil) when absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*biz.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE email = ?", email))
}

func (s *Store) scanUser(row *sql.Row) (*biz.User, error) {
	var u biz.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateUserWithAccount inserts the user and its first provider account in
// one transaction. Either both rows land or neither does.
func (s *Store) CreateUserWithAccount(ctx context.Context, user *biz.User, account *biz.ProviderAccount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO users (id, email, name, role, password_hash) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash,
	); err != nil {
		return wrapConstraint(err, "insert user")
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO provider_accounts (id, provider, provider_account_id, user_id) VALUES (?, ?, ?, ?)",
		account.ID, account.Provider, account.ProviderAccountID, account.UserID,
	); err != nil {
		return wrapConstraint(err, "insert provider account")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
