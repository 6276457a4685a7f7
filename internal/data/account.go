package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auth-backend/internal/biz"
)

// GetProviderAccount returns the account for (provider, providerAccountID),
// or (nil, nil) when absent.
func (s *Store) GetProviderAccount(ctx context.Context, provider, providerAccountID string) (*biz.ProviderAccount, error) {
	var a biz.ProviderAccount
	err := s.db.QueryRowContext(ctx,
		`SELECT id, provider, provider_account_id, user_id, created_at
		 FROM provider_accounts WHERE provider = ? AND provider_account_id = ?`,
		provider, providerAccountID,
	).Scan(&a.ID, &a.Provider, &a.ProviderAccountID, &a.UserID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan provider account: %w", err)
	}
	return &a, nil
}

// GetProviderAccountsOfUser returns all provider accounts linked to userID.
func (s *Store) GetProviderAccountsOfUser(ctx context.Context, userID string) ([]*biz.ProviderAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, provider_account_id, user_id, created_at
		 FROM provider_accounts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query provider accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*biz.ProviderAccount
	for rows.Next() {
		var a biz.ProviderAccount
		if err := rows.Scan(&a.ID, &a.Provider, &a.ProviderAccountID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// CreateProviderAccount links a new (provider, subject) pair to a user.
func (s *Store) CreateProviderAccount(ctx context.Context, account *biz.ProviderAccount) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO provider_accounts (id, provider, provider_account_id, user_id) VALUES (?, ?, ?, ?)",
		account.ID, account.Provider, account.ProviderAccountID, account.UserID)
	return wrapConstraint(err, "insert provider account")
}
