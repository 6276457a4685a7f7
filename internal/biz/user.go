package biz

import (
	"context"
	"strings"
	"time"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a durable local identity. Created once per distinct person.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string // empty for users created via OIDC
	CreatedAt    time.Time
}

// ProviderAccount links an external identity (issuer, subject) to a local
// user. Unique on (Provider, ProviderAccountID); never mutated once created.
type ProviderAccount struct {
	ID                string
	Provider          string // issuer URL
	ProviderAccountID string // subject claim
	UserID            string
	CreatedAt         time.Time
}

// Session is a durable server-side session with an absolute cap and a
// sliding idle window. Valid while now precedes both expiries.
type Session struct {
	ID            string
	UserID        string
	ExpiresAt     time.Time
	IdleExpiresAt time.Time
	CreatedAt     time.Time
}

// UserRepo is the persistence contract for users. Lookups return (nil, nil)
// when no record matches.
type UserRepo interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// CreateUserWithAccount creates the user and its first provider account
	// atomically. Returns ErrDuplicate on unique-constraint violations.
	CreateUserWithAccount(ctx context.Context, user *User, account *ProviderAccount) error
}

// ProviderAccountRepo is the persistence contract for provider accounts.
type ProviderAccountRepo interface {
	GetProviderAccount(ctx context.Context, provider, providerAccountID string) (*ProviderAccount, error)
	GetProviderAccountsOfUser(ctx context.Context, userID string) ([]*ProviderAccount, error)
	// CreateProviderAccount returns ErrDuplicate when (provider,
	// providerAccountID) is already linked.
	CreateProviderAccount(ctx context.Context, account *ProviderAccount) error
}

// SessionRepo is the persistence contract for sessions.
type SessionRepo interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// ExtendSessionIdle pushes the idle expiry forward iff the session still
	// exists and both expiries are in the future at now. Returns (nil, nil)
	// when no live row matched; check and extension are one statement so a
	// session cannot expire between them.
	ExtendSessionIdle(ctx context.Context, id string, now, idleExpiresAt time.Time) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// DeriveName picks a display name from the provider's name claims: given and
// family name joined when both are present, otherwise the raw name claim.
func DeriveName(name, givenName, familyName string) string {
	if givenName != "" && familyName != "" {
		return strings.TrimSpace(givenName + " " + familyName)
	}
	return name
}
