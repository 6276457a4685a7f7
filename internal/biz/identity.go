package biz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auth-backend/internal/oidc"
	"auth-backend/internal/password"

	"github.com/google/uuid"
)

// IdentityUsecase maps validated external identities to local users. This is
// the only place where a provider assertion becomes a durable local identity.
type IdentityUsecase struct {
	users             UserRepo
	accounts          ProviderAccountRepo
	allowEmailLinking bool
	log               *slog.Logger
}

// NewIdentityUsecase creates the identity linker. allowEmailLinking controls
// whether a verified email match may attach a new issuer to an existing user.
func NewIdentityUsecase(users UserRepo, accounts ProviderAccountRepo, allowEmailLinking bool, log *slog.Logger) *IdentityUsecase {
	return &IdentityUsecase{
		users:             users,
		accounts:          accounts,
		allowEmailLinking: allowEmailLinking,
		log:               log,
	}
}

// Link resolves identity to a local user, creating or linking records as
// needed. Concurrent first-time logins for the same (issuer, subject) resolve
// to a single user: the store's unique constraints reject the losing writer
// and resolution is re-run once against the winner's rows.
func (uc *IdentityUsecase) Link(ctx context.Context, identity *oidc.Identity) (*User, error) {
	if identity.Subject == "" || identity.Issuer == "" || identity.Email == "" {
		return nil, ErrMissingClaims
	}

	user, err := uc.resolve(ctx, identity)
	if errors.Is(err, ErrDuplicate) {
		uc.log.Info("identity link lost a creation race, re-resolving",
			"issuer", identity.Issuer, "subject", identity.Subject)
		return uc.resolve(ctx, identity)
	}
	return user, err
}

func (uc *IdentityUsecase) resolve(ctx context.Context, identity *oidc.Identity) (*User, error) {
	account, err := uc.accounts.GetProviderAccount(ctx, identity.Issuer, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("provider account lookup: %w", err)
	}
	if account != nil {
		user, err := uc.users.GetUserByID(ctx, account.UserID)
		if err != nil {
			return nil, fmt.Errorf("linked user lookup: %w", err)
		}
		if user == nil {
			return nil, ErrUserIntegrity
		}
		return user, nil
	}

	// New link or new user: only a verified email may be trusted.
	if !identity.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	existing, err := uc.users.GetUserByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("user lookup by email: %w", err)
	}
	if existing != nil {
		accounts, err := uc.accounts.GetProviderAccountsOfUser(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("user accounts lookup: %w", err)
		}
		for _, a := range accounts {
			if a.Provider != identity.Issuer {
				continue
			}
			// Same issuer, same subject: a concurrent attempt committed the
			// link after our (issuer, subject) lookup. Resolve to its user.
			if a.ProviderAccountID == identity.Subject {
				return existing, nil
			}
			// Same issuer under a different subject: conflicting identity.
			return nil, ErrAccountConflict
		}
		if !uc.allowEmailLinking {
			return nil, ErrEmailLinkingDisabled
		}
		if err := uc.accounts.CreateProviderAccount(ctx, &ProviderAccount{
			ID:                uuid.NewString(),
			Provider:          identity.Issuer,
			ProviderAccountID: identity.Subject,
			UserID:            existing.ID,
		}); err != nil {
			return nil, err
		}
		uc.log.Info("linked provider account to existing user",
			"user_id", existing.ID, "issuer", identity.Issuer)
		return existing, nil
	}

	newUser := &User{
		ID:    uuid.NewString(),
		Email: identity.Email,
		Name:  DeriveName(identity.Name, identity.GivenName, identity.FamilyName),
		Role:  RoleUser,
	}
	if err := uc.users.CreateUserWithAccount(ctx, newUser, &ProviderAccount{
		ID:                uuid.NewString(),
		Provider:          identity.Issuer,
		ProviderAccountID: identity.Subject,
		UserID:            newUser.ID,
	}); err != nil {
		return nil, err
	}
	uc.log.Info("created user from provider identity",
		"user_id", newUser.ID, "issuer", identity.Issuer)
	return newUser, nil
}

// AuthenticateByPassword verifies an email/password pair against the stored
// hash. Users created through OIDC carry no hash and cannot log in this way.
func (uc *IdentityUsecase) AuthenticateByPassword(ctx context.Context, email, plaintext string) (*User, error) {
	user, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user lookup by email: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !password.Verify(plaintext, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
