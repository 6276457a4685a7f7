package biz

import "errors"

// Protocol and policy failures are terminal for the current attempt; the
// caller redirects the user back to a neutral entry point. Integrity errors
// signal a data-store inconsistency, not a user mistake.
var (
	// ErrMissingClaims is returned when an identity lacks sub, iss or email.
	ErrMissingClaims = errors.New("identity is missing required claims")

	// ErrEmailNotVerified rejects linking or creating accounts from
	// unverified provider emails.
	ErrEmailNotVerified = errors.New("email not verified by provider")

	// ErrAccountConflict is returned when the identity's email belongs to a
	// user that already has an account from this issuer under a different
	// subject.
	ErrAccountConflict = errors.New("an account with this email is already linked to a different account from this provider")

	// ErrEmailLinkingDisabled is returned when an email matches an existing
	// user but linking by verified email is not enabled in configuration.
	ErrEmailLinkingDisabled = errors.New("an account with this email already exists and email linking is disabled")

	// ErrUserIntegrity is returned when a provider account references a user
	// record that does not exist.
	ErrUserIntegrity = errors.New("user linked to provider account not found")

	// ErrDuplicate is returned by repositories on unique-constraint violations.
	ErrDuplicate = errors.New("record already exists")

	// ErrSessionNotFound is returned when no session matches the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID rejects empty session ids before touching storage.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidCredentials is returned on password login failures.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
