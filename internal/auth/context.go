package auth

import (
	"context"
	"errors"

	"auth-backend/internal/biz"
)

type contextKey string

const (
	// userContextKey is the context key for the authenticated user.
	userContextKey contextKey = "authenticated_user"
	// sessionContextKey is the context key for the validated session.
	sessionContextKey contextKey = "authenticated_session"
)

// ErrNoUserInContext is returned when no user is found in context.
var ErrNoUserInContext = errors.New("no authenticated user in context")

// ContextWithUser returns a context carrying the authenticated user and its
// validated session.
func ContextWithUser(ctx context.Context, user *biz.User, session *biz.Session) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, sessionContextKey, session)
}

// GetUserFromContext extracts the authenticated user from request context.
func GetUserFromContext(ctx context.Context) (*biz.User, error) {
	user, ok := ctx.Value(userContextKey).(*biz.User)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// MustGetUserFromContext panics if no user is in context (use after the
// session middleware).
func MustGetUserFromContext(ctx context.Context) *biz.User {
	user, err := GetUserFromContext(ctx)
	if err != nil {
		panic("expected authenticated user in context")
	}
	return user
}

// GetSessionFromContext extracts the validated session from request context.
func GetSessionFromContext(ctx context.Context) (*biz.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*biz.Session)
	return session, ok && session != nil
}
