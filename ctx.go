package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var sessionCtxKey = &contextKey{"session"}

// LocalsSessionKey is the router locals key holding the RequestSession
const LocalsSessionKey = "auth.session"

// LocalsTargetUserKey holds the user a guarded route operates on
const LocalsTargetUserKey = "auth.target_user"

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// WithRequestSession sets the RequestSession in the given context
func WithRequestSession(ctx context.Context, rs *RequestSession) context.Context {
	return context.WithValue(ctx, sessionCtxKey, rs)
}

// RequestSessionFromContext finds the RequestSession in the context
func RequestSessionFromContext(ctx context.Context) (*RequestSession, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*RequestSession)
	return raw, ok && raw != nil
}

// GetRequestSession extracts the RequestSession from the router context
func GetRequestSession(ctx router.Context) (*RequestSession, bool) {
	if rs, ok := ctx.Locals(LocalsSessionKey).(*RequestSession); ok && rs != nil {
		return rs, true
	}
	return RequestSessionFromContext(ctx.Context())
}

// GetTargetUser returns the user loaded by the guard middleware
func GetTargetUser(ctx router.Context) (*User, bool) {
	raw, ok := ctx.Locals(LocalsTargetUserKey).(*User)
	return raw, ok && raw != nil
}
