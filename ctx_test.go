package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithContext(context.Background(), nil)
	_, ok = auth.FromContext(ctx)
	assert.False(t, ok, "nil user is not a user")

	user := &auth.User{Name: "Michael"}
	ctx = auth.WithContext(context.Background(), user)
	got, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, user, got)
}

func TestRequestSessionContext(t *testing.T) {
	env := newTestEnv(t)

	_, ok := auth.RequestSessionFromContext(context.Background())
	assert.False(t, ok)

	rs := env.manager.Begin(newCookieJar())
	ctx := auth.WithRequestSession(context.Background(), rs)

	got, ok := auth.RequestSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, rs, got)
}
