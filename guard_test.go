package auth_test

import (
	"context"
	"net/http"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	michael := &auth.User{Name: "Michael"}
	michael.ID[0] = 1
	archer := &auth.User{Name: "Archer"}
	archer.ID[0] = 2
	admin := &auth.User{Name: "Admin", Admin: true}
	admin.ID[0] = 3

	assert.False(t, auth.IsLoggedIn(nil))
	assert.True(t, auth.IsLoggedIn(michael))

	assert.True(t, auth.IsSelf(michael, michael))
	assert.False(t, auth.IsSelf(michael, archer))
	assert.False(t, auth.IsSelf(nil, archer))
	assert.False(t, auth.IsSelf(michael, nil))

	assert.True(t, auth.IsAdmin(admin))
	assert.False(t, auth.IsAdmin(michael))
	assert.False(t, auth.IsAdmin(nil))
}

func TestRequireLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Michael", "michael@example.com", true)

	t.Run("anonymous is denied and the url kept", func(t *testing.T) {
		rs := env.manager.Begin(newCookieJar())

		current, err := auth.RequireLogin(ctx, rs, http.MethodGet, "/users/1")
		assert.Nil(t, current)
		assert.ErrorIs(t, err, auth.ErrLoginRequired)

		path, ok := auth.RedirectFromError(err)
		assert.True(t, ok)
		assert.Equal(t, "/login", path)
		assert.Equal(t, "Please log in.", auth.NoticeFromError(err))

		stored, err := rs.Get(ctx, auth.SessionKeyForwardingURL)
		require.NoError(t, err)
		assert.Equal(t, "/users/1", stored)
	})

	t.Run("non GET url is not kept", func(t *testing.T) {
		rs := env.manager.Begin(newCookieJar())

		_, err := auth.RequireLogin(ctx, rs, http.MethodPatch, "/users/1")
		assert.ErrorIs(t, err, auth.ErrLoginRequired)

		stored, err := rs.Get(ctx, auth.SessionKeyForwardingURL)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("logged in", func(t *testing.T) {
		rs := env.manager.Begin(newCookieJar())
		require.NoError(t, rs.LogIn(ctx, user))

		current, err := auth.RequireLogin(ctx, rs, http.MethodGet, "/users")
		require.NoError(t, err)
		assert.Equal(t, user.ID, current.ID)
	})
}

func TestTargetGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	michael := env.createUser(t, "Michael", "michael@example.com", true)
	archer := env.createUser(t, "Archer", "archer@example.com", true)
	admin := env.createUser(t, "Admin", "admin@example.com", true)
	require.NoError(t, env.repo.Users().SetAdmin(ctx, admin.ID, true))

	sessionFor := func(user *auth.User) *auth.RequestSession {
		rs := env.manager.Begin(newCookieJar())
		require.NoError(t, rs.LogIn(ctx, env.reload(t, user)))
		return rs
	}

	tests := []struct {
		name    string
		current *auth.User
		target  *auth.User
		check   func(context.Context, *auth.RequestSession, *auth.User) error
		wantErr error
	}{
		{name: "self may view", current: michael, target: michael, check: auth.RequireSelfOrAdmin},
		{name: "admin may view", current: admin, target: michael, check: auth.RequireSelfOrAdmin},
		{name: "other may not view", current: archer, target: michael, check: auth.RequireSelfOrAdmin, wantErr: auth.ErrNotAuthorized},
		{name: "self may edit", current: michael, target: michael, check: auth.RequireSelf},
		{name: "admin may not edit", current: admin, target: michael, check: auth.RequireSelf, wantErr: auth.ErrNotCorrectUser},
		{name: "other may not edit", current: archer, target: michael, check: auth.RequireSelf, wantErr: auth.ErrNotCorrectUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(ctx, sessionFor(tt.current), tt.target)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Michael", "michael@example.com", true)

	rs := env.manager.Begin(newCookieJar())
	require.NoError(t, rs.LogIn(ctx, user))

	err := auth.RequireAdmin(ctx, rs)
	assert.ErrorIs(t, err, auth.ErrAdminRequired)
	assert.Empty(t, auth.NoticeFromError(err), "admin denial is silent")

	path, _ := auth.RedirectFromError(err)
	assert.Equal(t, "/404", path)

	require.NoError(t, env.repo.Users().SetAdmin(ctx, user.ID, true))
	rs = env.manager.Begin(newCookieJar())
	require.NoError(t, rs.LogIn(ctx, env.reload(t, user)))
	assert.NoError(t, auth.RequireAdmin(ctx, rs))
}
