package auth_test

import (
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/internal/routertest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGuardMiddleware(t *testing.T) {
	env := newTestEnv(t)
	target := env.createUser(t, "Michael", "michael@example.com", true)
	people := map[string]*auth.User{
		"self":  target,
		"other": env.createUser(t, "Sterling", "sterling@example.com", true),
		"admin": env.createAdmin(t, "Malory", "malory@example.com"),
	}
	users := env.repo.Users()

	guards := map[string]router.MiddlewareFunc{
		"authorized": auth.AuthorizedUser(users, nopLogger{}),
		"correct":    auth.CorrectUser(users, nopLogger{}),
		"admin only": auth.AdminOnly(nopLogger{}),
	}

	tests := []struct {
		guard   string
		actor   string
		allowed bool
		notice  string
	}{
		{guard: "authorized", actor: "self", allowed: true},
		{guard: "authorized", actor: "admin", allowed: true},
		{guard: "authorized", actor: "other", notice: auth.ErrNotAuthorized.Message},
		{guard: "authorized", actor: "", notice: auth.ErrNotAuthorized.Message},
		{guard: "correct", actor: "self", allowed: true},
		{guard: "correct", actor: "admin"},
		{guard: "correct", actor: "other"},
		{guard: "admin only", actor: "admin", allowed: true},
		{guard: "admin only", actor: "self"},
		{guard: "admin only", actor: ""},
	}

	for _, tt := range tests {
		name := tt.guard + "/" + tt.actor
		if tt.actor == "" {
			name = tt.guard + "/anonymous"
		}

		t.Run(name, func(t *testing.T) {
			var cookies map[string]string
			if tt.actor != "" {
				cookies = env.loginCookies(t, people[tt.actor])
			}

			ctx := newRequest(http.MethodGet, auth.UserPath(target), cookies)
			ctx.Params["id"] = target.ID.String()
			if !tt.allowed {
				expectJSON(ctx, http.StatusSeeOther)
			}

			var called bool
			require.NoError(t, env.serve(ctx, reached(&called), guards[tt.guard]))
			assert.Equal(t, tt.allowed, called)

			if tt.allowed {
				ctx.AssertNotCalled(t, "JSON", mock.Anything, mock.Anything)
				if tt.guard != "admin only" {
					loaded, ok := ctx.LocalsMock[auth.LocalsTargetUserKey].(*auth.User)
					require.True(t, ok)
					assert.Equal(t, target.ID, loaded.ID)
				}
				return
			}

			ctx.AssertExpectations(t)
			assert.Equal(t, "/404", ctx.ResponseHeaders["Location"])
			assert.Equal(t, tt.notice, payload(t, ctx).Notice)
			if tt.notice == "" {
				assert.Nil(t, ctx.LastCookie(flashCookie), "silent denials set no flash")
			}
		})
	}
}

func TestGuardMissingTarget(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "Malory", "malory@example.com")

	ctx := newRequest(http.MethodGet, "/users/missing", env.loginCookies(t, admin))
	ctx.Params["id"] = uuid.NewString()
	expectJSON(ctx, http.StatusNotFound)

	var called bool
	require.NoError(t, env.serve(ctx, reached(&called), auth.AuthorizedUser(env.repo.Users(), nopLogger{})))
	assert.False(t, called)
	assert.Equal(t, auth.ErrUserNotFound.Message, payload(t, ctx).Notice)
}

func TestGuardWithoutSessionMiddleware(t *testing.T) {
	ctx := routertest.NewMockContext()
	expectJSON(ctx, http.StatusInternalServerError)

	var called bool
	handler := auth.AdminOnly(nopLogger{})(reached(&called))

	require.NoError(t, handler(ctx))
	assert.False(t, called)
	ctx.AssertExpectations(t)
}

func TestChainOrder(t *testing.T) {
	var order []string
	step := func(name string) router.MiddlewareFunc {
		return func(next router.HandlerFunc) router.HandlerFunc {
			return func(ctx router.Context) error {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	handler := auth.Chain(step("first"), nil, step("second"))(func(router.Context) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, handler(routertest.NewMockContext()))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
