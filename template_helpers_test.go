package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHelpersAnonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data, err := auth.TemplateHelpers(ctx, env.manager.Begin(newCookieJar()), "")
	require.NoError(t, err)

	assert.Nil(t, data[auth.TemplateUserKey])
	assert.Equal(t, false, data[auth.TemplateLoggedInKey])
	assert.Equal(t, false, data[auth.TemplateAdminKey])
	assert.Equal(t, "", data[auth.TemplateUserPathKey])
	assert.NotContains(t, data, auth.TemplateCSRFKey)

	data, err = auth.TemplateHelpers(ctx, nil, "token")
	require.NoError(t, err)
	assert.Equal(t, "token", data[auth.TemplateCSRFKey])
}

func TestTemplateHelpersLoggedIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Michael", "michael@example.com", true)
	require.NoError(t, env.repo.Users().SetAdmin(ctx, user.ID, true))

	rs := env.manager.Begin(newCookieJar())
	require.NoError(t, rs.LogIn(ctx, env.reload(t, user)))

	data, err := auth.TemplateHelpers(ctx, rs, "token")
	require.NoError(t, err)

	current, ok := data[auth.TemplateUserKey].(*auth.User)
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)
	assert.Equal(t, true, data[auth.TemplateLoggedInKey])
	assert.Equal(t, true, data[auth.TemplateAdminKey])
	assert.Equal(t, auth.UserPath(user), data[auth.TemplateUserPathKey])
	assert.Equal(t, "token", data[auth.TemplateCSRFKey])
}
