package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	active := env.createUser(t, "Michael", "michael@example.com", true)
	env.createUser(t, "Pending", "pending@example.com", false)

	auther := auth.NewAuthenticator(env.repo.Users(), env.hasher).
		WithLogger(nopLogger{}).
		WithActivitySink(env.activity)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: "michael@example.com", password: testPassword},
		{name: "email is case insensitive", email: "MICHAEL@Example.com", password: testPassword},
		{name: "unknown email", email: "nobody@example.com", password: testPassword, wantErr: auth.ErrInvalidCredentials},
		{name: "wrong password", email: "michael@example.com", password: "invalid", wantErr: auth.ErrInvalidCredentials},
		{name: "inactive with wrong password", email: "pending@example.com", password: "invalid", wantErr: auth.ErrInvalidCredentials},
		{name: "inactive with right password", email: "pending@example.com", password: testPassword, wantErr: auth.ErrAccountNotActivated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := auther.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, user.ID)
		})
	}

	types := env.activity.types()
	assert.Contains(t, types, auth.ActivityEventLoginSuccess)
	assert.Contains(t, types, auth.ActivityEventLoginFailure)
}

func TestAuthenticateNotices(t *testing.T) {
	assert.Equal(t, "Invalid email/password combination", auth.NoticeFromError(auth.ErrInvalidCredentials))

	path, ok := auth.RedirectFromError(auth.ErrAccountNotActivated)
	assert.True(t, ok)
	assert.Equal(t, "/", path)
	assert.Contains(t, auth.NoticeFromError(auth.ErrAccountNotActivated), "Account not activated")

	_, ok = auth.RedirectFromError(auth.ErrInvalidCredentials)
	assert.False(t, ok)
}
