package auth_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "sql no rows", err: sql.ErrNoRows, expected: true},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), expected: true},
		{name: "repository not found", err: repository.NewRecordNotFound(), expected: true},
		{name: "rich not found", err: auth.ErrUserNotFound, expected: true},
		{name: "other error", err: errors.New("boom"), expected: false},
		{name: "auth error", err: auth.ErrInvalidCredentials, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsNotFound(tt.err))
		})
	}
}

func TestRedirectFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		path   string
		notice string
	}{
		{name: "login required", err: auth.ErrLoginRequired, path: "/login", notice: "Please log in."},
		{name: "not authorized", err: auth.ErrNotAuthorized, path: "/404", notice: "You don't have permission to view this profile."},
		{name: "not correct user", err: auth.ErrNotCorrectUser, path: "/404"},
		{name: "admin required", err: auth.ErrAdminRequired, path: "/404"},
		{name: "invalid activation", err: auth.ErrInvalidActivationLink, path: "/login", notice: "Invalid activation link"},
		{name: "reset expired", err: auth.ErrResetTokenExpired, path: "/password_resets/new", notice: "Password reset has expired."},
		{name: "no redirect", err: auth.ErrEmailNotFound, notice: "Email address not found"},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := auth.RedirectFromError(tt.err)
			assert.Equal(t, tt.path != "", ok)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.notice, auth.NoticeFromError(tt.err))
		})
	}
}

func TestSentinelCodes(t *testing.T) {
	tests := []struct {
		err  *goerrors.Error
		code int
	}{
		{err: auth.ErrInvalidCredentials, code: goerrors.CodeUnauthorized},
		{err: auth.ErrLoginRequired, code: goerrors.CodeUnauthorized},
		{err: auth.ErrNotAuthorized, code: goerrors.CodeForbidden},
		{err: auth.ErrEmailNotFound, code: goerrors.CodeNotFound},
		{err: auth.ErrUserNotFound, code: goerrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.err.TextCode, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}
