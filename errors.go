package auth

import (
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const (
	TextCodeInvalidCreds  = "INVALID_CREDENTIALS"
	TextCodeNotActivated  = "ACCOUNT_NOT_ACTIVATED"
	TextCodeTokenInvalid  = "TOKEN_INVALID"
	TextCodeEmailNotFound = "EMAIL_NOT_FOUND"
	TextCodeTokenExpired  = "TOKEN_EXPIRED"
	TextCodeLoginRequired = "LOGIN_REQUIRED"
	TextCodeForbidden     = "FORBIDDEN"
)

// MetaRedirect is the metadata key holding the path a denied
// request should be sent to.
const MetaRedirect = "redirect"

// ErrNoEmptyString is returned when hashing an empty secret
var ErrNoEmptyString = goerrors.New("secret must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials is the single failure for unknown email and
// wrong password alike.
var ErrInvalidCredentials = goerrors.New("Invalid email/password combination", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

var ErrAccountNotActivated = goerrors.New("Account not activated. Check your email for the activation link.", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotActivated).
	WithCode(goerrors.CodeForbidden).
	WithMetadata(map[string]any{MetaRedirect: "/"})

var ErrInvalidActivationLink = goerrors.New("Invalid activation link", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeBadRequest).
	WithMetadata(map[string]any{MetaRedirect: "/login"})

var ErrEmailNotFound = goerrors.New("Email address not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeEmailNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrResetTokenInvalid covers unknown email, inactive account and
// token mismatch. No notice is shown for it.
var ErrResetTokenInvalid = goerrors.New("", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeForbidden).
	WithMetadata(map[string]any{MetaRedirect: "/login"})

var ErrResetTokenExpired = goerrors.New("Password reset has expired.", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeBadRequest).
	WithMetadata(map[string]any{MetaRedirect: "/password_resets/new"})

var ErrLoginRequired = goerrors.New("Please log in.", goerrors.CategoryAuth).
	WithTextCode(TextCodeLoginRequired).
	WithCode(goerrors.CodeUnauthorized).
	WithMetadata(map[string]any{MetaRedirect: "/login"})

var ErrNotAuthorized = goerrors.New("You don't have permission to view this profile.", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden).
	WithMetadata(map[string]any{MetaRedirect: "/404"})

// ErrNotCorrectUser is the silent denial for edits of another account
var ErrNotCorrectUser = goerrors.New("", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden).
	WithMetadata(map[string]any{MetaRedirect: "/404"})

// ErrAdminRequired is the silent denial for admin only actions
var ErrAdminRequired = goerrors.New("", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden).
	WithMetadata(map[string]any{MetaRedirect: "/404"})

// ErrUserNotFound is returned when a route names a missing user
var ErrUserNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrSessionMissing means SessionMiddleware is not mounted
var ErrSessionMissing = goerrors.New("request session not initialized", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal)

// IsNotFound reports record not found errors from either the
// repository layer or a raw bun scan.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows) ||
		repository.IsRecordNotFound(err) ||
		goerrors.IsNotFound(err)
}

// NoticeFromError returns the user facing notice for err, if any
func NoticeFromError(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return ""
}

// RedirectFromError returns the redirect target attached to err
func RedirectFromError(err error) (string, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return "", false
	}
	path, ok := richErr.Metadata[MetaRedirect].(string)
	return path, ok && path != ""
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
