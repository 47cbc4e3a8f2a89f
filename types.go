package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetHashCost() int
	GetResetTokenExpiration() string
	GetSessionCookieName() string
	GetSecureCookies() bool
	GetBaseURL() string
}

// CookieJar is the slice of the request context the session
// helpers need. router.Context satisfies it.
type CookieJar interface {
	Cookies(key string, defaultValue ...string) string
	Cookie(cookie *router.Cookie)
}

// PasswordHasher hashes and verifies passwords and tokens
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(digest *string, secret string) bool
}

// Notifier delivers account emails. The token is the raw token, the
// user only ever stores its digest.
type Notifier interface {
	SendActivation(ctx context.Context, user *User, token string) error
	SendPasswordReset(ctx context.Context, user *User, token string) error
}

// SessionLogin is what commands need from the request session
type SessionLogin interface {
	LogIn(ctx context.Context, user *User) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Print("[ERR] AUTH " + render(format, args...))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Print("[WRN] AUTH " + render(format, args...))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Print("[INF] AUTH " + render(format, args...))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Print("[DBG] AUTH " + render(format, args...))
}

// render supports both printf style calls and trailing key/value pairs
func render(format string, args ...any) string {
	if strings.Contains(format, "%") {
		return newline(fmt.Sprintf(format, args...))
	}

	var b strings.Builder
	b.WriteString(format)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func resolveLogger(logger Logger) Logger {
	if logger == nil {
		return defLogger{}
	}
	return logger
}
