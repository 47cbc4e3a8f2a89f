package csrf

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required for stateless mode")
)

// DefaultTokenLength is the number of random bytes in a token
const DefaultTokenLength = 32

// DefaultContextKey is the locals key holding the request token
const DefaultContextKey = "csrf_token"

// DefaultSessionKey is the session entry holding a session token
const DefaultSessionKey = "_csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the request and response header carrying the token
const DefaultHeaderName = "X-CSRF-Token"

// DefaultSessionIDKey is the locals key read for the session id in
// stateless mode.
const DefaultSessionIDKey = "session_id"

// TokenStore keeps one token per session. The auth RequestSession
// satisfies it.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	TokenLength int

	// ContextKey defines the locals key for the token
	ContextKey string

	FormFieldName string

	// HeaderName is read on unsafe requests and set on every response
	HeaderName string

	// TokenLookup defines where to look for the token
	// Format: "header:X-CSRF-Token,form:_token"
	TokenLookup string

	// Session resolves the store of the current request. When it
	// reports false the stateless signed token is used.
	Session func(router.Context) (TokenStore, bool)

	// SessionKey is the entry the token is kept under in the session
	SessionKey string

	// SessionIDKey is the locals key binding stateless tokens to a
	// session, the forwarded client address is used when it is empty.
	SessionIDKey string

	ErrorHandler router.ErrorHandler

	// SuccessHandler replaces the next handler when set
	SuccessHandler router.HandlerFunc

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration of stateless tokens
	Expiration time.Duration

	// SecureKey signs stateless tokens, at least 32 bytes
	SecureKey []byte
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(router.Context) (string, error)

// New creates a new CSRF middleware
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		proceed := next
		if cfg.SuccessHandler != nil {
			proceed = cfg.SuccessHandler
		}

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			store, stateful := sessionStore(ctx, cfg)

			token, err := currentToken(ctx, cfg, store, stateful)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				ctx.SetHeader(cfg.HeaderName, token)
				return proceed(ctx)
			}

			if err := validateToken(ctx, cfg, token, stateful); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return proceed(ctx)
		}
	}
}

// TokenFromContext returns the token the middleware stored for ctx
func TokenFromContext(ctx router.Context, contextKey ...string) string {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}
	token, _ := ctx.Locals(key).(string)
	return token
}

func sessionStore(ctx router.Context, cfg Config) (TokenStore, bool) {
	if cfg.Session == nil {
		return nil, false
	}
	store, ok := cfg.Session(ctx)
	return store, ok && store != nil
}

// currentToken returns the session token, creating it on first use,
// or a fresh stateless token.
func currentToken(ctx router.Context, cfg Config, store TokenStore, stateful bool) (string, error) {
	if !stateful {
		return generateStatelessToken(ctx, cfg)
	}

	token, err := store.Get(ctx.Context(), cfg.SessionKey)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}

	token, err = generateToken(cfg.TokenLength)
	if err != nil {
		return "", err
	}

	if err := store.Set(ctx.Context(), cfg.SessionKey, token); err != nil {
		return "", err
	}
	return token, nil
}

// validateToken validates the CSRF token from the request
func validateToken(ctx router.Context, cfg Config, expectedToken string, stateful bool) error {
	receivedToken := extractToken(ctx, cfg)
	if receivedToken == "" {
		return ErrTokenMissing
	}

	if stateful {
		if expectedToken == "" {
			return ErrTokenMismatch
		}
		if subtle.ConstantTimeCompare([]byte(receivedToken), []byte(expectedToken)) != 1 {
			return ErrTokenMismatch
		}
		return nil
	}

	return validateStatelessToken(ctx, cfg, receivedToken)
}

func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func generateStatelessToken(ctx router.Context, cfg Config) (string, error) {
	if len(cfg.SecureKey) == 0 {
		return "", ErrSecureKeyMissing
	}

	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", time.Now().UTC().Unix(), hex.EncodeToString(nonce), bindingKey(ctx, cfg))

	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateStatelessToken(ctx router.Context, cfg Config, token string) error {
	if len(cfg.SecureKey) == 0 {
		return ErrSecureKeyMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	issued, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(parts[1]); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(bindingKey(ctx, cfg))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(issued, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// bindingKey ties a stateless token to the session, or to the client
// address reported by the proxy for requests without one.
func bindingKey(ctx router.Context, cfg Config) string {
	if id, ok := ctx.Locals(cfg.SessionIDKey).(string); ok && id != "" {
		return "sid_" + id
	}
	return "ip_" + clientAddress(ctx)
}

func clientAddress(ctx router.Context) string {
	if fwd := ctx.Header("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return ctx.Header("X-Real-Ip")
}

func extractToken(ctx router.Context, cfg Config) string {
	for _, extractor := range getExtractors(cfg.TokenLookup) {
		token, err := extractor(ctx)
		if token != "" && err == nil {
			return token
		}
	}
	return ""
}

// getExtractors parses "header:X-CSRF-Token,form:_token"
func getExtractors(tokenLookup string) []TokenExtractor {
	var extractors []TokenExtractor

	for _, part := range strings.Split(tokenLookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" {
			continue
		}
		switch source {
		case "form":
			extractors = append(extractors, extractorFromForm(name))
		case "header":
			extractors = append(extractors, extractorFromHeader(name))
		}
	}

	return extractors
}

// extractorFromForm reads the field from an urlencoded body, falling
// back to the query string.
func extractorFromForm(fieldName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		if strings.HasPrefix(ctx.Header(router.HeaderContentType), "application/x-www-form-urlencoded") {
			values, err := url.ParseQuery(string(ctx.Body()))
			if err != nil {
				return "", err
			}
			if token := values.Get(fieldName); token != "" {
				return token, nil
			}
		}
		return ctx.Query(fieldName, ""), nil
	}
}

func extractorFromHeader(headerName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		return ctx.Header(headerName), nil
	}
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "header:" + cfg.HeaderName + ",form:" + cfg.FormFieldName
	}

	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}

	if cfg.SessionIDKey == "" {
		cfg.SessionIDKey = DefaultSessionIDKey
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	status := router.StatusForbidden
	switch {
	case errors.Is(err, ErrTokenMissing):
		status = router.StatusBadRequest
	case errors.Is(err, ErrTokenMismatch), errors.Is(err, ErrTokenExpired):
	default:
		status = router.StatusInternalServerError
		err = errors.New("CSRF validation error")
	}
	return ctx.JSON(status, map[string]string{
		"notice": err.Error(),
		"level":  "danger",
	})
}

// initializeSecureKey validates the configured key or creates a random
// one, tokens then only verify within this process.
func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
