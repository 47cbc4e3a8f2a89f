// Package config loads the server settings from defaults, an optional
// .env file, AUTH_* environment variables and command line flags, in
// that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	auth "github.com/goliatone/go-session-auth"
	"github.com/joho/godotenv"
)

// Session store kinds
const (
	SessionStoreMemory = "memory"
	SessionStoreDB     = "db"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "AUTH_"

// Config holds runtime settings for the auth server.
//
// Fields:
//   - Address: HTTP bind address.
//   - DatabaseDSN: sqlite DSN handed to sqliteshim.
//   - BaseURL: prefix of the links mailed to users.
//   - SigningKey: HMAC key for signed cookies and csrf tokens, at least 32 bytes.
//   - SessionStore: "memory" or "db".
//   - SMTPHost: when empty, mails are printed instead of sent.
type Config struct {
	Address              string
	DatabaseDSN          string
	BaseURL              string
	SigningKey           string
	HashCost             int
	ResetTokenExpiration string
	SessionCookieName    string
	SessionStore         string
	SessionTimeout       time.Duration
	SecureCookies        bool
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	SMTPFrom             string
	Debug                bool
}

var _ auth.Config = (*Config)(nil)

// LoadDefaults populates Config with development defaults.
// NOTE: the signing key must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.Address = ":8572"
	c.DatabaseDSN = "file:auth.db?cache=shared"
	c.BaseURL = "http://localhost:8572"
	c.SigningKey = "development-signing-key-change-me!"
	c.HashCost = 0
	c.ResetTokenExpiration = auth.DefaultResetExpiration
	c.SessionCookieName = auth.DefaultSessionCookie
	c.SessionStore = SessionStoreDB
	c.SessionTimeout = auth.DefaultSessionTimeout
	c.SecureCookies = false
	c.SMTPPort = 587
	c.SMTPFrom = "noreply@example.com"
}

// Load builds a Config. A missing env file is not an error.
func Load(envFile string, args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would fail later at runtime
func (c *Config) Validate() error {
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("config: signing key must be at least 32 bytes, got %d", len(c.SigningKey))
	}

	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreDB:
	default:
		return fmt.Errorf("config: unknown session store %q", c.SessionStore)
	}

	if c.SessionTimeout <= 0 {
		return fmt.Errorf("config: session timeout must be positive")
	}

	if _, err := time.ParseDuration(c.ResetTokenExpiration); err != nil {
		return fmt.Errorf("config: reset token expiration: %w", err)
	}

	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"ADDRESS":          &c.Address,
		"DATABASE_DSN":     &c.DatabaseDSN,
		"BASE_URL":         &c.BaseURL,
		"SIGNING_KEY":      &c.SigningKey,
		"RESET_EXPIRATION": &c.ResetTokenExpiration,
		"SESSION_COOKIE":   &c.SessionCookieName,
		"SESSION_STORE":    &c.SessionStore,
		"SMTP_HOST":        &c.SMTPHost,
		"SMTP_USERNAME":    &c.SMTPUsername,
		"SMTP_PASSWORD":    &c.SMTPPassword,
		"SMTP_FROM":        &c.SMTPFrom,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"HASH_COST": &c.HashCost,
		"SMTP_PORT": &c.SMTPPort,
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"SECURE_COOKIES": &c.SecureCookies,
		"DEBUG":          &c.Debug,
	}
	for name, dst := range bools {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "SESSION_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sSESSION_TIMEOUT: %w", EnvPrefix, err)
		}
		c.SessionTimeout = d
	}

	return nil
}

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetHashCost() int {
	return c.HashCost
}

func (c *Config) GetResetTokenExpiration() string {
	return c.ResetTokenExpiration
}

func (c *Config) GetSessionCookieName() string {
	return c.SessionCookieName
}

func (c *Config) GetSecureCookies() bool {
	return c.SecureCookies
}

func (c *Config) GetBaseURL() string {
	return c.BaseURL
}
