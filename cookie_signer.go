package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature is returned for signed cookies that fail to verify
var ErrInvalidSignature = errors.New("invalid cookie signature")

type cookieClaims struct {
	jwt.RegisteredClaims
	Cookie string `json:"ck"`
}

// CookieSigner makes cookie values tamper evident. The cookie name is
// part of the signed payload so a value can not be moved between
// cookies.
type CookieSigner struct {
	key []byte
}

func NewCookieSigner(key []byte) *CookieSigner {
	return &CookieSigner{key: key}
}

// Sign returns the signed form of value for cookie name
func (s *CookieSigner) Sign(name, value string) (string, error) {
	if len(s.key) == 0 {
		return "", errors.New("cookie signer: empty key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: value,
		},
		Cookie: name,
	})

	return token.SignedString(s.key)
}

// Verify returns the value carried by signed, checking it was signed
// with our key for cookie name.
func (s *CookieSigner) Verify(name, signed string) (string, error) {
	if signed == "" || len(s.key) == 0 {
		return "", ErrInvalidSignature
	}

	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidSignature
	}

	if claims.Cookie != name || claims.Subject == "" {
		return "", ErrInvalidSignature
	}

	return claims.Subject, nil
}
