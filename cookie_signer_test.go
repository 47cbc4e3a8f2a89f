package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSignerRoundTrip(t *testing.T) {
	signer := auth.NewCookieSigner([]byte("0123456789abcdef0123456789abcdef"))

	signed, err := signer.Sign(auth.CookieUserID, "42")
	require.NoError(t, err)

	value, err := signer.Verify(auth.CookieUserID, signed)
	require.NoError(t, err)
	assert.Equal(t, "42", value)
}

func TestCookieSignerRejects(t *testing.T) {
	signer := auth.NewCookieSigner([]byte("0123456789abcdef0123456789abcdef"))
	other := auth.NewCookieSigner([]byte("fedcba9876543210fedcba9876543210"))

	signed, err := signer.Sign(auth.CookieUserID, "42")
	require.NoError(t, err)

	foreign, err := other.Sign(auth.CookieUserID, "42")
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
		value  string
	}{
		{name: "empty value", cookie: auth.CookieUserID, value: ""},
		{name: "plain id", cookie: auth.CookieUserID, value: "42"},
		{name: "tampered", cookie: auth.CookieUserID, value: tamper(signed)},
		{name: "other key", cookie: auth.CookieUserID, value: foreign},
		{name: "other cookie", cookie: auth.CookieRememberToken, value: signed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.cookie, tt.value)
			assert.ErrorIs(t, err, auth.ErrInvalidSignature)
		})
	}
}

func TestCookieSignerEmptyKey(t *testing.T) {
	_, err := auth.NewCookieSigner(nil).Sign(auth.CookieUserID, "42")
	assert.Error(t, err)
}

// tamper flips one character inside the signature segment
func tamper(signed string) string {
	b := []byte(signed)
	i := len(b) - 5
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
