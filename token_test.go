package auth_test

import (
	"regexp"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestNewToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := auth.NewToken()
		require.NoError(t, err)

		assert.Len(t, token, 22)
		assert.Regexp(t, urlSafe, token)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}
