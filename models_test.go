package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
)

func TestParseGender(t *testing.T) {
	tests := []struct {
		input    string
		expected auth.Gender
		ok       bool
	}{
		{input: "", expected: auth.GenderUnspecified, ok: true},
		{input: "  ", expected: auth.GenderUnspecified, ok: true},
		{input: "0", expected: auth.GenderUnspecified, ok: true},
		{input: "1", expected: auth.GenderMale, ok: true},
		{input: "2", expected: auth.GenderFemale, ok: true},
		{input: " 3 ", expected: auth.GenderOther, ok: true},
		{input: "4", expected: auth.Gender(4), ok: false},
		{input: "-1", expected: auth.Gender(-1), ok: false},
		{input: "male", expected: auth.GenderUnspecified, ok: false},
	}

	for _, tt := range tests {
		t.Run("input "+tt.input, func(t *testing.T) {
			g, ok := auth.ParseGender(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, g)
		})
	}
}

func TestGenderLabel(t *testing.T) {
	assert.Equal(t, "Not specified", auth.GenderUnspecified.Label())
	assert.Equal(t, "Male", auth.GenderMale.Label())
	assert.Equal(t, "Female", auth.GenderFemale.Label())
	assert.Equal(t, "Other", auth.GenderOther.Label())
	assert.Equal(t, "Not specified", auth.Gender(42).Label())

	var nobody *auth.User
	assert.Equal(t, "Not specified", nobody.GenderLabel())
	assert.Equal(t, "Female", (&auth.User{Gender: auth.GenderFemale}).GenderLabel())
}

func TestFullName(t *testing.T) {
	tests := []struct {
		name     string
		user     auth.User
		expected string
	}{
		{name: "first and last", user: auth.User{Name: "mike", FirstName: "Michael", LastName: "Hartl"}, expected: "Michael Hartl"},
		{name: "first only", user: auth.User{Name: "mike", FirstName: "Michael"}, expected: "Michael"},
		{name: "last only", user: auth.User{Name: "mike", LastName: "Hartl"}, expected: "Hartl"},
		{name: "fallback to name", user: auth.User{Name: "mike"}, expected: "mike"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.FullName())
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "michael@example.com", auth.NormalizeEmail("Michael@Example.COM"))
}
