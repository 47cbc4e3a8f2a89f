package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords and tokens with bcrypt
type BcryptHasher struct {
	cost int
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher returns a hasher using cost. A zero cost picks the
// build default, values are clamped to the bcrypt range.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost <= 0:
		cost = passwordHashCost()
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the work factor in use
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt digest of secret
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	d, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	return string(d), err
}

// Verify reports whether secret matches digest. A nil or empty
// digest never matches.
func (h *BcryptHasher) Verify(digest *string, secret string) bool {
	if digest == nil || *digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*digest), []byte(secret)) == nil
}
