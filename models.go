package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Gender is the optional gender attribute of a user
type Gender int

const (
	GenderUnspecified Gender = iota
	GenderMale
	GenderFemale
	GenderOther
)

// Label returns the display label, unknown values read as unspecified
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderOther:
		return "Other"
	default:
		return "Not specified"
	}
}

func (g Gender) Valid() bool {
	return g >= GenderUnspecified && g <= GenderOther
}

// ParseGender reads form input. Blank means unspecified.
func ParseGender(s string) (Gender, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GenderUnspecified, true
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return GenderUnspecified, false
	}

	g := Gender(n)
	return g, g.Valid()
}

// User is the user model
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name             string     `bun:"name,notnull" json:"name"`
	Email            string     `bun:"email,notnull,unique" json:"email"`
	FirstName        string     `bun:"first_name" json:"first_name,omitempty"`
	LastName         string     `bun:"last_name" json:"last_name,omitempty"`
	Age              int        `bun:"age,notnull" json:"age"`
	Gender           Gender     `bun:"gender,notnull" json:"gender"`
	Birthday         *time.Time `bun:"birthday,nullzero" json:"birthday,omitempty"`
	PasswordHash     string     `bun:"password_hash,notnull" json:"-"`
	Admin            bool       `bun:"is_admin,notnull" json:"admin"`
	Activated        bool       `bun:"activated,notnull" json:"activated"`
	ActivatedAt      *time.Time `bun:"activated_at,nullzero" json:"activated_at,omitempty"`
	ActivationDigest *string    `bun:"activation_digest" json:"-"`
	RememberDigest   *string    `bun:"remember_digest" json:"-"`
	ResetDigest      *string    `bun:"reset_digest" json:"-"`
	ResetSentAt      *time.Time `bun:"reset_sent_at,nullzero" json:"-"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// GenderLabel is the display label of the user's gender
func (u *User) GenderLabel() string {
	if u == nil {
		return GenderUnspecified.Label()
	}
	return u.Gender.Label()
}

// FullName joins first and last name, falling back to Name
func (u *User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Name
	}
	return full
}

// RegistrationInput is the allow listed signup payload
type RegistrationInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Age                  *int   `json:"age"`
	FirstName            string `json:"first_name,omitempty"`
	LastName             string `json:"last_name,omitempty"`
	Gender               string `json:"gender,omitempty"`
	Birthday             string `json:"birthday,omitempty"`
}

// ProfileUpdateInput is the allow listed profile payload. Blank
// password fields leave the password untouched.
type ProfileUpdateInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
	Age                  *int   `json:"age"`
	FirstName            string `json:"first_name,omitempty"`
	LastName             string `json:"last_name,omitempty"`
	Gender               string `json:"gender,omitempty"`
	Birthday             string `json:"birthday,omitempty"`
}

// PasswordResetInput carries the new password of a reset
type PasswordResetInput struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// LoginInput is the login payload
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// PasswordResetRequest is the payload that starts a reset
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// NormalizeEmail lower cases an email for storage and lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}
