package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MsgBlank           = "can't be blank"
	MsgInvalid         = "is invalid"
	MsgTaken           = "has already been taken"
	MsgTooShort        = "is too short (minimum is 6 characters)"
	MsgConfirmation    = "doesn't match Password"
	MsgPositiveInteger = "must be a positive integer"
	MsgEmptyPassword   = "can't be empty"
	MsgInvalidDate     = "must be a valid date"

	MinPasswordLength = 6
	BirthdayLayout    = "2006-01-02"
)

var emailPattern = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-.]+\.[a-z]+$`)

// EmailTaken reports whether email belongs to an account other than
// the one being validated.
type EmailTaken func(ctx context.Context, email string) (bool, error)

// userAttributes is the shared shape of signup and profile input
type userAttributes struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Age                  *int   `json:"age"`
	Gender               string `json:"gender"`
	Birthday             string `json:"birthday"`
}

func (a *userAttributes) validate(ctx context.Context, taken EmailTaken, withPassword bool) error {
	fields := []*validation.FieldRules{
		validation.Field(&a.Name, validation.Required.Error(MsgBlank), validation.By(notBlank)),
		validation.Field(&a.Email,
			validation.Required.Error(MsgBlank),
			validation.Match(emailPattern).Error(MsgInvalid),
			validation.By(uniqueEmail(ctx, taken)),
		),
		validation.Field(&a.Age,
			validation.NotNil.Error(MsgBlank),
			validation.By(positiveInteger),
		),
		validation.Field(&a.Gender, validation.By(validGender)),
		validation.Field(&a.Birthday, validation.Date(BirthdayLayout).Error(MsgInvalidDate)),
	}

	if withPassword {
		fields = append(fields, passwordRules(&a.Password, &a.PasswordConfirmation)...)
	}

	return validation.ValidateStruct(a, fields...)
}

func passwordRules(password, confirmation *string) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(password,
			validation.Required.Error(MsgBlank),
			validation.By(notBlank),
			validation.RuneLength(MinPasswordLength, 0).Error(MsgTooShort),
		),
		validation.Field(confirmation,
			validation.Required.Error(MsgBlank),
			validation.By(notBlank),
			validation.By(func(value any) error {
				if s, _ := value.(string); s != *password {
					return errors.New(MsgConfirmation)
				}
				return nil
			}),
		),
	}
}

func (in PasswordResetInput) validate() error {
	if in.Password == "" {
		return validation.Errors{"password": errors.New(MsgEmptyPassword)}
	}
	return validation.ValidateStruct(&in, passwordRules(&in.Password, &in.PasswordConfirmation)...)
}

// notBlank rejects strings made only of whitespace, which Required lets through
func notBlank(value any) error {
	if s, ok := value.(string); ok && s != "" && strings.TrimSpace(s) == "" {
		return errors.New(MsgBlank)
	}
	return nil
}

func uniqueEmail(ctx context.Context, taken EmailTaken) validation.RuleFunc {
	return func(value any) error {
		email, _ := value.(string)
		if email == "" || taken == nil {
			return nil
		}

		exists, err := taken(ctx, email)
		if err != nil {
			return validation.NewInternalError(err)
		}
		if exists {
			return errors.New(MsgTaken)
		}
		return nil
	}
}

func positiveInteger(value any) error {
	var age *int
	switch v := value.(type) {
	case *int:
		age = v
	case int:
		age = &v
	}
	if age != nil && *age <= 0 {
		return errors.New(MsgPositiveInteger)
	}
	return nil
}

func validGender(value any) error {
	s, _ := value.(string)
	if _, ok := ParseGender(s); !ok {
		return errors.New(MsgInvalid)
	}
	return nil
}

func parseBirthday(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(BirthdayLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// IsValidationError reports whether err carries field errors
func IsValidationError(err error) bool {
	_, ok := ValidationErrors(err)
	return ok
}

// ValidationErrors extracts field errors keyed by attribute name
func ValidationErrors(err error) (map[string]string, bool) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	out := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out, true
}
