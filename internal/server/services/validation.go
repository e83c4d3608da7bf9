package services

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// bcrypt ignores input past 72 bytes, so longer passwords are refused.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

const passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"

type registration struct {
	Email    string
	Password string
}

func (r registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password,
			validation.Required,
			validation.Length(minPasswordLength, maxPasswordLength),
			validation.By(passwordStrength),
		),
	)
}

// passwordStrength requires an ASCII lower case letter, an ASCII upper case
// letter, an ASCII digit and one of passwordSpecials.
func passwordStrength(value interface{}) error {
	s, _ := value.(string)

	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	if !lower || !upper || !digit || !special {
		return errors.New("must contain lower and upper case letters, a digit and a special character")
	}
	return nil
}

func validateRegistration(email, password string) error {
	if err := (registration{Email: email, Password: password}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}
