package auth

import (
	"chat-relay/errors"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username        string `validate:"required,alphanum,min=3,max=32"`
	FullName        string `validate:"required,min=1,max=64"`
	Gender          string `validate:"required,oneof=male female"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		if req.Password != req.ConfirmPassword {
			return errors.ErrPasswordMismatch
		}
		return err
	}

	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper  = false
		hasLower  = false
		hasNumber = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	return hasUpper && hasLower && hasNumber
}
