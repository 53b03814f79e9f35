package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrUserAlreadyExists    = fmt.Errorf("username already taken")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrInvalidCredentials   = fmt.Errorf("invalid credentials")
	ErrInvalidPassword      = fmt.Errorf("password does not meet complexity requirements")
	ErrPasswordMismatch     = fmt.Errorf("passwords do not match")
	ErrTokenGeneration      = fmt.Errorf("token generation failed")
	ErrEmptyBody            = fmt.Errorf("message body is empty")
	ErrBodyTooLong          = fmt.Errorf("message body exceeds the maximum length")
	ErrSelfMessage          = fmt.Errorf("sender and recipient are the same identity")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
)

// MapToHTTPStatus translates domain errors to the status code returned by the
// REST layer. Unknown errors are treated as internal.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrEmptyBody),
		errors.Is(err, ErrBodyTooLong),
		errors.Is(err, ErrSelfMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
