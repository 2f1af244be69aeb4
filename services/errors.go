package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrFileTooLarge    = errors.New("file exceeds the 5 MB limit")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrRateLimited     = errors.New("too many requests, try again later")
	ErrModelFailed     = errors.New("model request failed")
	ErrStorageDisabled = errors.New("avatar storage is not configured")
	ErrProfileNotFound = errors.New("profile not found")

	ErrAuthUnavailable  = errors.New("sign-in method not configured")
	ErrAuthFailed       = errors.New("invalid email or password")
	ErrUserExists       = errors.New("an account with this email already exists")
	ErrInvalidCode      = errors.New("invalid or expired confirmation code")
	ErrUserNotConfirmed = errors.New("email address not verified")
	ErrInvalidIDToken   = errors.New("invalid Google ID token")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
