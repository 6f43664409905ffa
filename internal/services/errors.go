package services

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrDuplicateUsername     = errors.New("username already taken")
	ErrInvalidToken          = errors.New("invalid verification token")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrUserNotFound          = errors.New("user not found")
	ErrIncorrectPassword     = errors.New("current password is incorrect")
	ErrPasswordTooLong       = errors.New("password too long")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrEmptyItems            = errors.New("template items must not be empty")
	ErrNotFound              = errors.New("record not found")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)

func storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
