package service

import (
	"errors"
	"fmt"

	"locarto/pkg/database"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrDuplicateProduct   = fmt.Errorf("%w: product already exists for this vendor", ErrConflict)
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrAlreadyPaid        = errors.New("transaction already paid")

	errOrderNotFound = fmt.Errorf("%w: order", ErrNotFound)
)

// translate maps gorm errors onto the sentinels above; anything else passes through
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case database.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s", ErrConflict, what)
	}
	return err
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
