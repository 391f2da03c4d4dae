package identity

import "errors"

var (
	ErrNotFound     = errors.New("principal not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrLicenseTaken = errors.New("license number already registered")
	ErrValidation   = errors.New("validation failed")
)
