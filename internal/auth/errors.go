package auth

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("not authorized")
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrPrincipalNotFound   = fmt.Errorf("%w: principal not found", ErrUnauthenticated)
	ErrAccountDeactivated  = errors.New("account has been deactivated")
	ErrForbiddenRole       = errors.New("role is not permitted to perform this action")
	ErrForbiddenPermission = errors.New("missing permission for this action")

	ErrMalformedToken = errors.New("malformed token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")

	ErrInvalidResetToken = errors.New("reset token is invalid or has expired")
)
