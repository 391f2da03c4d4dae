package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const (
	MinPasswordLength      = 6
	MinAdminPasswordLength = 8
)

// HashPassword hashes plaintext password using bcrypt. A cost of 0 selects bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext password with stored hash.
// Any mismatch, including an empty hash, is reported as ErrInvalidCredentials.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

var absentHashes sync.Map

// VerifyAbsent spends one bcrypt comparison at cost against a placeholder hash and always
// fails with ErrInvalidCredentials, so an unknown email costs the same as a wrong password.
func VerifyAbsent(password string, cost int) error {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, ok := absentHashes.Load(cost)
	if !ok {
		generated, err := bcrypt.GenerateFromPassword([]byte("absent-principal-placeholder"), cost)
		if err != nil {
			return ErrInvalidCredentials
		}
		hash, _ = absentHashes.LoadOrStore(cost, generated)
	}
	_ = bcrypt.CompareHashAndPassword(hash.([]byte), []byte(password))
	return ErrInvalidCredentials
}

// ValidatePassword enforces the per-role minimum length.
func ValidatePassword(role identity.Role, password string) error {
	minLen := MinPasswordLength
	if role == identity.RoleAdmin {
		minLen = MinAdminPasswordLength
	}
	if len(password) < minLen {
		return fmt.Errorf("%w: password must be at least %d characters", identity.ErrValidation, minLen)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", identity.ErrValidation)
	}
	return nil
}
