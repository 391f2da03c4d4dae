package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func newCodec(t *testing.T) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec("test-secret", "clinic-test", time.Hour)
	require.NoError(t, err)
	return c
}

func TestIssueAndValidate(t *testing.T) {
	c := newCodec(t)
	id := uuid.New()

	token, expiresAt, err := c.Issue(id, identity.RoleAdmin, []string{identity.PermManageUsers})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := c.Validate(token)
	require.NoError(t, err)
	got, err := claims.PrincipalID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, identity.RoleAdmin, claims.Role)
	assert.Equal(t, []string{identity.PermManageUsers}, claims.Permissions)
	assert.Equal(t, "clinic-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueOmitsPermissionsForNonAdmins(t *testing.T) {
	c := newCodec(t)
	token, _, err := c.Issue(uuid.New(), identity.RolePatient, []string{identity.PermManageUsers})
	require.NoError(t, err)

	claims, err := c.Validate(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Permissions)
}

func TestIssueRejectsBadInput(t *testing.T) {
	c := newCodec(t)
	_, _, err := c.Issue(uuid.Nil, identity.RolePatient, nil)
	assert.Error(t, err)
	_, _, err = c.Issue(uuid.New(), identity.Role("nurse"), nil)
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	c := newCodec(t)
	token, _, err := c.Issue(uuid.New(), identity.RolePatient, nil)
	require.NoError(t, err)

	_, err = c.Validate("")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = c.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)

	other, err := NewTokenCodec("another-secret", "clinic-test", time.Hour)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewTokenCodec("test-secret", "someone-else", time.Hour)
	require.NoError(t, err)
	_, err = foreign.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = c.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	c := newCodec(t)
	claims := Claims{
		Role: identity.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "clinic-test",
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = c.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenCodecRequiresSecret(t *testing.T) {
	_, err := NewTokenCodec("  ", "x", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenCodec("s", "x", 0)
	assert.Error(t, err)
}
