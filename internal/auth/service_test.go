package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
)

type captureMailer struct {
	urls []string
	err  error
}

func (m *captureMailer) PasswordReset(_ context.Context, _ identity.Account, resetURL string) error {
	m.urls = append(m.urls, resetURL)
	return m.err
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.urls)
	u := m.urls[len(m.urls)-1]
	rest := strings.TrimPrefix(u, "https://app.clinic.test/reset-password/")
	token, _, ok := strings.Cut(rest, "?")
	require.True(t, ok, u)
	return token
}

type harness struct {
	svc    *auth.Service
	guard  *auth.Guard
	dir    *identity.Directory
	mailer *captureMailer
}

func newHarness(t *testing.T, ttl time.Duration) *harness {
	t.Helper()
	dir := memstore.NewDirectory()
	codec, err := auth.NewTokenCodec("test-secret", "clinic-test", time.Hour)
	require.NoError(t, err)
	mailer := &captureMailer{}
	svc := auth.NewService(dir, codec, mailer, auth.ServiceConfig{
		BcryptCost:    bcrypt.MinCost,
		ResetTokenTTL: ttl,
		FrontendURL:   "https://app.clinic.test",
	}, nil, zerolog.Nop())
	return &harness{svc: svc, guard: auth.NewGuard(codec, dir), dir: dir, mailer: mailer}
}

func registerPatient(t *testing.T, h *harness, email string) auth.Session {
	t.Helper()
	sess, err := h.svc.Register(context.Background(), auth.RegisterInput{
		Role: identity.RolePatient, Email: email, Password: "hunter22", FirstName: "Ann", LastName: "Perkins",
	})
	require.NoError(t, err)
	return sess
}

func TestRegisterPatientIssuesUsableToken(t *testing.T) {
	h := newHarness(t, 0)
	sess := registerPatient(t, h, "  Ann@Clinic.Test ")

	assert.Equal(t, "ann@clinic.test", sess.Account.Base().Email)
	assert.NotEqual(t, "hunter22", sess.Account.Base().PasswordHash)

	actor, err := h.guard.Authenticate(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Account.Base().ID, actor.ID)
	assert.Equal(t, identity.RolePatient, actor.Role)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	registerPatient(t, h, "ann@clinic.test")

	_, err := h.svc.Register(ctx, auth.RegisterInput{
		Role: identity.RolePatient, Email: "ANN@clinic.test", Password: "hunter22", FirstName: "A", LastName: "P",
	})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	bad := []auth.RegisterInput{
		{Role: identity.RolePatient, Email: "not-an-email", Password: "hunter22", FirstName: "A", LastName: "P"},
		{Role: identity.RolePatient, Email: "b@clinic.test", Password: "123", FirstName: "A", LastName: "P"},
		{Role: identity.RolePatient, Email: "c@clinic.test", Password: "hunter22", FirstName: "", LastName: "P"},
		{Role: identity.RoleAdmin, Email: "d@clinic.test", Password: "hunter2222", FirstName: "A", LastName: "P"},
		{Role: identity.RolePractitioner, Email: "e@clinic.test", Password: "hunter22", FirstName: "A", LastName: "P"},
	}
	for _, in := range bad {
		_, err := h.svc.Register(ctx, in)
		assert.ErrorIs(t, err, identity.ErrValidation, "%+v", in)
	}
}

func TestRegisterRejectsDisplayNameEmail(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	registerPatient(t, h, "victim@clinic.test")

	for _, email := range []string{
		"Mallory <victim@clinic.test>",
		"<victim@clinic.test>",
		"victim@clinic.test (Mallory)",
	} {
		_, err := h.svc.Register(ctx, auth.RegisterInput{
			Role: identity.RolePatient, Email: email, Password: "hunter22", FirstName: "Mal", LastName: "Lory",
		})
		assert.ErrorIs(t, err, identity.ErrValidation, email)
	}

	repo, err := h.dir.For(identity.RolePatient)
	require.NoError(t, err)
	_, err = repo.FindByEmail(ctx, "mallory <victim@clinic.test>")
	assert.ErrorIs(t, err, identity.ErrNotFound)

	_, err = h.svc.CreateAdmin(ctx, auth.AdminInput{
		Email: "Root <root@clinic.test>", Password: "longenough", FirstName: "Root", LastName: "Admin",
	})
	assert.ErrorIs(t, err, identity.ErrValidation)
}

func TestRegisterPractitionerStartsUnverified(t *testing.T) {
	h := newHarness(t, 0)
	sess, err := h.svc.Register(context.Background(), auth.RegisterInput{
		Role: identity.RolePractitioner, Email: "house@clinic.test", Password: "vicodin1",
		FirstName: "Greg", LastName: "House", Specialty: "Diagnostics", LicenseNumber: "LIC-1", Fee: 20000,
	})
	require.NoError(t, err)

	p, ok := sess.Account.(*identity.Practitioner)
	require.True(t, ok)
	assert.False(t, p.IsVerified)
	assert.True(t, p.IsAvailable)
	assert.False(t, p.Bookable())

	_, err = h.svc.Register(context.Background(), auth.RegisterInput{
		Role: identity.RolePractitioner, Email: "wilson@clinic.test", Password: "oncology",
		FirstName: "James", LastName: "Wilson", Specialty: "Oncology", LicenseNumber: "LIC-1",
	})
	assert.ErrorIs(t, err, identity.ErrLicenseTaken)
}

func TestLogin(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	registerPatient(t, h, "ann@clinic.test")

	sess, err := h.svc.Login(ctx, "ANN@clinic.test", "hunter22", identity.RolePatient)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = h.svc.Login(ctx, "ann@clinic.test", "wrong-pass", identity.RolePatient)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, "nobody@clinic.test", "hunter22", identity.RolePatient)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, auth.ErrInvalidCredentials.Error(), err.Error())

	// the same email under another role is a different principal
	_, err = h.svc.Login(ctx, "ann@clinic.test", "hunter22", identity.RolePractitioner)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := registerPatient(t, h, "ann@clinic.test")

	inactive := false
	repo, err := h.dir.For(identity.RolePatient)
	require.NoError(t, err)
	_, err = repo.UpdateByID(ctx, sess.Account.Base().ID, identity.Patch{IsActive: &inactive})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, "ann@clinic.test", "hunter22", identity.RolePatient)
	assert.ErrorIs(t, err, auth.ErrAccountDeactivated)

	_, err = h.guard.Check(ctx, sess.Token, nil, "")
	assert.ErrorIs(t, err, auth.ErrAccountDeactivated)
}

func TestAdminLoginStampsLastLogin(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	adm, err := h.svc.CreateAdmin(ctx, auth.AdminInput{
		Email: "root@clinic.test", Password: "longenough", FirstName: "Root", LastName: "Admin",
		Permissions: []string{identity.PermManageUsers},
	})
	require.NoError(t, err)
	assert.Equal(t, identity.TierAdmin, adm.Tier)
	assert.Nil(t, adm.LastLoginAt)

	sess, err := h.svc.Login(ctx, "root@clinic.test", "longenough", identity.RoleAdmin)
	require.NoError(t, err)
	logged, ok := sess.Account.(*identity.Administrator)
	require.True(t, ok)
	assert.NotNil(t, logged.LastLoginAt)

	actor, err := h.guard.Check(ctx, sess.Token, []identity.Role{identity.RoleAdmin}, identity.PermManageUsers)
	require.NoError(t, err)
	assert.True(t, actor.HasPermission(identity.PermManageUsers))
}

func TestCreateAdminRejectsUnknownPermission(t *testing.T) {
	h := newHarness(t, 0)
	_, err := h.svc.CreateAdmin(context.Background(), auth.AdminInput{
		Email: "root@clinic.test", Password: "longenough", FirstName: "Root", LastName: "Admin",
		Permissions: []string{"launch_missiles"},
	})
	assert.ErrorIs(t, err, identity.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sess := registerPatient(t, h, "ann@clinic.test")
	actor := auth.ActorFrom(sess.Account)

	_, err := h.svc.ChangePassword(ctx, actor, "wrong-pass", "newpass1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = h.svc.ChangePassword(ctx, actor, "hunter22", "newpass1")
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, "ann@clinic.test", "hunter22", identity.RolePatient)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, "ann@clinic.test", "newpass1", identity.RolePatient)
	require.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	h := newHarness(t, 10*time.Minute)
	ctx := context.Background()
	registerPatient(t, h, "ann@clinic.test")

	require.NoError(t, h.svc.ForgotPassword(ctx, "ann@clinic.test", identity.RolePatient))
	require.Len(t, h.mailer.urls, 1)
	assert.True(t, strings.HasSuffix(h.mailer.urls[0], "?role=patient"))
	token := h.mailer.lastToken(t)
	assert.Len(t, token, 40)

	_, err := h.svc.ResetPassword(ctx, identity.RolePatient, token, "brandnew1")
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, "ann@clinic.test", "brandnew1", identity.RolePatient)
	require.NoError(t, err)

	// single use
	_, err = h.svc.ResetPassword(ctx, identity.RolePatient, token, "another1")
	assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
}

func TestResetPasswordRefusesDeactivatedAccount(t *testing.T) {
	h := newHarness(t, 10*time.Minute)
	ctx := context.Background()
	sess := registerPatient(t, h, "ann@clinic.test")

	require.NoError(t, h.svc.ForgotPassword(ctx, "ann@clinic.test", identity.RolePatient))
	token := h.mailer.lastToken(t)

	inactive := false
	repo, err := h.dir.For(identity.RolePatient)
	require.NoError(t, err)
	_, err = repo.UpdateByID(ctx, sess.Account.Base().ID, identity.Patch{IsActive: &inactive})
	require.NoError(t, err)

	reset, err := h.svc.ResetPassword(ctx, identity.RolePatient, token, "brandnew1")
	assert.ErrorIs(t, err, auth.ErrAccountDeactivated)
	assert.Empty(t, reset.Token)

	_, err = h.svc.Login(ctx, "ann@clinic.test", "hunter22", identity.RolePatient)
	assert.ErrorIs(t, err, auth.ErrAccountDeactivated)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.svc.ForgotPassword(context.Background(), "ghost@clinic.test", identity.RolePatient))
	assert.Empty(t, h.mailer.urls)
}

func TestResetTokenExpires(t *testing.T) {
	h := newHarness(t, time.Nanosecond)
	ctx := context.Background()
	registerPatient(t, h, "ann@clinic.test")

	require.NoError(t, h.svc.ForgotPassword(ctx, "ann@clinic.test", identity.RolePatient))
	token := h.mailer.lastToken(t)
	time.Sleep(time.Millisecond)

	_, err := h.svc.ResetPassword(ctx, identity.RolePatient, token, "brandnew1")
	assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	h := newHarness(t, 10*time.Minute)
	ctx := context.Background()
	registerPatient(t, h, "ann@clinic.test")
	h.mailer.err = errors.New("smtp down")

	err := h.svc.ForgotPassword(ctx, "ann@clinic.test", identity.RolePatient)
	require.Error(t, err)

	token := h.mailer.lastToken(t)
	_, err = h.svc.ResetPassword(ctx, identity.RolePatient, token, "brandnew1")
	assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
}
