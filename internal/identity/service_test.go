package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
)

func seed(t *testing.T, dir *identity.Directory, acct identity.Account) {
	t.Helper()
	repo, err := dir.For(acct.Role())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), acct))
}

func principal(email, first string, created time.Time) identity.Principal {
	return identity.Principal{ID: uuid.New(), Email: email, FirstName: first, LastName: "Test", IsActive: true, CreatedAt: created}
}

func newService(t *testing.T) (*identity.Service, *identity.Directory) {
	t.Helper()
	dir := memstore.NewDirectory()
	return identity.NewService(dir, zerolog.Nop()), dir
}

func TestListPatientsPagesNewestFirst(t *testing.T) {
	svc, dir := newService(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Ann", "Bea", "Cal"} {
		seed(t, dir, &identity.Patient{Principal: principal(name+"@clinic.test", name, base.Add(time.Duration(i)*time.Hour))})
	}

	page, err := svc.ListPatients(context.Background(), identity.ListFilter{}, pagination.New(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Cal", page.Data[0].FirstName)

	page, err = svc.ListPatients(context.Background(), identity.ListFilter{Search: "bea"}, pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Bea", page.Data[0].FirstName)
}

func TestDeactivateOnlyManagedRoles(t *testing.T) {
	svc, dir := newService(t)
	p := &identity.Patient{Principal: principal("ann@clinic.test", "Ann", time.Now())}
	adm := &identity.Administrator{Principal: principal("root@clinic.test", "Root", time.Now())}
	seed(t, dir, p)
	seed(t, dir, adm)

	acct, err := svc.Deactivate(context.Background(), identity.RolePatient, p.ID)
	require.NoError(t, err)
	assert.False(t, acct.Base().IsActive)

	n, err := svc.CountActive(context.Background(), identity.RolePatient)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.Deactivate(context.Background(), identity.RoleAdmin, adm.ID)
	assert.ErrorIs(t, err, identity.ErrValidation)

	_, err = svc.Deactivate(context.Background(), identity.RolePatient, uuid.New())
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestVerifyAndToggleAvailability(t *testing.T) {
	svc, dir := newService(t)
	doc := &identity.Practitioner{Principal: principal("house@clinic.test", "Greg", time.Now()), LicenseNumber: "LIC-1", IsAvailable: true}
	seed(t, dir, doc)

	p, err := svc.VerifyPractitioner(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, p.IsVerified)
	assert.True(t, p.Bookable())

	p, err = svc.SetAvailability(context.Background(), doc.ID, nil)
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)

	yes := true
	p, err = svc.SetAvailability(context.Background(), doc.ID, &yes)
	require.NoError(t, err)
	assert.True(t, p.IsAvailable)

	_, err = svc.VerifyPractitioner(context.Background(), uuid.New())
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestDeleteManagedPrincipal(t *testing.T) {
	svc, dir := newService(t)
	p := &identity.Patient{Principal: principal("ann@clinic.test", "Ann", time.Now())}
	seed(t, dir, p)

	require.NoError(t, svc.Delete(context.Background(), identity.RolePatient, p.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), identity.RolePatient, p.ID), identity.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateProfile(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	p := &identity.Patient{Principal: principal("ann@clinic.test", "Ann", time.Now())}
	doc := &identity.Practitioner{Principal: principal("house@clinic.test", "Greg", time.Now()), LicenseNumber: "LIC-1", Fee: 100}
	seed(t, dir, p)
	seed(t, dir, doc)

	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	acct, err := svc.UpdateProfile(ctx, identity.RolePatient, p.ID, identity.Profile{
		FirstName:    ptr("  Annie "),
		Gender:       ptr("Female"),
		DateOfBirth:  &dob,
		AddressLine1: ptr("1 Pawnee Way"),
	})
	require.NoError(t, err)
	updated := acct.(*identity.Patient)
	assert.Equal(t, "Annie", updated.FirstName)
	assert.Equal(t, "Test", updated.LastName)
	assert.Equal(t, "female", updated.Gender)
	assert.Equal(t, "1 Pawnee Way", updated.AddressLine1)
	require.NotNil(t, updated.DateOfBirth)
	assert.True(t, dob.Equal(*updated.DateOfBirth))

	acct, err = svc.UpdateProfile(ctx, identity.RolePractitioner, doc.ID, identity.Profile{Fee: ptr(int64(25000)), About: ptr("Diagnostics")})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), acct.(*identity.Practitioner).Fee)
	assert.Equal(t, "LIC-1", acct.(*identity.Practitioner).LicenseNumber)

	bad := []struct {
		role    identity.Role
		id      uuid.UUID
		profile identity.Profile
	}{
		{identity.RolePatient, p.ID, identity.Profile{LastName: ptr("  ")}},
		{identity.RolePatient, p.ID, identity.Profile{Gender: ptr("robot")}},
		{identity.RolePatient, p.ID, identity.Profile{Fee: ptr(int64(10))}},
		{identity.RolePractitioner, doc.ID, identity.Profile{Fee: ptr(int64(-1))}},
		{identity.RolePractitioner, doc.ID, identity.Profile{BloodGroup: ptr("O+")}},
		{identity.RoleAdmin, p.ID, identity.Profile{FirstName: ptr("Root")}},
	}
	for _, tc := range bad {
		_, err := svc.UpdateProfile(ctx, tc.role, tc.id, tc.profile)
		assert.ErrorIs(t, err, identity.ErrValidation, "%+v", tc.profile)
	}

	_, err = svc.UpdateProfile(ctx, identity.RolePatient, uuid.New(), identity.Profile{FirstName: ptr("Ghost")})
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestPublicPractitionerAndRelated(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	listed := func(email, specialty string, verified, active bool) *identity.Practitioner {
		p := principal(email, "Doc", time.Now())
		p.IsActive = active
		doc := &identity.Practitioner{Principal: p, Specialty: specialty, LicenseNumber: uuid.NewString(), IsVerified: verified, IsAvailable: true}
		seed(t, dir, doc)
		return doc
	}

	house := listed("house@clinic.test", "Diagnostics", true, true)
	for range 5 {
		listed(uuid.NewString()[:8]+"@clinic.test", "Diagnostics", true, true)
	}
	listed("pending@clinic.test", "Diagnostics", false, true)
	listed("gone@clinic.test", "Diagnostics", true, false)
	listed("wilson@clinic.test", "Oncology", true, true)
	unverified := listed("new@clinic.test", "Oncology", false, true)

	got, err := svc.PublicPractitioner(ctx, house.ID)
	require.NoError(t, err)
	assert.Equal(t, house.ID, got.ID)

	_, err = svc.PublicPractitioner(ctx, unverified.ID)
	assert.ErrorIs(t, err, identity.ErrNotFound)

	related, err := svc.RelatedPractitioners(ctx, house.ID)
	require.NoError(t, err)
	assert.Len(t, related, identity.RelatedLimit)
	for _, r := range related {
		assert.NotEqual(t, house.ID, r.ID)
		assert.Equal(t, "Diagnostics", r.Specialty)
		assert.True(t, r.IsVerified)
		assert.True(t, r.IsActive)
	}

	_, err = svc.RelatedPractitioners(ctx, unverified.ID)
	assert.ErrorIs(t, err, identity.ErrNotFound)
}
