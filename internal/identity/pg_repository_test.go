package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var principalCols = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone", "is_active",
	"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
}

func practitionerRow(id uuid.UUID, verified bool) *pgxmock.Rows {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := append(append([]string{}, principalCols...),
		"specialty", "degree", "experience_years", "license_number", "fee", "about", "is_available", "is_verified")
	return pgxmock.NewRows(cols).AddRow(
		id, "house@clinic.test", "hash", "Greg", "House", "555", true,
		(*string)(nil), (*time.Time)(nil), now, now,
		"Diagnostics", "MD", 20, "LIC-1", int64(15000), "", true, verified,
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPgFindByIDPractitioner(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM practitioners WHERE id").WithArgs(id).WillReturnRows(practitionerRow(id, true))

	acct, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	p, ok := acct.(*Practitioner)
	require.True(t, ok)
	assert.Equal(t, "Diagnostics", p.Specialty)
	assert.Equal(t, int64(15000), p.Fee)
	assert.True(t, p.Bookable())
	assert.Equal(t, RolePractitioner, acct.Role())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPatientRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM patients WHERE id").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindByEmailNormalizes(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPatientRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM patients WHERE lower\\(email\\)").WithArgs("ann@clinic.test").WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "  Ann@Clinic.TEST ")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertMapsUniqueViolations(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	p := &Practitioner{Principal: Principal{ID: uuid.New(), Email: "a@b.c"}, LicenseNumber: "LIC-1"}

	mock.ExpectExec("INSERT INTO practitioners").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "practitioners_license_uq"})
	err := repo.Insert(context.Background(), p)
	assert.ErrorIs(t, err, ErrLicenseTaken)

	mock.ExpectExec("INSERT INTO practitioners").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "practitioners_email_uq"})
	err = repo.Insert(context.Background(), p)
	assert.ErrorIs(t, err, ErrEmailTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertRejectsWrongRole(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPatientRepository(mock)

	err := repo.Insert(context.Background(), &Administrator{})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateByIDVerify(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	id := uuid.New()
	verified := true

	mock.ExpectQuery("UPDATE practitioners SET updated_at = now\\(\\), is_verified = \\$2").
		WithArgs(id, true).
		WillReturnRows(practitionerRow(id, true))

	acct, err := repo.UpdateByID(context.Background(), id, Patch{IsVerified: &verified})
	require.NoError(t, err)
	assert.True(t, acct.(*Practitioner).IsVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateByIDPractitionerFieldsOnPatient(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPatientRepository(mock)
	available := false

	_, err := repo.UpdateByID(context.Background(), uuid.New(), Patch{IsAvailable: &available})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCountWithFilter(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	active, verified := true, false

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM practitioners WHERE").
		WithArgs("%house%", true, false).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background(), ListFilter{Search: "house", Active: &active, Verified: &verified})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindPaginates(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM practitioners ORDER BY created_at DESC OFFSET \\$1 LIMIT \\$2").
		WithArgs(10, 5).
		WillReturnRows(practitionerRow(id, false))

	accts, err := repo.Find(context.Background(), ListFilter{}, 10, 5)
	require.NoError(t, err)
	require.Len(t, accts, 1)
	assert.Equal(t, id, accts[0].Base().ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPatientRepository(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM patients").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)

	mock.ExpectExec("DELETE FROM patients").WithArgs(id).WillReturnError(&pgconn.PgError{Code: "23503"})
	err := repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrValidation)

	mock.ExpectExec("DELETE FROM patients").WithArgs(id).WillReturnError(errors.New("conn reset"))
	err = repo.Delete(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateByIDProfile(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	id := uuid.New()
	first, fee := "Gregory", int64(20000)

	mock.ExpectQuery("UPDATE practitioners SET updated_at = now\\(\\), first_name = \\$2, fee = \\$3").
		WithArgs(id, "Gregory", int64(20000)).
		WillReturnRows(practitionerRow(id, true))

	_, err := repo.UpdateByID(context.Background(), id, Patch{Profile: Profile{FirstName: &first, Fee: &fee}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateByIDPatientFieldsOnPractitioner(t *testing.T) {
	mock := newMock(t)
	repo := NewPgPractitionerRepository(mock)
	group := "O+"

	_, err := repo.UpdateByID(context.Background(), uuid.New(), Patch{Profile: Profile{BloodGroup: &group}})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}
