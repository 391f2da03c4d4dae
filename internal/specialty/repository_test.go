package specialty

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var specialtyCols = []string{"id", "name", "description", "is_active", "display_order", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPgListActiveOnly(t *testing.T) {
	mock := newMock(t)
	repo := NewPgRepository(mock)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM specialties WHERE is_active ORDER BY display_order, name").
		WillReturnRows(pgxmock.NewRows(specialtyCols).
			AddRow(uuid.New(), "Cardiology", "", true, 1, now, now).
			AddRow(uuid.New(), "Dermatology", "Skin", true, 2, now, now))

	out, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Dermatology", out[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertMapsDuplicateName(t *testing.T) {
	mock := newMock(t)
	repo := NewPgRepository(mock)
	sp := &Specialty{ID: uuid.New(), Name: "Cardiology", IsActive: true}

	mock.ExpectExec("INSERT INTO specialties").
		WithArgs(sp.ID, "Cardiology", "", true, 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "specialties_name_uq"})

	assert.ErrorIs(t, repo.Insert(context.Background(), sp), ErrNameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPgRepository(mock)
	id := uuid.New()
	order := 3

	mock.ExpectQuery("UPDATE specialties SET updated_at = now\\(\\), display_order = \\$2").
		WithArgs(id, 3).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateByID(context.Background(), id, Patch{DisplayOrder: &order})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPgRepository(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM specialties WHERE id").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
