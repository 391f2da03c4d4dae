package specialty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

// Repository returns ErrNotFound for unknown ids and ErrNameTaken on duplicate names.
// List orders by display order, then name.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Specialty, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	Insert(ctx context.Context, s *Specialty) error
	UpdateByID(ctx context.Context, id uuid.UUID, patch Patch) (*Specialty, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const specialtyColumns = `id, name, description, is_active, display_order, created_at, updated_at`

type PgRepository struct {
	q db.DBTX
}

var _ Repository = (*PgRepository)(nil)

func NewPgRepository(q db.DBTX) *PgRepository {
	return &PgRepository{q: q}
}

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func mapWriteError(err error) error {
	if _, ok := db.UniqueViolation(err); ok {
		return ErrNameTaken
	}
	return err
}

func (r *PgRepository) List(ctx context.Context, activeOnly bool) ([]Specialty, error) {
	sql := `SELECT ` + specialtyColumns + ` FROM specialties`
	if activeOnly {
		sql += ` WHERE is_active`
	}
	sql += ` ORDER BY display_order, name`

	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	defer rows.Close()

	var out []Specialty
	for rows.Next() {
		s, err := scanSpecialty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return scanSpecialty(r.q.QueryRow(ctx, `SELECT `+specialtyColumns+` FROM specialties WHERE id = $1`, id))
}

func (r *PgRepository) Insert(ctx context.Context, s *Specialty) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO specialties (`+specialtyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Name, s.Description, s.IsActive, s.DisplayOrder, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *PgRepository) UpdateByID(ctx context.Context, id uuid.UUID, patch Patch) (*Specialty, error) {
	if patch.empty() {
		return r.FindByID(ctx, id)
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.DisplayOrder != nil {
		set("display_order", *patch.DisplayOrder)
	}

	s, err := scanSpecialty(r.q.QueryRow(ctx, `
		UPDATE specialties SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+specialtyColumns, args...))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return s, nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM specialties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete specialty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
