package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const principalColumns = `id, email, password_hash, first_name, last_name, phone, is_active,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

// PgRepository stores one principal collection. Construct it with one of the per-role constructors.
type PgRepository struct {
	q       db.DBTX
	role    Role
	table   string
	columns string
	scan    func(row pgx.Row) (Account, error)
	insert  func(ctx context.Context, q db.DBTX, acct Account) error
}

var _ PrincipalRepository = (*PgRepository)(nil)

func NewPgPatientRepository(q db.DBTX) *PgRepository {
	return &PgRepository{
		q:       q,
		role:    RolePatient,
		table:   "patients",
		columns: principalColumns + `, date_of_birth, gender, blood_group, address_line1, address_line2`,
		scan:    scanPatient,
		insert:  insertPatient,
	}
}

func NewPgPractitionerRepository(q db.DBTX) *PgRepository {
	return &PgRepository{
		q:       q,
		role:    RolePractitioner,
		table:   "practitioners",
		columns: principalColumns + `, specialty, degree, experience_years, license_number, fee, about, is_available, is_verified`,
		scan:    scanPractitioner,
		insert:  insertPractitioner,
	}
}

func NewPgAdminRepository(q db.DBTX) *PgRepository {
	return &PgRepository{
		q:       q,
		role:    RoleAdmin,
		table:   "administrators",
		columns: principalColumns + `, tier, permissions, last_login_at`,
		scan:    scanAdmin,
		insert:  insertAdmin,
	}
}

// Helpers

func principalDest(p *Principal) []any {
	return []any{
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.IsActive,
		&p.ResetTokenHash,
		&p.ResetTokenExpiresAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanPatient(row pgx.Row) (Account, error) {
	var p Patient
	dest := append(principalDest(&p.Principal), &p.DateOfBirth, &p.Gender, &p.BloodGroup, &p.AddressLine1, &p.AddressLine2)
	if err := row.Scan(dest...); err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func scanPractitioner(row pgx.Row) (Account, error) {
	var p Practitioner
	dest := append(principalDest(&p.Principal),
		&p.Specialty, &p.Degree, &p.ExperienceYears, &p.LicenseNumber, &p.Fee, &p.About, &p.IsAvailable, &p.IsVerified)
	if err := row.Scan(dest...); err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func scanAdmin(row pgx.Row) (Account, error) {
	var a Administrator
	dest := append(principalDest(&a.Principal), &a.Tier, &a.Permissions, &a.LastLoginAt)
	if err := row.Scan(dest...); err != nil {
		return nil, mapNoRows(err)
	}
	return &a, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mapInsertError(err error) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		if strings.Contains(constraint, "license") {
			return ErrLicenseTaken
		}
		return ErrEmailTaken
	}
	return err
}

func insertPatient(ctx context.Context, q db.DBTX, acct Account) error {
	p, ok := acct.(*Patient)
	if !ok {
		return fmt.Errorf("%w: expected *Patient, got %T", ErrValidation, acct)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO patients (id, email, password_hash, first_name, last_name, phone, is_active,
			date_of_birth, gender, blood_group, address_line1, address_line2, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Phone, p.IsActive,
		p.DateOfBirth, p.Gender, p.BloodGroup, p.AddressLine1, p.AddressLine2, p.CreatedAt, p.UpdatedAt)
	return err
}

func insertPractitioner(ctx context.Context, q db.DBTX, acct Account) error {
	p, ok := acct.(*Practitioner)
	if !ok {
		return fmt.Errorf("%w: expected *Practitioner, got %T", ErrValidation, acct)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO practitioners (id, email, password_hash, first_name, last_name, phone, is_active,
			specialty, degree, experience_years, license_number, fee, about, is_available, is_verified,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, p.ID, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Phone, p.IsActive,
		p.Specialty, p.Degree, p.ExperienceYears, p.LicenseNumber, p.Fee, p.About, p.IsAvailable, p.IsVerified,
		p.CreatedAt, p.UpdatedAt)
	return err
}

func insertAdmin(ctx context.Context, q db.DBTX, acct Account) error {
	a, ok := acct.(*Administrator)
	if !ok {
		return fmt.Errorf("%w: expected *Administrator, got %T", ErrValidation, acct)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO administrators (id, email, password_hash, first_name, last_name, phone, is_active,
			tier, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Phone, a.IsActive,
		a.Tier, a.Permissions, a.CreatedAt, a.UpdatedAt)
	return err
}

// Interface methods

func (r *PgRepository) Role() Role { return r.role }

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+r.columns+` FROM `+r.table+` WHERE id = $1`, id)
	return r.scan(row)
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+r.columns+` FROM `+r.table+` WHERE lower(email) = $1`, NormalizeEmail(email))
	return r.scan(row)
}

func (r *PgRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (Account, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+r.columns+` FROM `+r.table+`
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2
	`, hash, now)
	return r.scan(row)
}

func (r *PgRepository) where(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		add("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+s+"%")
	}
	if f.Active != nil {
		add("is_active = $%d", *f.Active)
	}
	if r.role == RolePractitioner {
		if f.Verified != nil {
			add("is_verified = $%d", *f.Verified)
		}
		if f.Available != nil {
			add("is_available = $%d", *f.Available)
		}
		if s := strings.TrimSpace(f.Specialty); s != "" {
			add("specialty ILIKE $%d", s)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PgRepository) Find(ctx context.Context, filter ListFilter, skip, limit int) ([]Account, error) {
	where, args := r.where(filter)
	args = append(args, skip, limit)
	sql := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		r.columns, r.table, where, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acct, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (r *PgRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := r.where(filter)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM `+r.table+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table, err)
	}
	return n, nil
}

func (r *PgRepository) Insert(ctx context.Context, acct Account) error {
	if acct.Role() != r.role {
		return fmt.Errorf("%w: %s account in %s repository", ErrValidation, acct.Role(), r.role)
	}
	if err := r.insert(ctx, r.q, acct); err != nil {
		return mapInsertError(err)
	}
	return nil
}

func (r *PgRepository) UpdateByID(ctx context.Context, id uuid.UUID, patch Patch) (Account, error) {
	if patch.empty() {
		return r.FindByID(ctx, id)
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	switch {
	case patch.ResetToken != nil:
		set("reset_token_hash", patch.ResetToken.Hash)
		set("reset_token_expires_at", patch.ResetToken.ExpiresAt)
	case patch.ClearResetToken:
		sets = append(sets, "reset_token_hash = NULL", "reset_token_expires_at = NULL")
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if patch.IsAvailable != nil || patch.IsVerified != nil {
		if r.role != RolePractitioner {
			return nil, fmt.Errorf("%w: availability and verification apply to practitioners only", ErrValidation)
		}
		if patch.IsAvailable != nil {
			set("is_available", *patch.IsAvailable)
		}
		if patch.IsVerified != nil {
			set("is_verified", *patch.IsVerified)
		}
	}
	if err := r.setProfile(patch.Profile, set); err != nil {
		return nil, err
	}
	if patch.LastLoginAt != nil {
		if r.role != RoleAdmin {
			return nil, fmt.Errorf("%w: last login is tracked for administrators only", ErrValidation)
		}
		set("last_login_at", *patch.LastLoginAt)
	}

	row := r.q.QueryRow(ctx, `
		UPDATE `+r.table+` SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+r.columns, args...)
	return r.scan(row)
}

func (r *PgRepository) setProfile(p Profile, set func(col string, v any)) error {
	if p.FirstName != nil {
		set("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		set("last_name", *p.LastName)
	}
	if p.Phone != nil {
		set("phone", *p.Phone)
	}
	if p.HasPatientFields() {
		if r.role != RolePatient {
			return fmt.Errorf("%w: personal details apply to patients only", ErrValidation)
		}
		if p.DateOfBirth != nil {
			set("date_of_birth", *p.DateOfBirth)
		}
		if p.Gender != nil {
			set("gender", *p.Gender)
		}
		if p.BloodGroup != nil {
			set("blood_group", *p.BloodGroup)
		}
		if p.AddressLine1 != nil {
			set("address_line1", *p.AddressLine1)
		}
		if p.AddressLine2 != nil {
			set("address_line2", *p.AddressLine2)
		}
	}
	if p.HasPractitionerFields() {
		if r.role != RolePractitioner {
			return fmt.Errorf("%w: practice details apply to practitioners only", ErrValidation)
		}
		if p.Degree != nil {
			set("degree", *p.Degree)
		}
		if p.ExperienceYears != nil {
			set("experience_years", *p.ExperienceYears)
		}
		if p.Fee != nil {
			set("fee", *p.Fee)
		}
		if p.About != nil {
			set("about", *p.About)
		}
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM `+r.table+` WHERE id = $1`, id)
	if err != nil {
		if db.ForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s still referenced by appointments", ErrValidation, r.role)
		}
		return fmt.Errorf("delete %s: %w", r.role, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
