package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows Find and Count. Verified and Available only apply to practitioners.
type ListFilter struct {
	Search    string
	Active    *bool
	Verified  *bool
	Available *bool
	Specialty string
}

type ResetToken struct {
	Hash      string
	ExpiresAt time.Time
}

// Profile holds the self-service fields. Patient and practitioner fields only
// apply to their own collection.
type Profile struct {
	FirstName *string
	LastName  *string
	Phone     *string

	DateOfBirth  *time.Time
	Gender       *string
	BloodGroup   *string
	AddressLine1 *string
	AddressLine2 *string

	Degree          *string
	ExperienceYears *int
	Fee             *int64
	About           *string
}

func (p Profile) HasPatientFields() bool {
	return p.DateOfBirth != nil || p.Gender != nil || p.BloodGroup != nil || p.AddressLine1 != nil || p.AddressLine2 != nil
}

func (p Profile) HasPractitionerFields() bool {
	return p.Degree != nil || p.ExperienceYears != nil || p.Fee != nil || p.About != nil
}

func (p Profile) empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		!p.HasPatientFields() && !p.HasPractitionerFields()
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	PasswordHash    *string
	ResetToken      *ResetToken
	ClearResetToken bool
	IsActive        *bool
	IsAvailable     *bool
	IsVerified      *bool
	LastLoginAt     *time.Time
	Profile         Profile
}

func (p Patch) empty() bool {
	return p.PasswordHash == nil && p.ResetToken == nil && !p.ClearResetToken &&
		p.IsActive == nil && p.IsAvailable == nil && p.IsVerified == nil && p.LastLoginAt == nil &&
		p.Profile.empty()
}

// PrincipalRepository is the store contract for one principal collection.
// Implementations return ErrNotFound for unknown ids and ErrEmailTaken on duplicate emails.
type PrincipalRepository interface {
	Role() Role
	FindByID(ctx context.Context, id uuid.UUID) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (Account, error)
	Find(ctx context.Context, filter ListFilter, skip, limit int) ([]Account, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	Insert(ctx context.Context, acct Account) error
	UpdateByID(ctx context.Context, id uuid.UUID, patch Patch) (Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Directory selects the repository for a role.
type Directory struct {
	repos map[Role]PrincipalRepository
}

func NewDirectory(repos ...PrincipalRepository) *Directory {
	d := &Directory{repos: make(map[Role]PrincipalRepository, len(repos))}
	for _, r := range repos {
		d.repos[r.Role()] = r
	}
	return d
}

func (d *Directory) For(role Role) (PrincipalRepository, error) {
	r, ok := d.repos[role]
	if !ok {
		return nil, fmt.Errorf("%w: no repository for role %q", ErrValidation, role)
	}
	return r, nil
}

// Resolve loads a principal by (id, role).
func (d *Directory) Resolve(ctx context.Context, id uuid.UUID, role Role) (Account, error) {
	repo, err := d.For(role)
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (d *Directory) Practitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	acct, err := d.Resolve(ctx, id, RolePractitioner)
	if err != nil {
		return nil, err
	}
	p, ok := acct.(*Practitioner)
	if !ok {
		return nil, fmt.Errorf("practitioner repository returned %T", acct)
	}
	return p, nil
}

func (d *Directory) Patient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	acct, err := d.Resolve(ctx, id, RolePatient)
	if err != nil {
		return nil, err
	}
	p, ok := acct.(*Patient)
	if !ok {
		return nil, fmt.Errorf("patient repository returned %T", acct)
	}
	return p, nil
}
