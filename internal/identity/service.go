package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/pagination"
)

// Service carries the administrative operations over principals. Credential
// commands (register, login, password changes) live in the auth package.
type Service struct {
	dir    *Directory
	logger zerolog.Logger
}

func NewService(dir *Directory, logger zerolog.Logger) *Service {
	return &Service{dir: dir, logger: logger.With().Str("component", "identity").Logger()}
}

func (s *Service) Directory() *Directory { return s.dir }

func (s *Service) ListPatients(ctx context.Context, filter ListFilter, page pagination.Page) (pagination.Result[*Patient], error) {
	accts, total, err := s.list(ctx, RolePatient, filter, page)
	if err != nil {
		return pagination.Result[*Patient]{}, err
	}
	out := make([]*Patient, 0, len(accts))
	for _, a := range accts {
		if p, ok := a.(*Patient); ok {
			out = append(out, p)
		}
	}
	return pagination.NewResult(out, total, page), nil
}

func (s *Service) ListPractitioners(ctx context.Context, filter ListFilter, page pagination.Page) (pagination.Result[*Practitioner], error) {
	accts, total, err := s.list(ctx, RolePractitioner, filter, page)
	if err != nil {
		return pagination.Result[*Practitioner]{}, err
	}
	out := make([]*Practitioner, 0, len(accts))
	for _, a := range accts {
		if p, ok := a.(*Practitioner); ok {
			out = append(out, p)
		}
	}
	return pagination.NewResult(out, total, page), nil
}

func (s *Service) list(ctx context.Context, role Role, filter ListFilter, page pagination.Page) ([]Account, int, error) {
	repo, err := s.dir.For(role)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", role, err)
	}
	accts, err := repo.Find(ctx, filter, page.Skip(), page.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", role, err)
	}
	return accts, total, nil
}

// CountActive is used by the admin dashboard.
func (s *Service) CountActive(ctx context.Context, role Role) (int, error) {
	repo, err := s.dir.For(role)
	if err != nil {
		return 0, err
	}
	active := true
	return repo.Count(ctx, ListFilter{Active: &active})
}

func managedRole(role Role) error {
	if role != RolePatient && role != RolePractitioner {
		return fmt.Errorf("%w: only patients and practitioners can be managed here", ErrValidation)
	}
	return nil
}

// Deactivate soft-deletes a principal. Outstanding tokens stop working on the next request.
func (s *Service) Deactivate(ctx context.Context, role Role, id uuid.UUID) (Account, error) {
	if err := managedRole(role); err != nil {
		return nil, err
	}
	repo, err := s.dir.For(role)
	if err != nil {
		return nil, err
	}
	inactive := false
	acct, err := repo.UpdateByID(ctx, id, Patch{IsActive: &inactive})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("deactivate %s: %w", role, err)
	}
	s.logger.Info().Str("role", string(role)).Str("principal_id", id.String()).Msg("principal deactivated")
	return acct, nil
}

func (s *Service) Delete(ctx context.Context, role Role, id uuid.UUID) error {
	if err := managedRole(role); err != nil {
		return err
	}
	repo, err := s.dir.For(role)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("role", string(role)).Str("principal_id", id.String()).Msg("principal deleted")
	return nil
}

// RelatedLimit caps RelatedPractitioners.
const RelatedLimit = 4

// PublicPractitioner returns a practitioner shown in the public directory.
// Deactivated or unverified practitioners are reported as not found.
func (s *Service) PublicPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	p, err := s.dir.Practitioner(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive || !p.IsVerified {
		return nil, ErrNotFound
	}
	return p, nil
}

// RelatedPractitioners lists other listed practitioners sharing the specialty of id.
func (s *Service) RelatedPractitioners(ctx context.Context, id uuid.UUID) ([]*Practitioner, error) {
	p, err := s.PublicPractitioner(ctx, id)
	if err != nil {
		return nil, err
	}
	yes := true
	page, err := s.ListPractitioners(ctx, ListFilter{Specialty: p.Specialty, Active: &yes, Verified: &yes},
		pagination.New(1, RelatedLimit+1))
	if err != nil {
		return nil, err
	}
	out := make([]*Practitioner, 0, RelatedLimit)
	for _, q := range page.Data {
		if q.ID != id && len(out) < RelatedLimit {
			out = append(out, q)
		}
	}
	return out, nil
}

// UpdateProfile applies a self-service edit. Empty names, unknown genders and
// negative fees or experience are rejected; strings are trimmed.
func (s *Service) UpdateProfile(ctx context.Context, role Role, id uuid.UUID, in Profile) (Account, error) {
	if err := managedRole(role); err != nil {
		return nil, err
	}
	p, err := normalizeProfile(in)
	if err != nil {
		return nil, err
	}
	if role == RolePatient && p.HasPractitionerFields() {
		return nil, fmt.Errorf("%w: practice details apply to practitioners only", ErrValidation)
	}
	if role == RolePractitioner && p.HasPatientFields() {
		return nil, fmt.Errorf("%w: personal details apply to patients only", ErrValidation)
	}
	repo, err := s.dir.For(role)
	if err != nil {
		return nil, err
	}
	acct, err := repo.UpdateByID(ctx, id, Patch{Profile: p})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("update %s profile: %w", role, err)
	}
	return acct, nil
}

func normalizeProfile(p Profile) (Profile, error) {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.FirstName, p.LastName, p.Phone = trim(p.FirstName), trim(p.LastName), trim(p.Phone)
	p.BloodGroup, p.AddressLine1, p.AddressLine2 = trim(p.BloodGroup), trim(p.AddressLine1), trim(p.AddressLine2)
	p.Degree, p.About = trim(p.Degree), trim(p.About)

	if (p.FirstName != nil && *p.FirstName == "") || (p.LastName != nil && *p.LastName == "") {
		return Profile{}, fmt.Errorf("%w: first and last name must not be empty", ErrValidation)
	}
	if p.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*p.Gender))
		if g != "" && g != "male" && g != "female" && g != "other" {
			return Profile{}, fmt.Errorf("%w: gender must be male, female or other", ErrValidation)
		}
		p.Gender = &g
	}
	if (p.Fee != nil && *p.Fee < 0) || (p.ExperienceYears != nil && *p.ExperienceYears < 0) {
		return Profile{}, fmt.Errorf("%w: fee and experience must not be negative", ErrValidation)
	}
	return p, nil
}

func (s *Service) VerifyPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return s.patchPractitioner(ctx, id, func(*Practitioner) Patch {
		verified := true
		return Patch{IsVerified: &verified}
	})
}

// SetAvailability sets the flag, or flips it when available is nil.
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, available *bool) (*Practitioner, error) {
	return s.patchPractitioner(ctx, id, func(current *Practitioner) Patch {
		next := !current.IsAvailable
		if available != nil {
			next = *available
		}
		return Patch{IsAvailable: &next}
	})
}

func (s *Service) patchPractitioner(ctx context.Context, id uuid.UUID, build func(*Practitioner) Patch) (*Practitioner, error) {
	current, err := s.dir.Practitioner(ctx, id)
	if err != nil {
		return nil, err
	}
	repo, err := s.dir.For(RolePractitioner)
	if err != nil {
		return nil, err
	}
	acct, err := repo.UpdateByID(ctx, id, build(current))
	if err != nil {
		return nil, fmt.Errorf("update practitioner: %w", err)
	}
	p, ok := acct.(*Practitioner)
	if !ok {
		return nil, fmt.Errorf("practitioner repository returned %T", acct)
	}
	return p, nil
}
