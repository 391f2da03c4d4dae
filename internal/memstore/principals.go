// Package memstore holds mutex-guarded in-memory implementations of the store contracts.
// It backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

type Principals struct {
	mu   sync.RWMutex
	role identity.Role
	rows map[uuid.UUID]identity.Account
}

var _ identity.PrincipalRepository = (*Principals)(nil)

func NewPrincipals(role identity.Role) *Principals {
	return &Principals{role: role, rows: make(map[uuid.UUID]identity.Account)}
}

// NewDirectory wires one in-memory repository per role.
func NewDirectory() *identity.Directory {
	return identity.NewDirectory(
		NewPrincipals(identity.RolePatient),
		NewPrincipals(identity.RolePractitioner),
		NewPrincipals(identity.RoleAdmin),
	)
}

func (s *Principals) Role() identity.Role { return s.role }

func clone(acct identity.Account) identity.Account {
	switch a := acct.(type) {
	case *identity.Patient:
		c := *a
		return &c
	case *identity.Practitioner:
		c := *a
		return &c
	case *identity.Administrator:
		c := *a
		c.Permissions = slices.Clone(a.Permissions)
		return &c
	}
	return acct
}

func (s *Principals) FindByID(_ context.Context, id uuid.UUID) (identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.rows[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return clone(acct), nil
}

func (s *Principals) FindByEmail(_ context.Context, email string) (identity.Account, error) {
	email = identity.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.rows {
		if acct.Base().Email == email {
			return clone(acct), nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *Principals) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.rows {
		b := acct.Base()
		if b.ResetTokenHash != nil && *b.ResetTokenHash == hash && b.ResetTokenExpiresAt != nil && b.ResetTokenExpiresAt.After(now) {
			return clone(acct), nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *Principals) matches(acct identity.Account, f identity.ListFilter) bool {
	b := acct.Base()
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(b.FirstName), q) &&
			!strings.Contains(strings.ToLower(b.LastName), q) &&
			!strings.Contains(b.Email, q) {
			return false
		}
	}
	if f.Active != nil && b.IsActive != *f.Active {
		return false
	}
	if p, ok := acct.(*identity.Practitioner); ok {
		if f.Verified != nil && p.IsVerified != *f.Verified {
			return false
		}
		if f.Available != nil && p.IsAvailable != *f.Available {
			return false
		}
		if f.Specialty != "" && !strings.EqualFold(p.Specialty, strings.TrimSpace(f.Specialty)) {
			return false
		}
	}
	return true
}

func (s *Principals) filtered(f identity.ListFilter) []identity.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []identity.Account
	for _, acct := range s.rows {
		if s.matches(acct, f) {
			out = append(out, clone(acct))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Base().CreatedAt.After(out[j].Base().CreatedAt)
	})
	return out
}

func (s *Principals) Find(_ context.Context, f identity.ListFilter, skip, limit int) ([]identity.Account, error) {
	return window(s.filtered(f), skip, limit), nil
}

func (s *Principals) Count(_ context.Context, f identity.ListFilter) (int, error) {
	return len(s.filtered(f)), nil
}

func (s *Principals) Insert(_ context.Context, acct identity.Account) error {
	if acct.Role() != s.role {
		return identity.ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := identity.NormalizeEmail(acct.Base().Email)
	for _, existing := range s.rows {
		if existing.Base().Email == email {
			return identity.ErrEmailTaken
		}
		if p, ok := acct.(*identity.Practitioner); ok {
			if q, ok := existing.(*identity.Practitioner); ok && q.LicenseNumber == p.LicenseNumber {
				return identity.ErrLicenseTaken
			}
		}
	}
	stored := clone(acct)
	stored.Base().Email = email
	s.rows[acct.Base().ID] = stored
	return nil
}

func (s *Principals) UpdateByID(_ context.Context, id uuid.UUID, patch identity.Patch) (identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.rows[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	next := clone(acct)
	b := next.Base()

	if patch.PasswordHash != nil {
		b.PasswordHash = *patch.PasswordHash
	}
	if patch.ResetToken != nil {
		hash, exp := patch.ResetToken.Hash, patch.ResetToken.ExpiresAt
		b.ResetTokenHash, b.ResetTokenExpiresAt = &hash, &exp
	} else if patch.ClearResetToken {
		b.ResetTokenHash, b.ResetTokenExpiresAt = nil, nil
	}
	if patch.IsActive != nil {
		b.IsActive = *patch.IsActive
	}
	if patch.IsAvailable != nil || patch.IsVerified != nil {
		p, ok := next.(*identity.Practitioner)
		if !ok {
			return nil, identity.ErrValidation
		}
		if patch.IsAvailable != nil {
			p.IsAvailable = *patch.IsAvailable
		}
		if patch.IsVerified != nil {
			p.IsVerified = *patch.IsVerified
		}
	}
	if patch.LastLoginAt != nil {
		a, ok := next.(*identity.Administrator)
		if !ok {
			return nil, identity.ErrValidation
		}
		at := *patch.LastLoginAt
		a.LastLoginAt = &at
	}
	if err := applyProfile(next, patch.Profile); err != nil {
		return nil, err
	}
	b.UpdatedAt = time.Now().UTC()

	s.rows[id] = next
	return clone(next), nil
}

func applyProfile(acct identity.Account, p identity.Profile) error {
	b := acct.Base()
	if p.FirstName != nil {
		b.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		b.LastName = *p.LastName
	}
	if p.Phone != nil {
		b.Phone = *p.Phone
	}
	if p.HasPatientFields() {
		pt, ok := acct.(*identity.Patient)
		if !ok {
			return identity.ErrValidation
		}
		if p.DateOfBirth != nil {
			dob := *p.DateOfBirth
			pt.DateOfBirth = &dob
		}
		if p.Gender != nil {
			pt.Gender = *p.Gender
		}
		if p.BloodGroup != nil {
			pt.BloodGroup = *p.BloodGroup
		}
		if p.AddressLine1 != nil {
			pt.AddressLine1 = *p.AddressLine1
		}
		if p.AddressLine2 != nil {
			pt.AddressLine2 = *p.AddressLine2
		}
	}
	if p.HasPractitionerFields() {
		pr, ok := acct.(*identity.Practitioner)
		if !ok {
			return identity.ErrValidation
		}
		if p.Degree != nil {
			pr.Degree = *p.Degree
		}
		if p.ExperienceYears != nil {
			pr.ExperienceYears = *p.ExperienceYears
		}
		if p.Fee != nil {
			pr.Fee = *p.Fee
		}
		if p.About != nil {
			pr.About = *p.About
		}
	}
	return nil
}

func (s *Principals) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return identity.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func window[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
