package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

// Specialties enforces case-insensitive unique names like the Postgres index.
type Specialties struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]specialty.Specialty
}

var _ specialty.Repository = (*Specialties)(nil)

func NewSpecialties() *Specialties {
	return &Specialties{rows: make(map[uuid.UUID]specialty.Specialty)}
}

func (s *Specialties) List(_ context.Context, activeOnly bool) ([]specialty.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []specialty.Specialty
	for _, sp := range s.rows {
		if activeOnly && !sp.IsActive {
			continue
		}
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Specialties) FindByID(_ context.Context, id uuid.UUID) (*specialty.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.rows[id]
	if !ok {
		return nil, specialty.ErrNotFound
	}
	return &sp, nil
}

func (s *Specialties) nameTakenLocked(name string, except uuid.UUID) bool {
	for id, sp := range s.rows {
		if id != except && strings.EqualFold(sp.Name, name) {
			return true
		}
	}
	return false
}

func (s *Specialties) Insert(_ context.Context, sp *specialty.Specialty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(sp.Name, sp.ID) {
		return specialty.ErrNameTaken
	}
	s.rows[sp.ID] = *sp
	return nil
}

func (s *Specialties) UpdateByID(_ context.Context, id uuid.UUID, patch specialty.Patch) (*specialty.Specialty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.rows[id]
	if !ok {
		return nil, specialty.ErrNotFound
	}
	if patch.Name != nil {
		if s.nameTakenLocked(*patch.Name, id) {
			return nil, specialty.ErrNameTaken
		}
		sp.Name = *patch.Name
	}
	if patch.Description != nil {
		sp.Description = *patch.Description
	}
	if patch.IsActive != nil {
		sp.IsActive = *patch.IsActive
	}
	if patch.DisplayOrder != nil {
		sp.DisplayOrder = *patch.DisplayOrder
	}
	sp.UpdatedAt = time.Now().UTC()
	s.rows[id] = sp
	return &sp, nil
}

func (s *Specialties) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return specialty.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}
