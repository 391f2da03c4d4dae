package specialty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// Service reads are public; writes need the manage_settings permission.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "specialty").Logger(),
		now:    time.Now,
	}
}

type Input struct {
	Name         string
	Description  string
	DisplayOrder int
}

// Active lists the catalogue shown to visitors.
func (s *Service) Active(ctx context.Context) ([]Specialty, error) {
	out, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Specialty{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return s.repo.FindByID(ctx, id)
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	return name, nil
}

func validDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if len([]rune(desc)) > MaxDescriptionLength {
		return "", fmt.Errorf("%w: description must be at most %d characters", ErrValidation, MaxDescriptionLength)
	}
	return desc, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (*Specialty, error) {
	if err := auth.RequirePermission(actor, identity.PermManageSettings); err != nil {
		return nil, err
	}
	name, err := validName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validDescription(in.Description)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sp := &Specialty{
		ID:           uuid.New(),
		Name:         name,
		Description:  desc,
		IsActive:     true,
		DisplayOrder: in.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, sp); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("insert specialty: %w", err)
	}
	s.logger.Info().Str("specialty_id", sp.ID.String()).Str("actor_id", actor.ID.String()).Msg("specialty created")
	return sp, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, patch Patch) (*Specialty, error) {
	if err := auth.RequirePermission(actor, identity.PermManageSettings); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name, err := validName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Description != nil {
		desc, err := validDescription(*patch.Description)
		if err != nil {
			return nil, err
		}
		patch.Description = &desc
	}
	sp, err := s.repo.UpdateByID(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update specialty: %w", err)
	}
	return sp, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := auth.RequirePermission(actor, identity.PermManageSettings); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("specialty_id", id.String()).Str("actor_id", actor.ID.String()).Msg("specialty deleted")
	return nil
}
