package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// PractitionerLookup is satisfied by *identity.Directory.
type PractitionerLookup interface {
	Practitioner(ctx context.Context, id uuid.UUID) (*identity.Practitioner, error)
}

// ConflictResolver answers whether a (practitioner, date, time) triple can take a new booking.
// The partial unique index on appointments remains the final arbiter.
type ConflictResolver struct {
	repo          Repository
	practitioners PractitionerLookup
}

func NewConflictResolver(repo Repository, practitioners PractitionerLookup) *ConflictResolver {
	return &ConflictResolver{repo: repo, practitioners: practitioners}
}

// HasConflict is true iff a pending or confirmed appointment holds the exact triple.
func (r *ConflictResolver) HasConflict(ctx context.Context, practitionerID uuid.UUID, date time.Time, timeLabel string) (bool, error) {
	day := Day(date)
	n, err := r.repo.Count(ctx, Filter{
		PractitionerID: &practitionerID,
		Date:           &day,
		Time:           timeLabel,
		Statuses:       ActiveStatuses,
	})
	if err != nil {
		return false, fmt.Errorf("count slot bookings: %w", err)
	}
	return n > 0, nil
}

// CheckBookable loads the practitioner, requires it to be active, verified and available,
// then checks the slot.
func (r *ConflictResolver) CheckBookable(ctx context.Context, practitionerID uuid.UUID, date time.Time, timeLabel string) (*identity.Practitioner, error) {
	p, err := r.practitioners.Practitioner(ctx, practitionerID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrPractitionerUnavailable
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if !p.Bookable() {
		return nil, ErrPractitionerUnavailable
	}

	taken, err := r.HasConflict(ctx, practitionerID, date, timeLabel)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotConflict
	}
	return p, nil
}

// FreeSlots returns the labels of vocab not held by an active appointment on that day.
func (r *ConflictResolver) FreeSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time, vocab SlotVocabulary) ([]string, error) {
	p, err := r.practitioners.Practitioner(ctx, practitionerID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrPractitionerUnavailable
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if !p.Bookable() {
		return nil, ErrPractitionerUnavailable
	}

	labels := vocab.Labels()
	day := Day(date)
	booked, err := r.repo.Find(ctx, Filter{
		PractitionerID: &practitionerID,
		Date:           &day,
		Statuses:       ActiveStatuses,
		Times:          labels,
	}, SortDateTimeAsc, 0, len(labels))
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	taken := make(map[string]struct{}, len(booked))
	for _, a := range booked {
		taken[a.Time] = struct{}{}
	}

	free := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := taken[l]; !ok {
			free = append(free, l)
		}
	}
	return free, nil
}
