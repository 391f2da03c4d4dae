package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

// Appointments enforces the single active booking per slot under its mutex,
// mirroring the partial unique index of the Postgres schema.
type Appointments struct {
	mu     sync.RWMutex
	rows   map[uuid.UUID]*appointment.Appointment
	events []appointment.EventLog
}

var _ appointment.Repository = (*Appointments)(nil)

func NewAppointments() *Appointments {
	return &Appointments{rows: make(map[uuid.UUID]*appointment.Appointment)}
}

func copyAppointment(a *appointment.Appointment) *appointment.Appointment {
	c := *a
	c.Symptoms = slices.Clone(a.Symptoms)
	c.Prescriptions = slices.Clone(a.Prescriptions)
	c.LabTests = slices.Clone(a.LabTests)
	return &c
}

func (s *Appointments) FindByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	return copyAppointment(a), nil
}

func matches(a *appointment.Appointment, f appointment.Filter) bool {
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.PractitionerID != nil && a.PractitionerID != *f.PractitionerID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	if f.Date != nil && !a.Date.Equal(appointment.Day(*f.Date)) {
		return false
	}
	if f.DateFrom != nil && a.Date.Before(appointment.Day(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && !a.Date.Before(appointment.Day(*f.DateTo)) {
		return false
	}
	if f.Time != "" && a.Time != f.Time {
		return false
	}
	if len(f.Times) > 0 && !slices.Contains(f.Times, a.Time) {
		return false
	}
	if f.ReminderUnsent && a.ReminderSentAt != nil {
		return false
	}
	return true
}

func (s *Appointments) filtered(f appointment.Filter, order appointment.Sort) []appointment.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []appointment.Appointment
	for _, a := range s.rows {
		if matches(a, f) {
			out = append(out, *copyAppointment(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch order {
		case appointment.SortDateDesc:
			if !out[i].Date.Equal(out[j].Date) {
				return out[i].Date.After(out[j].Date)
			}
			return out[i].Time > out[j].Time
		case appointment.SortDateTimeAsc:
			if !out[i].Date.Equal(out[j].Date) {
				return out[i].Date.Before(out[j].Date)
			}
			return out[i].Time < out[j].Time
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out
}

func (s *Appointments) Find(_ context.Context, f appointment.Filter, order appointment.Sort, skip, limit int) ([]appointment.Appointment, error) {
	return window(s.filtered(f, order), skip, limit), nil
}

func (s *Appointments) Count(_ context.Context, f appointment.Filter) (int, error) {
	return len(s.filtered(f, appointment.SortCreatedDesc)), nil
}

func (s *Appointments) CountByStatus(_ context.Context, f appointment.Filter) (map[appointment.Status]int, error) {
	out := make(map[appointment.Status]int)
	for _, a := range s.filtered(f, appointment.SortCreatedDesc) {
		out[a.Status]++
	}
	return out, nil
}

func (s *Appointments) slotTakenLocked(a *appointment.Appointment, except uuid.UUID) bool {
	for id, other := range s.rows {
		if id == except || !other.Status.Active() {
			continue
		}
		if other.PractitionerID == a.PractitionerID && other.Date.Equal(a.Date) && other.Time == a.Time {
			return true
		}
	}
	return false
}

func (s *Appointments) Insert(_ context.Context, a *appointment.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Status.Active() && s.slotTakenLocked(a, a.ID) {
		return appointment.ErrSlotConflict
	}
	s.rows[a.ID] = copyAppointment(a)
	return nil
}

func (s *Appointments) UpdateByID(_ context.Context, id uuid.UUID, p appointment.Patch) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	if len(p.AllowedFrom) > 0 && !slices.Contains(p.AllowedFrom, cur.Status) {
		return nil, nil
	}
	if p.RequireReminderUnset && cur.ReminderSentAt != nil {
		return nil, nil
	}

	next := copyAppointment(cur)
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.CancellationReason != nil {
		next.CancellationReason = *p.CancellationReason
	}
	if p.CancelledBy != nil {
		next.CancelledBy = *p.CancelledBy
	}
	if c := p.Consultation; c != nil {
		next.Diagnosis = c.Diagnosis
		next.Prescriptions = slices.Clone(c.Prescriptions)
		next.LabTests = slices.Clone(c.LabTests)
		next.FollowUpDate = c.FollowUpDate
		next.Notes = c.Notes
	}
	if p.PaymentStatus != nil {
		next.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentMethod != nil {
		next.PaymentMethod = *p.PaymentMethod
	}
	if p.ReminderSentAt != nil {
		at := *p.ReminderSentAt
		next.ReminderSentAt = &at
	}
	if next.Status.Active() && !cur.Status.Active() && s.slotTakenLocked(next, id) {
		return nil, appointment.ErrSlotConflict
	}
	next.UpdatedAt = time.Now().UTC()

	s.rows[id] = next
	return copyAppointment(next), nil
}

func (s *Appointments) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = int64(len(s.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	return nil
}

// Events returns the recorded event log, oldest first.
func (s *Appointments) Events() []appointment.EventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}
