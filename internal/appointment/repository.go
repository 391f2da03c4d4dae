package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

var (
	ErrNotFound                = errors.New("appointment not found")
	ErrPractitionerUnavailable = errors.New("practitioner is not accepting appointments")
	ErrSlotConflict            = errors.New("this time slot is already booked")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrValidation              = errors.New("validation failed")
	ErrNotOwner                = errors.New("not a participant of this appointment")
)

// Filter narrows Find and Count. Zero values mean "any".
type Filter struct {
	PatientID      *uuid.UUID
	PractitionerID *uuid.UUID
	Statuses       []Status
	Date           *time.Time
	DateFrom       *time.Time // inclusive
	DateTo         *time.Time // exclusive
	Time           string
	Times          []string
	ReminderUnsent bool
}

type Sort int

const (
	SortCreatedDesc Sort = iota
	SortDateDesc
	SortDateTimeAsc
)

// Patch is a partial update. AllowedFrom makes it conditional on the current status.
type Patch struct {
	AllowedFrom          []Status
	RequireReminderUnset bool

	Status             *Status
	CancellationReason *string
	CancelledBy        *identity.Role
	Consultation       *Consultation
	PaymentStatus      *PaymentStatus
	PaymentMethod      *PaymentMethod
	ReminderSentAt     *time.Time
}

// Repository is the appointment store contract.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Find(ctx context.Context, filter Filter, sort Sort, skip, limit int) ([]Appointment, error)
	Count(ctx context.Context, filter Filter) (int, error)
	CountByStatus(ctx context.Context, filter Filter) (map[Status]int, error)

	// Insert fails with ErrSlotConflict when the slot already holds an active appointment.
	Insert(ctx context.Context, appt *Appointment) error

	// UpdateByID returns (nil, nil) when no row matched the id and the patch conditions.
	UpdateByID(ctx context.Context, id uuid.UUID, patch Patch) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
