package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var tracer = otel.Tracer("clinic.internal.appointment")

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentStatus    = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventPaymentRecorded      = "APPOINTMENT_PAYMENT_RECORDED"
	EventReminderSent         = "APPOINTMENT_REMINDER_SENT"
)

const (
	maxReasonLen    = 500
	maxClinicalText = 1000
)

// Notifier delivers best-effort appointment emails.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt *Appointment, practitioner *identity.Practitioner) error
	AppointmentReminder(ctx context.Context, appt *Appointment) error
}

// PrincipalCounter feeds the admin dashboard. *identity.Service implements it.
type PrincipalCounter interface {
	CountActive(ctx context.Context, role identity.Role) (int, error)
}

type Service struct {
	repo     Repository
	resolver *ConflictResolver
	locker   redisclient.Locker
	notifier Notifier
	counter  PrincipalCounter
	slots    SlotVocabulary
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLocker(l redisclient.Locker) Option { return func(s *Service) { s.locker = l } }
func WithNotifier(n Notifier) Option         { return func(s *Service) { s.notifier = n } }
func WithPrincipalCounter(c PrincipalCounter) Option {
	return func(s *Service) { s.counter = c }
}
func WithSlots(v SlotVocabulary) Option     { return func(s *Service) { s.slots = v } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l zerolog.Logger) Option    { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(repo Repository, practitioners PractitionerLookup, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		resolver: NewConflictResolver(repo, practitioners),
		locker:   redisclient.NoopLocker{},
		slots:    DefaultSlots(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "appointment").Logger()
	return s
}

func (s *Service) Slots() SlotVocabulary { return s.slots }

// FreeSlots lists the open labels for a practitioner on a YYYY-MM-DD day.
func (s *Service) FreeSlots(ctx context.Context, practitionerID uuid.UUID, date string) ([]string, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.resolver.FreeSlots(ctx, practitionerID, day, s.slots)
}

type CreateInput struct {
	PractitionerID uuid.UUID
	Date           string
	Time           string
	Type           Type
	Reason         string
	Symptoms       []string
	Notes          string
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func (s *Service) validateCreate(in CreateInput) (time.Time, Type, []string, error) {
	if in.PractitionerID == uuid.Nil {
		return time.Time{}, "", nil, validationf("practitioner is required")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return time.Time{}, "", nil, err
	}
	if !s.slots.Contains(in.Time) {
		return time.Time{}, "", nil, validationf("time %q is not a bookable slot", in.Time)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" || len([]rune(reason)) > maxReasonLen {
		return time.Time{}, "", nil, validationf("reason is required and must be at most %d characters", maxReasonLen)
	}
	if len([]rune(in.Notes)) > maxClinicalText {
		return time.Time{}, "", nil, validationf("notes must be at most %d characters", maxClinicalText)
	}
	typ := in.Type
	if typ == "" {
		typ = TypeInPerson
	}
	if !typ.Valid() {
		return time.Time{}, "", nil, validationf("unknown appointment type %q", in.Type)
	}
	var symptoms []string
	for _, sym := range in.Symptoms {
		if sym = strings.TrimSpace(sym); sym != "" {
			symptoms = append(symptoms, sym)
		}
	}
	return date, typ, symptoms, nil
}

// Create books a slot for the calling patient.
// The slot lock serialises bookings of one slot across instances; the store's unique index
// rejects whatever slips past it.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.create", trace.WithAttributes(
		attribute.String("practitioner_id", in.PractitionerID.String()),
		attribute.String("date", in.Date),
		attribute.String("time", in.Time),
	))
	defer span.End()

	if err := auth.RequireRole(actor, identity.RolePatient); err != nil {
		return nil, err
	}
	date, typ, symptoms, err := s.validateCreate(in)
	if err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}

	var (
		created      *Appointment
		practitioner *identity.Practitioner
	)
	key := redisclient.SlotKey(in.PractitionerID, date.Format(DateLayout), in.Time)
	err = s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		p, err := s.resolver.CheckBookable(lockCtx, in.PractitionerID, date, in.Time)
		if err != nil {
			return err
		}
		practitioner = p

		now := s.now().UTC()
		appt := &Appointment{
			ID:             uuid.New(),
			PatientID:      actor.ID,
			PractitionerID: in.PractitionerID,
			Date:           date,
			Time:           in.Time,
			Type:           typ,
			Reason:         strings.TrimSpace(in.Reason),
			Symptoms:       symptoms,
			Notes:          strings.TrimSpace(in.Notes),
			Status:         StatusPending,
			PaymentStatus:  PaymentPending,
			PaymentAmount:  p.Fee,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Insert(lockCtx, appt); err != nil {
			if errors.Is(err, ErrSlotConflict) {
				return err
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotConflict
		}
		switch {
		case errors.Is(err, ErrSlotConflict):
			s.metrics.ObserveBooking("conflict")
		case errors.Is(err, ErrPractitionerUnavailable):
			s.metrics.ObserveBooking("unavailable")
		default:
			s.metrics.ObserveBooking("error")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	s.logEvent(ctx, actor, created.ID, EventAppointmentCreated, map[string]any{
		"practitioner_id": created.PractitionerID.String(),
		"date":            created.Date.Format(DateLayout),
		"time":            created.Time,
	})
	if s.notifier != nil {
		if err := s.notifier.AppointmentBooked(ctx, created, practitioner); err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", created.ID.String()).Msg("booking email failed")
		}
	}
	return created, nil
}

// load fetches an appointment and applies the ownership rule for non-admins.
func (s *Service) load(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !isParticipant(actor, appt) && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}
	return appt, nil
}

func isParticipant(actor auth.Actor, appt *Appointment) bool {
	switch actor.Role {
	case identity.RolePatient:
		return appt.PatientID == actor.ID
	case identity.RolePractitioner:
		return appt.PractitionerID == actor.ID
	}
	return false
}

// apply runs a conditional update and resolves a nil result into NotFound or InvalidTransition.
func (s *Service) apply(ctx context.Context, id uuid.UUID, patch Patch) (*Appointment, error) {
	updated, err := s.repo.UpdateByID(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	if updated != nil {
		return updated, nil
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reload appointment: %w", err)
	}
	return nil, ErrInvalidTransition
}

// UpdateStatus moves an appointment along the lifecycle on behalf of its practitioner or an admin.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, to Status) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.update_status", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("to", string(to)),
	))
	defer span.End()

	if err := auth.RequireRole(actor, identity.RolePractitioner, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, validationf("unknown status %q", to)
	}
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	patch := Patch{AllowedFrom: []Status{appt.Status}, Status: &to}
	if to == StatusCancelled {
		role := actor.Role
		patch.CancelledBy = &role
	}
	updated, err := s.apply(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(appt.Status), string(to))
	s.logEvent(ctx, actor, id, EventAppointmentStatus, map[string]any{"from": appt.Status, "to": to})
	return updated, nil
}

// Cancel terminalises a pending or confirmed appointment, recording who cancelled it.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel", trace.WithAttributes(attribute.String("appointment_id", id.String())))
	defer span.End()

	if err := auth.RequireRole(actor, identity.RolePatient, identity.RolePractitioner, identity.RoleAdmin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > maxReasonLen {
		return nil, validationf("cancellation reason must be at most %d characters", maxReasonLen)
	}
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Active() {
		return nil, ErrInvalidTransition
	}

	cancelled := StatusCancelled
	role := actor.Role
	updated, err := s.apply(ctx, id, Patch{
		AllowedFrom:        ActiveStatuses,
		Status:             &cancelled,
		CancellationReason: &reason,
		CancelledBy:        &role,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(appt.Status), string(StatusCancelled))
	s.logEvent(ctx, actor, id, EventAppointmentCancelled, map[string]any{"from": appt.Status, "reason": reason})
	return updated, nil
}

type ConsultationInput struct {
	Diagnosis     string
	Prescriptions []Prescription
	LabTests      []LabTest
	FollowUpDate  string
	Notes         string
}

func (in ConsultationInput) build() (*Consultation, error) {
	c := &Consultation{
		Diagnosis: strings.TrimSpace(in.Diagnosis),
		Notes:     strings.TrimSpace(in.Notes),
	}
	if len([]rune(c.Diagnosis)) > maxClinicalText || len([]rune(c.Notes)) > maxClinicalText {
		return nil, validationf("diagnosis and notes must be at most %d characters", maxClinicalText)
	}
	for i, p := range in.Prescriptions {
		if strings.TrimSpace(p.Medication) == "" {
			return nil, validationf("prescription %d: medication is required", i+1)
		}
		c.Prescriptions = append(c.Prescriptions, p)
	}
	for i, lt := range in.LabTests {
		if strings.TrimSpace(lt.Name) == "" {
			return nil, validationf("lab test %d: name is required", i+1)
		}
		if lt.Status == "" {
			lt.Status = "pending"
		}
		if lt.Status != "pending" && lt.Status != "completed" {
			return nil, validationf("lab test %d: status must be pending or completed", i+1)
		}
		c.LabTests = append(c.LabTests, lt)
	}
	if in.FollowUpDate != "" {
		d, err := ParseDate(in.FollowUpDate)
		if err != nil {
			return nil, err
		}
		c.FollowUpDate = &d
	}
	return c, nil
}

// RecordConsultation writes the clinical payload and completes the appointment in one update.
// Only the practitioner of record may call it.
func (s *Service) RecordConsultation(ctx context.Context, actor auth.Actor, id uuid.UUID, in ConsultationInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.record_consultation", trace.WithAttributes(attribute.String("appointment_id", id.String())))
	defer span.End()

	if err := auth.RequireRole(actor, identity.RolePractitioner); err != nil {
		return nil, err
	}
	consultation, err := in.build()
	if err != nil {
		return nil, err
	}
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Active() {
		return nil, ErrInvalidTransition
	}

	completed := StatusCompleted
	updated, err := s.apply(ctx, id, Patch{
		AllowedFrom:  ActiveStatuses,
		Status:       &completed,
		Consultation: consultation,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(appt.Status), string(StatusCompleted))
	s.logEvent(ctx, actor, id, EventAppointmentCompleted, map[string]any{
		"prescriptions": len(consultation.Prescriptions),
		"lab_tests":     len(consultation.LabTests),
	})
	return updated, nil
}

type PaymentInput struct {
	Status PaymentStatus
	Method PaymentMethod
}

// RecordPayment updates payment fields regardless of appointment status. Administrators only.
func (s *Service) RecordPayment(ctx context.Context, actor auth.Actor, id uuid.UUID, in PaymentInput) (*Appointment, error) {
	if err := auth.RequireRole(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, validationf("unknown payment status %q", in.Status)
	}
	if in.Method != "" && !in.Method.Valid() {
		return nil, validationf("unknown payment method %q", in.Method)
	}

	patch := Patch{PaymentStatus: &in.Status}
	if in.Method != "" {
		patch.PaymentMethod = &in.Method
	}
	updated, err := s.apply(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, id, EventPaymentRecorded, map[string]any{"status": in.Status, "method": in.Method})
	return updated, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	return s.load(ctx, actor, id)
}

type ListFilter struct {
	Status         string
	Date           string
	PatientID      *uuid.UUID
	PractitionerID *uuid.UUID
}

func (f ListFilter) apply(into *Filter) error {
	if f.Status != "" {
		st, err := ParseStatus(f.Status)
		if err != nil {
			return err
		}
		into.Statuses = []Status{st}
	}
	if f.Date != "" {
		d, err := ParseDate(f.Date)
		if err != nil {
			return err
		}
		into.Date = &d
	}
	return nil
}

func (s *Service) page(ctx context.Context, filter Filter, order Sort, page pagination.Page) (pagination.Result[Appointment], error) {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return pagination.Result[Appointment]{}, fmt.Errorf("count appointments: %w", err)
	}
	items, err := s.repo.Find(ctx, filter, order, page.Skip(), page.Limit)
	if err != nil {
		return pagination.Result[Appointment]{}, fmt.Errorf("list appointments: %w", err)
	}
	return pagination.NewResult(items, total, page), nil
}

// ListForActor lists the caller's own appointments: newest date first for patients,
// chronological for practitioners.
func (s *Service) ListForActor(ctx context.Context, actor auth.Actor, lf ListFilter, page pagination.Page) (pagination.Result[Appointment], error) {
	var (
		filter Filter
		order  Sort
	)
	switch actor.Role {
	case identity.RolePatient:
		filter.PatientID = &actor.ID
		order = SortDateDesc
	case identity.RolePractitioner:
		filter.PractitionerID = &actor.ID
		order = SortDateTimeAsc
	default:
		return pagination.Result[Appointment]{}, auth.ErrForbiddenRole
	}
	if err := lf.apply(&filter); err != nil {
		return pagination.Result[Appointment]{}, err
	}
	return s.page(ctx, filter, order, page)
}

// ListAll lists every appointment, newest first. Requires manage_appointments.
func (s *Service) ListAll(ctx context.Context, actor auth.Actor, lf ListFilter, page pagination.Page) (pagination.Result[Appointment], error) {
	if err := auth.RequirePermission(actor, identity.PermManageAppointments); err != nil {
		return pagination.Result[Appointment]{}, err
	}
	filter := Filter{PatientID: lf.PatientID, PractitionerID: lf.PractitionerID}
	if err := lf.apply(&filter); err != nil {
		return pagination.Result[Appointment]{}, err
	}
	return s.page(ctx, filter, SortCreatedDesc, page)
}

type PractitionerStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"no_show"`
	Today     int `json:"today"`
}

func (s *Service) PractitionerStats(ctx context.Context, actor auth.Actor) (PractitionerStats, error) {
	if err := auth.RequireRole(actor, identity.RolePractitioner); err != nil {
		return PractitionerStats{}, err
	}
	byStatus, err := s.repo.CountByStatus(ctx, Filter{PractitionerID: &actor.ID})
	if err != nil {
		return PractitionerStats{}, fmt.Errorf("count by status: %w", err)
	}
	today := Day(s.now())
	todayCount, err := s.repo.Count(ctx, Filter{PractitionerID: &actor.ID, Date: &today})
	if err != nil {
		return PractitionerStats{}, fmt.Errorf("count today: %w", err)
	}

	st := PractitionerStats{
		Pending:   byStatus[StatusPending],
		Confirmed: byStatus[StatusConfirmed],
		Completed: byStatus[StatusCompleted],
		Cancelled: byStatus[StatusCancelled],
		NoShow:    byStatus[StatusNoShow],
		Today:     todayCount,
	}
	for _, n := range byStatus {
		st.Total += n
	}
	return st, nil
}

type DashboardStats struct {
	ActivePatients      int            `json:"active_patients"`
	ActivePractitioners int            `json:"active_practitioners"`
	TotalAppointments   int            `json:"total_appointments"`
	PendingAppointments int            `json:"pending_appointments"`
	CompletedToday      int            `json:"completed_today"`
	ByStatus            map[Status]int `json:"by_status"`
	Recent              []Appointment  `json:"-"`
}

func (s *Service) DashboardStats(ctx context.Context, actor auth.Actor) (DashboardStats, error) {
	if err := auth.RequireRole(actor, identity.RoleAdmin); err != nil {
		return DashboardStats{}, err
	}
	var st DashboardStats
	if s.counter != nil {
		var err error
		if st.ActivePatients, err = s.counter.CountActive(ctx, identity.RolePatient); err != nil {
			return DashboardStats{}, fmt.Errorf("count patients: %w", err)
		}
		if st.ActivePractitioners, err = s.counter.CountActive(ctx, identity.RolePractitioner); err != nil {
			return DashboardStats{}, fmt.Errorf("count practitioners: %w", err)
		}
	}

	byStatus, err := s.repo.CountByStatus(ctx, Filter{})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count by status: %w", err)
	}
	st.ByStatus = byStatus
	for _, n := range byStatus {
		st.TotalAppointments += n
	}
	st.PendingAppointments = byStatus[StatusPending]

	today := Day(s.now())
	if st.CompletedToday, err = s.repo.Count(ctx, Filter{Date: &today, Statuses: []Status{StatusCompleted}}); err != nil {
		return DashboardStats{}, fmt.Errorf("count completed today: %w", err)
	}
	if st.Recent, err = s.repo.Find(ctx, Filter{}, SortCreatedDesc, 0, 5); err != nil {
		return DashboardStats{}, fmt.Errorf("recent appointments: %w", err)
	}
	return st, nil
}

// SendReminders emails patients whose confirmed appointment starts within lead.
// Each appointment is stamped before the email goes out, so a reminder is sent at most once.
func (s *Service) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "appointment.send_reminders")
	defer span.End()

	now := s.now().UTC()
	horizon := now.Add(lead)
	from, to := Day(now), Day(horizon).AddDate(0, 0, 1)

	candidates, err := s.repo.Find(ctx, Filter{
		Statuses:       []Status{StatusConfirmed},
		DateFrom:       &from,
		DateTo:         &to,
		ReminderUnsent: true,
	}, SortDateTimeAsc, 0, 500)
	if err != nil {
		return 0, fmt.Errorf("find reminder candidates: %w", err)
	}

	sent := 0
	for i := range candidates {
		appt := &candidates[i]
		start := appt.StartsAt()
		if !start.After(now) || start.After(horizon) {
			continue
		}
		updated, err := s.repo.UpdateByID(ctx, appt.ID, Patch{
			AllowedFrom:          []Status{StatusConfirmed},
			RequireReminderUnset: true,
			ReminderSentAt:       &now,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to stamp reminder")
			continue
		}
		if updated == nil {
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.AppointmentReminder(ctx, updated); err != nil {
				s.logger.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("reminder email failed")
				continue
			}
		}
		sent++
		s.logEvent(ctx, auth.Actor{}, appt.ID, EventReminderSent, map[string]any{"starts_at": start})
	}
	s.metrics.AddRemindersSent(sent)
	return sent, nil
}

func (s *Service) logEvent(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		ActorRole:     string(actor.Role),
		Payload:       data,
		CreatedAt:     s.now().UTC(),
	}
	if actor.ID != uuid.Nil {
		actorID := actor.ID
		ev.ActorID = &actorID
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Str("appointment_id", appointmentID.String()).Msg("failed to insert event log")
	}
}
