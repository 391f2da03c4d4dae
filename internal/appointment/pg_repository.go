package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const appointmentColumns = `id, patient_id, practitioner_id, appointment_date, appointment_time, appointment_type,
	reason, symptoms, status, diagnosis, prescriptions, lab_tests, follow_up_date, notes,
	cancellation_reason, cancelled_by, payment_status, payment_amount, payment_method,
	reminder_sent_at, created_at, updated_at`

type PgRepository struct {
	q db.DBTX
}

var _ Repository = (*PgRepository)(nil)

func NewPgRepository(q db.DBTX) *PgRepository {
	return &PgRepository{q: q}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a                            Appointment
		typ, status, cancelledBy     string
		paymentStatus, paymentMethod string
		prescriptions, labTests      []byte
	)
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PractitionerID,
		&a.Date,
		&a.Time,
		&typ,
		&a.Reason,
		&a.Symptoms,
		&status,
		&a.Diagnosis,
		&prescriptions,
		&labTests,
		&a.FollowUpDate,
		&a.Notes,
		&a.CancellationReason,
		&cancelledBy,
		&paymentStatus,
		&a.PaymentAmount,
		&paymentMethod,
		&a.ReminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.Type = Type(typ)
	a.Status = Status(status)
	a.CancelledBy = identity.Role(cancelledBy)
	a.PaymentStatus = PaymentStatus(paymentStatus)
	a.PaymentMethod = PaymentMethod(paymentMethod)
	a.Date = Day(a.Date)
	if err := decodeJSON(prescriptions, &a.Prescriptions); err != nil {
		return nil, fmt.Errorf("decode prescriptions: %w", err)
	}
	if err := decodeJSON(labTests, &a.LabTests); err != nil {
		return nil, fmt.Errorf("decode lab tests: %w", err)
	}
	return &a, nil
}

func decodeJSON(raw []byte, into any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

func encodeJSON[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func where(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.PractitionerID != nil {
		add("practitioner_id = $%d", *f.PractitionerID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", statusStrings(f.Statuses))
	}
	if f.Date != nil {
		add("appointment_date = $%d", Day(*f.Date))
	}
	if f.DateFrom != nil {
		add("appointment_date >= $%d", Day(*f.DateFrom))
	}
	if f.DateTo != nil {
		add("appointment_date < $%d", Day(*f.DateTo))
	}
	if f.Time != "" {
		add("appointment_time = $%d", f.Time)
	}
	if len(f.Times) > 0 {
		add("appointment_time = ANY($%d)", f.Times)
	}
	if f.ReminderUnsent {
		conds = append(conds, "reminder_sent_at IS NULL")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(s Sort) string {
	switch s {
	case SortDateDesc:
		return "appointment_date DESC, appointment_time DESC"
	case SortDateTimeAsc:
		return "appointment_date ASC, appointment_time ASC"
	default:
		return "created_at DESC"
	}
}

// Interface methods

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) Find(ctx context.Context, filter Filter, sort Sort, skip, limit int) ([]Appointment, error) {
	cond, args := where(filter)
	args = append(args, skip, limit)
	sql := fmt.Sprintf(`SELECT %s FROM appointments%s ORDER BY %s OFFSET $%d LIMIT $%d`,
		appointmentColumns, cond, orderBy(sort), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Count(ctx context.Context, filter Filter) (int, error) {
	cond, args := where(filter)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM appointments`+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

func (r *PgRepository) CountByStatus(ctx context.Context, filter Filter) (map[Status]int, error) {
	cond, args := where(filter)
	rows, err := r.q.Query(ctx, `SELECT status, count(*) FROM appointments`+cond+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[Status(status)] = n
	}
	return out, rows.Err()
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) error {
	prescriptions, err := encodeJSON(a.Prescriptions)
	if err != nil {
		return fmt.Errorf("encode prescriptions: %w", err)
	}
	labTests, err := encodeJSON(a.LabTests)
	if err != nil {
		return fmt.Errorf("encode lab tests: %w", err)
	}
	symptoms := a.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, practitioner_id, appointment_date, appointment_time,
			appointment_type, reason, symptoms, status, notes, prescriptions, lab_tests,
			payment_status, payment_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, a.ID, a.PatientID, a.PractitionerID, Day(a.Date), a.Time,
		string(a.Type), a.Reason, symptoms, string(a.Status), a.Notes, prescriptions, labTests,
		string(a.PaymentStatus), a.PaymentAmount, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == "appointments_active_slot_uq" {
			return ErrSlotConflict
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateByID(ctx context.Context, id uuid.UUID, patch Patch) (*Appointment, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.CancellationReason != nil {
		set("cancellation_reason", *patch.CancellationReason)
	}
	if patch.CancelledBy != nil {
		set("cancelled_by", string(*patch.CancelledBy))
	}
	if c := patch.Consultation; c != nil {
		prescriptions, err := encodeJSON(c.Prescriptions)
		if err != nil {
			return nil, fmt.Errorf("encode prescriptions: %w", err)
		}
		labTests, err := encodeJSON(c.LabTests)
		if err != nil {
			return nil, fmt.Errorf("encode lab tests: %w", err)
		}
		set("diagnosis", c.Diagnosis)
		set("prescriptions", prescriptions)
		set("lab_tests", labTests)
		set("follow_up_date", c.FollowUpDate)
		set("notes", c.Notes)
	}
	if patch.PaymentStatus != nil {
		set("payment_status", string(*patch.PaymentStatus))
	}
	if patch.PaymentMethod != nil {
		set("payment_method", string(*patch.PaymentMethod))
	}
	if patch.ReminderSentAt != nil {
		set("reminder_sent_at", *patch.ReminderSentAt)
	}

	conds := []string{"id = $1"}
	if len(patch.AllowedFrom) > 0 {
		args = append(args, statusStrings(patch.AllowedFrom))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if patch.RequireReminderUnset {
		conds = append(conds, "reminder_sent_at IS NULL")
	}

	row := r.q.QueryRow(ctx, `
		UPDATE appointments SET `+strings.Join(sets, ", ")+`
		WHERE `+strings.Join(conds, " AND ")+`
		RETURNING `+appointmentColumns, args...)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, actor_id, actor_role, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, ev.EventType, ev.AppointmentID, ev.ActorID, ev.ActorRole, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
