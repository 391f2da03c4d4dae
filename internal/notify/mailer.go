package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// PrincipalLookup is satisfied by *identity.Directory.
type PrincipalLookup interface {
	Patient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	Practitioner(ctx context.Context, id uuid.UUID) (*identity.Practitioner, error)
}

// Mailer renders clinic emails and hands them to an EmailSender.
type Mailer struct {
	sender     EmailSender
	principals PrincipalLookup
	logger     zerolog.Logger
}

var (
	_ auth.ResetMailer     = (*Mailer)(nil)
	_ appointment.Notifier = (*Mailer)(nil)
)

func NewMailer(sender EmailSender, principals PrincipalLookup, logger zerolog.Logger) *Mailer {
	if sender == nil {
		sender = NewStubSender(logger)
	}
	return &Mailer{sender: sender, principals: principals, logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *Mailer) PasswordReset(ctx context.Context, to identity.Account, resetURL string) error {
	base := to.Base()
	text := fmt.Sprintf(`Hello %s,

We received a request to reset your password. Use the link below within the next few minutes:

%s

If you did not request this, you can ignore this email.`, base.FirstName, resetURL)

	return m.sender.Send(ctx, Message{
		To:      base.Email,
		ToName:  base.FullName(),
		Subject: "Reset your password",
		Text:    text,
		HTML:    fmt.Sprintf(`<p>Hello %s,</p><p>Reset your password: <a href="%s">%s</a></p>`, base.FirstName, resetURL, resetURL),
	})
}

func when(appt *appointment.Appointment) string {
	return fmt.Sprintf("%s at %s", appt.Date.Format("Monday, January 2, 2006"), appt.Time)
}

func (m *Mailer) AppointmentBooked(ctx context.Context, appt *appointment.Appointment, practitioner *identity.Practitioner) error {
	patient, err := m.principals.Patient(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", patient.FirstName)
	fmt.Fprintf(&b, "Your %s appointment with Dr. %s (%s) is booked for %s.\n",
		appt.Type, practitioner.FullName(), practitioner.Specialty, when(appt))
	fmt.Fprintf(&b, "Reason: %s\n", appt.Reason)
	b.WriteString("\nThe appointment is pending until the practitioner confirms it.")

	return m.sender.Send(ctx, Message{
		To:      patient.Email,
		ToName:  patient.FullName(),
		Subject: "Appointment booked",
		Text:    b.String(),
	})
}

func (m *Mailer) AppointmentReminder(ctx context.Context, appt *appointment.Appointment) error {
	patient, err := m.principals.Patient(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	with := "your practitioner"
	if p, err := m.principals.Practitioner(ctx, appt.PractitionerID); err == nil {
		with = "Dr. " + p.FullName()
	} else {
		m.logger.Debug().Err(err).Str("appointment_id", appt.ID.String()).Msg("reminder without practitioner name")
	}

	return m.sender.Send(ctx, Message{
		To:      patient.Email,
		ToName:  patient.FullName(),
		Subject: "Appointment reminder",
		Text: fmt.Sprintf("Hello %s,\n\nThis is a reminder of your appointment with %s on %s.",
			patient.FirstName, with, when(appt)),
	})
}
