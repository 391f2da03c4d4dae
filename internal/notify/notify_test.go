package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type stubPrincipals struct {
	patient      *identity.Patient
	practitioner *identity.Practitioner
}

func (s stubPrincipals) Patient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	if s.patient == nil || s.patient.ID != id {
		return nil, identity.ErrNotFound
	}
	return s.patient, nil
}

func (s stubPrincipals) Practitioner(_ context.Context, id uuid.UUID) (*identity.Practitioner, error) {
	if s.practitioner == nil || s.practitioner.ID != id {
		return nil, identity.ErrNotFound
	}
	return s.practitioner, nil
}

func fixtures() (*identity.Patient, *identity.Practitioner, *appointment.Appointment) {
	pat := &identity.Patient{Principal: identity.Principal{ID: uuid.New(), Email: "ann@clinic.test", FirstName: "Ann", LastName: "Perkins"}}
	doc := &identity.Practitioner{Principal: identity.Principal{ID: uuid.New(), FirstName: "Greg", LastName: "House"}, Specialty: "Diagnostics"}
	appt := &appointment.Appointment{
		ID:             uuid.New(),
		PatientID:      pat.ID,
		PractitionerID: doc.ID,
		Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Time:           "09:00",
		Type:           appointment.TypeVideo,
		Reason:         "headache",
	}
	return pat, doc, appt
}

func TestMailerAppointmentBooked(t *testing.T) {
	pat, doc, appt := fixtures()
	sender := &recordingSender{}
	m := NewMailer(sender, stubPrincipals{patient: pat, practitioner: doc}, zerolog.Nop())

	require.NoError(t, m.AppointmentBooked(context.Background(), appt, doc))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ann@clinic.test", msg.To)
	assert.Equal(t, "Ann Perkins", msg.ToName)
	assert.Contains(t, msg.Text, "Dr. Greg House")
	assert.Contains(t, msg.Text, "Monday, March 10, 2025 at 09:00")
	assert.Contains(t, msg.Text, "video")
}

func TestMailerReminderUnknownPatient(t *testing.T) {
	_, doc, appt := fixtures()
	sender := &recordingSender{}
	m := NewMailer(sender, stubPrincipals{practitioner: doc}, zerolog.Nop())

	err := m.AppointmentReminder(context.Background(), appt)
	assert.ErrorIs(t, err, identity.ErrNotFound)
	assert.Empty(t, sender.sent)
}

func TestMailerReminderWithoutPractitioner(t *testing.T) {
	pat, _, appt := fixtures()
	sender := &recordingSender{}
	m := NewMailer(sender, stubPrincipals{patient: pat}, zerolog.Nop())

	require.NoError(t, m.AppointmentReminder(context.Background(), appt))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "your practitioner")
}

func TestMailerPasswordResetPropagatesFailure(t *testing.T) {
	pat, _, _ := fixtures()
	sender := &recordingSender{err: errors.New("boom")}
	m := NewMailer(sender, stubPrincipals{}, zerolog.Nop())

	err := m.PasswordReset(context.Background(), pat, "https://app.test/reset-password/abc?role=patient")
	require.Error(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "https://app.test/reset-password/abc?role=patient")
}

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "a@b.c"}, zerolog.Nop()))

	s := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "a@b.c"}, zerolog.Nop())
	require.NotNil(t, s)
	assert.Equal(t, defaultFromName, s.fromName)

	var nilSender *SendGridSender
	assert.Error(t, nilSender.Send(context.Background(), Message{To: "x@y.z"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderBuildsInput(t *testing.T) {
	api := &fakeSES{}
	s := NewSESSender(api, SESConfig{FromEmail: "noreply@clinic.test"}, zerolog.Nop())
	require.NotNil(t, s)

	require.NoError(t, s.Send(context.Background(), Message{To: "ann@clinic.test", Subject: "Hi", Text: "body"}))
	require.NotNil(t, api.input)
	assert.Equal(t, "Clinic Scheduling <noreply@clinic.test>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"ann@clinic.test"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "body", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.input.Content.Simple.Body.Html)
}

func TestStubSenderNeverFails(t *testing.T) {
	assert.NoError(t, NewStubSender(zerolog.Nop()).Send(context.Background(), Message{To: "a@b.c"}))
}
