package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

type RegisterRequest struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`

	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	BloodGroup  string `json:"blood_group"`

	Specialty       string `json:"specialty"`
	Degree          string `json:"degree"`
	ExperienceYears int    `json:"experience_years"`
	LicenseNumber   string `json:"license_number"`
	Fee             int64  `json:"fee"`
	About           string `json:"about"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
	Role     string `json:"role"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type CreateAdminRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Phone       string   `json:"phone"`
	Tier        string   `json:"tier"`
	Permissions []string `json:"permissions"`
}

type CreateAppointmentRequest struct {
	PractitionerID string   `json:"practitioner_id"`
	Date           string   `json:"appointment_date"`
	Time           string   `json:"appointment_time"`
	Type           string   `json:"type"`
	Reason         string   `json:"reason"`
	Symptoms       []string `json:"symptoms"`
	Notes          string   `json:"notes"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type ConsultationRequest struct {
	Diagnosis     string                     `json:"diagnosis"`
	Prescriptions []appointment.Prescription `json:"prescriptions"`
	LabTests      []appointment.LabTest      `json:"lab_tests"`
	FollowUpDate  string                     `json:"follow_up_date"`
	Notes         string                     `json:"notes"`
}

type PaymentRequest struct {
	Status string `json:"status"`
	Method string `json:"method"`
}

// UpdateProfileRequest fields left null are unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`

	DateOfBirth  *string `json:"date_of_birth"`
	Gender       *string `json:"gender"`
	BloodGroup   *string `json:"blood_group"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`

	Degree          *string `json:"degree"`
	ExperienceYears *int    `json:"experience_years"`
	Fee             *int64  `json:"fee"`
	About           *string `json:"about"`
}

type SpecialtyRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

// PrincipalResponse carries any account with its role.
type PrincipalResponse struct {
	Role      identity.Role    `json:"role"`
	Principal identity.Account `json:"principal"`
}

func principalResponse(acct identity.Account) PrincipalResponse {
	return PrincipalResponse{Role: acct.Role(), Principal: acct}
}

type SessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Role      identity.Role    `json:"role"`
	Principal identity.Account `json:"principal"`
}

type RegisterResponse struct {
	ID        uuid.UUID     `json:"id"`
	Role      identity.Role `json:"role"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type PaymentResponse struct {
	Status appointment.PaymentStatus `json:"status"`
	Amount int64                     `json:"amount"`
	Method appointment.PaymentMethod `json:"method,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	PatientID          uuid.UUID                  `json:"patient_id"`
	PractitionerID     uuid.UUID                  `json:"practitioner_id"`
	Date               string                     `json:"appointment_date"`
	Time               string                     `json:"appointment_time"`
	Type               appointment.Type           `json:"type"`
	Reason             string                     `json:"reason"`
	Symptoms           []string                   `json:"symptoms"`
	Status             appointment.Status         `json:"status"`
	Diagnosis          string                     `json:"diagnosis,omitempty"`
	Prescriptions      []appointment.Prescription `json:"prescriptions"`
	LabTests           []appointment.LabTest      `json:"lab_tests"`
	FollowUpDate       string                     `json:"follow_up_date,omitempty"`
	Notes              string                     `json:"notes,omitempty"`
	CancellationReason string                     `json:"cancellation_reason,omitempty"`
	CancelledBy        identity.Role              `json:"cancelled_by,omitempty"`
	Payment            PaymentResponse            `json:"payment"`
	ReminderSentAt     *time.Time                 `json:"reminder_sent_at,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

func appointmentResponse(a appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		PractitionerID:     a.PractitionerID,
		Date:               a.Date.Format(appointment.DateLayout),
		Time:               a.Time,
		Type:               a.Type,
		Reason:             a.Reason,
		Symptoms:           a.Symptoms,
		Status:             a.Status,
		Diagnosis:          a.Diagnosis,
		Prescriptions:      a.Prescriptions,
		LabTests:           a.LabTests,
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CancelledBy:        a.CancelledBy,
		Payment:            PaymentResponse{Status: a.PaymentStatus, Amount: a.PaymentAmount, Method: a.PaymentMethod},
		ReminderSentAt:     a.ReminderSentAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if resp.Symptoms == nil {
		resp.Symptoms = []string{}
	}
	if resp.Prescriptions == nil {
		resp.Prescriptions = []appointment.Prescription{}
	}
	if resp.LabTests == nil {
		resp.LabTests = []appointment.LabTest{}
	}
	if a.FollowUpDate != nil {
		resp.FollowUpDate = a.FollowUpDate.Format(appointment.DateLayout)
	}
	return resp
}

type DashboardResponse struct {
	ActivePatients      int                        `json:"active_patients"`
	ActivePractitioners int                        `json:"active_practitioners"`
	TotalAppointments   int                        `json:"total_appointments"`
	PendingAppointments int                        `json:"pending_appointments"`
	CompletedToday      int                        `json:"completed_today"`
	ByStatus            map[appointment.Status]int `json:"by_status"`
	Recent              []AppointmentResponse      `json:"recent_appointments"`
}

type SlotsResponse struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Date           string    `json:"date"`
	Available      []string  `json:"available"`
}

type PractitionersResponse struct {
	Data []*identity.Practitioner `json:"data"`
}

type SpecialtiesResponse struct {
	Data  []specialty.Specialty `json:"data"`
	Count int                   `json:"count"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
