package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
)

func actorOf(r *http.Request) auth.Actor {
	actor, _ := auth.ActorFromContext(r.Context())
	return actor
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(w http.ResponseWriter, r *http.Request, key string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_"+key, key+" must be a valid UUID")
		return nil, false
	}
	return &id, true
}

func boolQuery(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func respondAppointment(w http.ResponseWriter, r *http.Request, status int, appt *appointment.Appointment, err error) {
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, status, appointmentResponse(*appt))
}

func respondPage(w http.ResponseWriter, r *http.Request, page pagination.Result[appointment.Appointment], err error) {
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagination.Map(page, appointmentResponse))
}

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}

		appt, err := svc.Create(r.Context(), actorOf(r), appointment.CreateInput{
			PractitionerID: practitionerID,
			Date:           req.Date,
			Time:           req.Time,
			Type:           appointment.Type(req.Type),
			Reason:         req.Reason,
			Symptoms:       req.Symptoms,
			Notes:          req.Notes,
		})
		respondAppointment(w, r, http.StatusCreated, appt, err)
	}
}

func myAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := svc.ListForActor(r.Context(), actorOf(r), appointment.ListFilter{
			Status: q.Get("status"),
			Date:   q.Get("date"),
		}, pagination.FromQuery(q))
		respondPage(w, r, page, err)
	}
}

func practitionerStatsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.PractitionerStats(r.Context(), actorOf(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		appt, err := svc.Get(r.Context(), actorOf(r), id)
		respondAppointment(w, r, http.StatusOK, appt, err)
	}
}

func updateStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status, err := appointment.ParseStatus(req.Status)
		if err != nil {
			handleError(w, r, err)
			return
		}
		appt, err := svc.UpdateStatus(r.Context(), actorOf(r), id, status)
		respondAppointment(w, r, http.StatusOK, appt, err)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req CancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.Cancel(r.Context(), actorOf(r), id, req.Reason)
		respondAppointment(w, r, http.StatusOK, appt, err)
	}
}

func consultationHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req ConsultationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.RecordConsultation(r.Context(), actorOf(r), id, appointment.ConsultationInput{
			Diagnosis:     req.Diagnosis,
			Prescriptions: req.Prescriptions,
			LabTests:      req.LabTests,
			FollowUpDate:  req.FollowUpDate,
			Notes:         req.Notes,
		})
		respondAppointment(w, r, http.StatusOK, appt, err)
	}
}

func paymentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req PaymentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.RecordPayment(r.Context(), actorOf(r), id, appointment.PaymentInput{
			Status: appointment.PaymentStatus(req.Status),
			Method: appointment.PaymentMethod(req.Method),
		})
		respondAppointment(w, r, http.StatusOK, appt, err)
	}
}

func freeSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		date := r.URL.Query().Get("date")
		free, err := svc.FreeSlots(r.Context(), id, date)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{PractitionerID: id, Date: date, Available: free})
	}
}
