package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
)

func dashboardHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.DashboardStats(r.Context(), actorOf(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		recent := make([]AppointmentResponse, 0, len(stats.Recent))
		for _, a := range stats.Recent {
			recent = append(recent, appointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, DashboardResponse{
			ActivePatients:      stats.ActivePatients,
			ActivePractitioners: stats.ActivePractitioners,
			TotalAppointments:   stats.TotalAppointments,
			PendingAppointments: stats.PendingAppointments,
			CompletedToday:      stats.CompletedToday,
			ByStatus:            stats.ByStatus,
			Recent:              recent,
		})
	}
}

func allAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := appointment.ListFilter{Status: q.Get("status"), Date: q.Get("date")}
		var ok bool
		if filter.PatientID, ok = optionalUUID(w, r, "patient_id"); !ok {
			return
		}
		if filter.PractitionerID, ok = optionalUUID(w, r, "practitioner_id"); !ok {
			return
		}
		page, err := svc.ListAll(r.Context(), actorOf(r), filter, pagination.FromQuery(q))
		respondPage(w, r, page, err)
	}
}

func principalFilter(r *http.Request) identity.ListFilter {
	q := r.URL.Query()
	return identity.ListFilter{
		Search:    q.Get("search"),
		Active:    boolQuery(r, "active"),
		Verified:  boolQuery(r, "verified"),
		Available: boolQuery(r, "available"),
		Specialty: q.Get("specialty"),
	}
}

func listPatientsHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListPatients(r.Context(), principalFilter(r), pagination.FromQuery(r.URL.Query()))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func listPractitionersHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListPractitioners(r.Context(), principalFilter(r), pagination.FromQuery(r.URL.Query()))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// bookablePractitionersHandler is the public directory: only practitioners that can take bookings.
func bookablePractitionersHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		yes := true
		filter := identity.ListFilter{
			Search:    r.URL.Query().Get("search"),
			Specialty: r.URL.Query().Get("specialty"),
			Active:    &yes,
			Verified:  &yes,
			Available: &yes,
		}
		page, err := svc.ListPractitioners(r.Context(), filter, pagination.FromQuery(r.URL.Query()))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func practitionerDetailHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		p, err := svc.PublicPractitioner(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse(p))
	}
}

func relatedPractitionersHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		related, err := svc.RelatedPractitioners(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, PractitionersResponse{Data: related})
	}
}

func verifyPractitionerHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		p, err := svc.VerifyPractitioner(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse(p))
	}
}

func availabilityHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		p, err := svc.SetAvailability(r.Context(), actorOf(r).ID, req.IsAvailable)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse(p))
	}
}

// managedRoleParam accepts singular or plural collection names.
func managedRoleParam(r *http.Request) (identity.Role, error) {
	raw := strings.TrimSuffix(strings.ToLower(chi.URLParam(r, "role")), "s")
	return identity.ParseRole(raw)
}

func deactivateHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := managedRoleParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		acct, err := svc.Deactivate(r.Context(), role, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse(acct))
	}
}

func deletePrincipalHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := managedRoleParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), role, id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createAdminHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAdminRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		adm, err := svc.CreateAdmin(r.Context(), auth.AdminInput{
			Email:       req.Email,
			Password:    req.Password,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Phone:       req.Phone,
			Tier:        identity.Tier(req.Tier),
			Permissions: req.Permissions,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, principalResponse(adm))
	}
}
