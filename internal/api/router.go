package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

type RouterConfig struct {
	Auth         *auth.Service
	Guard        *auth.Guard
	Identity     *identity.Service
	Appointments *appointment.Service
	Specialties  *specialty.Service
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger

	Postgres Pinger
	Redis    *redis.Client
	Env      string
	Version  string

	CookieSecure       bool
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
	TrustProxyHeaders  bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cfg.Metrics.Instrument)

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	cookies := sessionCookies{secure: cfg.CookieSecure}
	authenticated := Authenticate(cfg.Guard)
	limited := RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, cfg.TrustProxyHeaders)
	if cfg.AuthRateLimitRPS <= 0 {
		limited = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", registerHandler(cfg.Auth, cookies))
			r.With(limited).Post("/login", loginHandler(cfg.Auth, cookies))
			r.With(limited).Post("/forgot-password", forgotPasswordHandler(cfg.Auth))
			r.Put("/reset-password/{token}", resetPasswordHandler(cfg.Auth, cookies))

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/me", meHandler(cfg.Auth))
				r.Post("/logout", logoutHandler(cookies))
				r.Put("/password", changePasswordHandler(cfg.Auth, cookies))
				r.With(RequireRole(identity.RolePatient, identity.RolePractitioner)).
					Put("/profile", updateProfileHandler(cfg.Identity))
				r.With(RequireRole(identity.RolePatient)).Delete("/account", closeAccountHandler(cfg.Identity, cookies))
			})
		})

		r.Get("/practitioners", bookablePractitionersHandler(cfg.Identity))
		r.Get("/practitioners/{id}", practitionerDetailHandler(cfg.Identity))
		r.Get("/practitioners/{id}/related", relatedPractitionersHandler(cfg.Identity))
		r.Get("/practitioners/{id}/slots", freeSlotsHandler(cfg.Appointments))
		r.With(authenticated, RequireRole(identity.RolePractitioner)).
			Put("/practitioners/availability", availabilityHandler(cfg.Identity))

		if cfg.Specialties != nil {
			r.Get("/specialties", listSpecialtiesHandler(cfg.Specialties))
			r.Get("/specialties/{id}", getSpecialtyHandler(cfg.Specialties))
		}

		r.Route("/appointments", func(r chi.Router) {
			r.Use(authenticated)
			r.With(RequireRole(identity.RolePatient)).Post("/", createAppointmentHandler(cfg.Appointments))
			r.With(RequireRole(identity.RolePatient, identity.RolePractitioner)).Get("/mine", myAppointmentsHandler(cfg.Appointments))
			r.With(RequireRole(identity.RolePractitioner)).Get("/stats", practitionerStatsHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.With(RequireRole(identity.RolePractitioner, identity.RoleAdmin)).Put("/{id}/status", updateStatusHandler(cfg.Appointments))
			r.Put("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
			r.With(RequireRole(identity.RolePractitioner)).Put("/{id}/consultation", consultationHandler(cfg.Appointments))
			r.With(RequireRole(identity.RoleAdmin)).Put("/{id}/payment", paymentHandler(cfg.Appointments))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticated, RequireRole(identity.RoleAdmin))
			r.Get("/stats", dashboardHandler(cfg.Appointments))
			r.With(RequirePermission(identity.PermManageAppointments)).Get("/appointments", allAppointmentsHandler(cfg.Appointments))
			r.With(RequirePermission(identity.PermManageUsers)).Get("/patients", listPatientsHandler(cfg.Identity))
			r.With(RequirePermission(identity.PermManageDoctors)).Get("/practitioners", listPractitionersHandler(cfg.Identity))
			r.With(RequirePermission(identity.PermManageDoctors)).Put("/practitioners/{id}/verify", verifyPractitionerHandler(cfg.Identity))
			r.With(RequirePermission(identity.PermManageUsers)).Put("/{role}/{id}/deactivate", deactivateHandler(cfg.Identity))
			r.With(RequirePermission(identity.PermManageUsers)).Delete("/{role}/{id}", deletePrincipalHandler(cfg.Identity))
			r.With(RequirePermission(identity.PermManageAdmins)).Post("/admins", createAdminHandler(cfg.Auth))
			if cfg.Specialties != nil {
				r.Route("/specialties", func(r chi.Router) {
					r.Use(RequirePermission(identity.PermManageSettings))
					r.Post("/", createSpecialtyHandler(cfg.Specialties))
					r.Put("/{id}", updateSpecialtyHandler(cfg.Specialties))
					r.Delete("/{id}", deleteSpecialtyHandler(cfg.Specialties))
				})
			}
		})
	})

	return r
}
