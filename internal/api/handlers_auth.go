package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

type sessionCookies struct {
	secure bool
}

func (c sessionCookies) set(w http.ResponseWriter, sess auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func sessionResponse(sess auth.Session) SessionResponse {
	return SessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Role:      sess.Account.Role(),
		Principal: sess.Account,
	}
}

func registerHandler(svc *auth.Service, cookies sessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		role, err := identity.ParseRole(req.Role)
		if err != nil {
			handleError(w, r, err)
			return
		}
		in := auth.RegisterInput{
			Role:            role,
			Email:           req.Email,
			Password:        req.Password,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Phone:           req.Phone,
			Gender:          req.Gender,
			BloodGroup:      req.BloodGroup,
			Specialty:       req.Specialty,
			Degree:          req.Degree,
			ExperienceYears: req.ExperienceYears,
			LicenseNumber:   req.LicenseNumber,
			Fee:             req.Fee,
			About:           req.About,
		}
		if req.DateOfBirth != "" {
			dob, err := appointment.ParseDate(req.DateOfBirth)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "validation_failed", "date_of_birth must be YYYY-MM-DD")
				return
			}
			in.DateOfBirth = &dob
		}

		sess, err := svc.Register(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cookies.set(w, sess)
		writeJSON(w, http.StatusCreated, RegisterResponse{
			ID:        sess.Account.Base().ID,
			Role:      sess.Account.Role(),
			Token:     sess.Token,
			ExpiresAt: sess.ExpiresAt,
		})
	}
}

func loginHandler(svc *auth.Service, cookies sessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		role, err := identity.ParseRole(req.Role)
		if err != nil {
			handleError(w, r, err)
			return
		}
		sess, err := svc.Login(r.Context(), req.Email, req.Password, role)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cookies.set(w, sess)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func meHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, err := svc.Me(r.Context(), actorOf(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse(acct))
	}
}

func logoutHandler(cookies sessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies.clear(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

func changePasswordHandler(svc *auth.Service, cookies sessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangePasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sess, err := svc.ChangePassword(r.Context(), actorOf(r), req.CurrentPassword, req.NewPassword)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cookies.set(w, sess)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

// forgotPasswordHandler answers identically whether or not the email is registered.
func forgotPasswordHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		role, err := identity.ParseRole(req.Role)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if err := svc.ForgotPassword(r.Context(), req.Email, role); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset_email_sent"})
	}
}

func resetPasswordHandler(svc *auth.Service, cookies sessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		rawRole := req.Role
		if rawRole == "" {
			rawRole = r.URL.Query().Get("role")
		}
		role, err := identity.ParseRole(rawRole)
		if err != nil {
			handleError(w, r, err)
			return
		}
		sess, err := svc.ResetPassword(r.Context(), role, chi.URLParam(r, "token"), req.Password)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cookies.set(w, sess)
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func updateProfileHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateProfileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in := identity.Profile{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Phone:           req.Phone,
			Gender:          req.Gender,
			BloodGroup:      req.BloodGroup,
			AddressLine1:    req.AddressLine1,
			AddressLine2:    req.AddressLine2,
			Degree:          req.Degree,
			ExperienceYears: req.ExperienceYears,
			Fee:             req.Fee,
			About:           req.About,
		}
		if req.DateOfBirth != nil {
			dob, err := appointment.ParseDate(*req.DateOfBirth)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "validation_failed", "date_of_birth must be YYYY-MM-DD")
				return
			}
			in.DateOfBirth = &dob
		}
		actor := actorOf(r)
		acct, err := svc.UpdateProfile(r.Context(), actor.Role, actor.ID, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, principalResponse(acct))
	}
}

// closeAccountHandler deactivates the caller; appointment history is kept.
func closeAccountHandler(svc *identity.Service, cookies sessionCookies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorOf(r)
		if _, err := svc.Deactivate(r.Context(), actor.Role, actor.ID); err != nil {
			handleError(w, r, err)
			return
		}
		cookies.clear(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "account_deactivated"})
	}
}
