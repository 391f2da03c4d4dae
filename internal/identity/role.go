package identity

import (
	"fmt"
	"strings"
)

// Role selects both the principal collection and the route capability set.
type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePractitioner, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
	return r, nil
}

// Tier is the administrator grade. It is informational; capabilities come from permissions.
type Tier string

const (
	TierSuperAdmin Tier = "super-admin"
	TierAdmin      Tier = "admin"
	TierModerator  Tier = "moderator"
)

func (t Tier) Valid() bool {
	switch t {
	case TierSuperAdmin, TierAdmin, TierModerator:
		return true
	}
	return false
}

const (
	PermManageUsers        = "manage_users"
	PermManageDoctors      = "manage_doctors"
	PermManageAppointments = "manage_appointments"
	PermManageAdmins       = "manage_admins"
	PermViewReports        = "view_reports"
	PermManageSettings     = "manage_settings"
	PermManagePayments     = "manage_payments"
	PermSendNotifications  = "send_notifications"
)

var permissionCatalogue = map[string]struct{}{
	PermManageUsers:        {},
	PermManageDoctors:      {},
	PermManageAppointments: {},
	PermManageAdmins:       {},
	PermViewReports:        {},
	PermManageSettings:     {},
	PermManagePayments:     {},
	PermSendNotifications:  {},
}

// AllPermissions returns the full catalogue, used for bootstrap super-admins.
func AllPermissions() []string {
	return []string{
		PermManageUsers,
		PermManageDoctors,
		PermManageAppointments,
		PermManageAdmins,
		PermViewReports,
		PermManageSettings,
		PermManagePayments,
		PermSendNotifications,
	}
}

// NormalizePermissions lower-cases, dedupes and checks every entry against the catalogue.
func NormalizePermissions(perms []string) ([]string, error) {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := permissionCatalogue[p]; !ok {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrValidation, p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
