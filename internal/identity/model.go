package identity

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Principal holds the fields every role shares.
type Principal struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Phone               string     `json:"phone"`
	IsActive            bool       `json:"is_active"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (p *Principal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Patient struct {
	Principal
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	BloodGroup   string     `json:"blood_group,omitempty"`
	AddressLine1 string     `json:"address_line1,omitempty"`
	AddressLine2 string     `json:"address_line2,omitempty"`
}

type Practitioner struct {
	Principal
	Specialty       string `json:"specialty"`
	Degree          string `json:"degree"`
	ExperienceYears int    `json:"experience_years"`
	LicenseNumber   string `json:"license_number"`
	Fee             int64  `json:"fee"`
	About           string `json:"about,omitempty"`
	IsAvailable     bool   `json:"is_available"`
	IsVerified      bool   `json:"is_verified"`
}

// Bookable reports whether new appointments may be made with this practitioner.
func (p *Practitioner) Bookable() bool {
	return p.IsActive && p.IsVerified && p.IsAvailable
}

type Administrator struct {
	Principal
	Tier        Tier       `json:"tier"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (a *Administrator) HasPermission(perm string) bool {
	return slices.Contains(a.Permissions, perm)
}

// Account is implemented by *Patient, *Practitioner and *Administrator.
type Account interface {
	Base() *Principal
	Role() Role
}

func (p *Patient) Base() *Principal       { return &p.Principal }
func (p *Patient) Role() Role             { return RolePatient }
func (p *Practitioner) Base() *Principal  { return &p.Principal }
func (p *Practitioner) Role() Role        { return RolePractitioner }
func (a *Administrator) Base() *Principal { return &a.Principal }
func (a *Administrator) Role() Role       { return RoleAdmin }

// PermissionsOf returns the live permission set; only administrators carry one.
func PermissionsOf(acct Account) []string {
	if adm, ok := acct.(*Administrator); ok {
		return slices.Clone(adm.Permissions)
	}
	return nil
}

// NormalizeEmail is applied before every store and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
