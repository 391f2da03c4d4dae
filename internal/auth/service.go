package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

var tracer = otel.Tracer("clinic.internal.auth")

// ResetMailer delivers password reset links.
type ResetMailer interface {
	PasswordReset(ctx context.Context, to identity.Account, resetURL string) error
}

type ServiceConfig struct {
	BcryptCost    int
	ResetTokenTTL time.Duration
	FrontendURL   string
}

// Service owns the credential commands: register, login, password change and reset.
// These are the only places a password hash is produced.
type Service struct {
	dir     *identity.Directory
	codec   *TokenCodec
	mailer  ResetMailer
	cfg     ServiceConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(dir *identity.Directory, codec *TokenCodec, mailer ResetMailer, cfg ServiceConfig, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 10 * time.Minute
	}
	return &Service{
		dir:     dir,
		codec:   codec,
		mailer:  mailer,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "auth").Logger(),
		now:     time.Now,
	}
}

// Session is a freshly issued token for a principal.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   identity.Account
}

type RegisterInput struct {
	Role      identity.Role
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string

	DateOfBirth *time.Time
	Gender      string
	BloodGroup  string

	Specialty       string
	Degree          string
	ExperienceYears int
	LicenseNumber   string
	Fee             int64
	About           string
}

type AdminInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	Tier        identity.Tier
	Permissions []string
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{identity.ErrValidation}, args...)...)
}

func (s *Service) newPrincipal(role identity.Role, email, password, first, last, phone string) (identity.Principal, error) {
	trimmed := strings.TrimSpace(email)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || trimmed == "" || addr.Address != trimmed {
		return identity.Principal{}, validationf("a valid email is required")
	}
	email = identity.NormalizeEmail(addr.Address)
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return identity.Principal{}, validationf("first and last name are required")
	}
	if err := ValidatePassword(role, password); err != nil {
		return identity.Principal{}, err
	}
	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return identity.Principal{}, err
	}
	now := s.now().UTC()
	return identity.Principal{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    first,
		LastName:     last,
		Phone:        strings.TrimSpace(phone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Register creates a patient or practitioner and signs them in.
// Practitioners start unverified and cannot be booked until an administrator verifies them.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(in.Role)))

	var acct identity.Account
	switch in.Role {
	case identity.RolePatient:
		gender := strings.ToLower(strings.TrimSpace(in.Gender))
		if gender != "" && gender != "male" && gender != "female" && gender != "other" {
			return Session{}, validationf("gender must be male, female or other")
		}
		base, err := s.newPrincipal(in.Role, in.Email, in.Password, in.FirstName, in.LastName, in.Phone)
		if err != nil {
			return Session{}, err
		}
		acct = &identity.Patient{Principal: base, DateOfBirth: in.DateOfBirth, Gender: gender, BloodGroup: strings.TrimSpace(in.BloodGroup)}
	case identity.RolePractitioner:
		if strings.TrimSpace(in.Specialty) == "" || strings.TrimSpace(in.LicenseNumber) == "" {
			return Session{}, validationf("specialty and license number are required")
		}
		if in.Fee < 0 || in.ExperienceYears < 0 {
			return Session{}, validationf("fee and experience must not be negative")
		}
		base, err := s.newPrincipal(in.Role, in.Email, in.Password, in.FirstName, in.LastName, in.Phone)
		if err != nil {
			return Session{}, err
		}
		acct = &identity.Practitioner{
			Principal:       base,
			Specialty:       strings.TrimSpace(in.Specialty),
			Degree:          strings.TrimSpace(in.Degree),
			ExperienceYears: in.ExperienceYears,
			LicenseNumber:   strings.TrimSpace(in.LicenseNumber),
			Fee:             in.Fee,
			About:           strings.TrimSpace(in.About),
			IsAvailable:     true,
		}
	default:
		return Session{}, validationf("only patients and practitioners can self-register")
	}

	repo, err := s.dir.For(in.Role)
	if err != nil {
		return Session{}, err
	}
	if err := repo.Insert(ctx, acct); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) || errors.Is(err, identity.ErrLicenseTaken) {
			return Session{}, err
		}
		span.RecordError(err)
		return Session{}, fmt.Errorf("insert %s: %w", in.Role, err)
	}

	s.logger.Info().Str("role", string(in.Role)).Str("principal_id", acct.Base().ID.String()).Msg("principal registered")
	return s.issue(acct)
}

// CreateAdmin provisions an administrator. Callers must already hold manage_admins.
func (s *Service) CreateAdmin(ctx context.Context, in AdminInput) (*identity.Administrator, error) {
	tier := in.Tier
	if tier == "" {
		tier = identity.TierAdmin
	}
	if !tier.Valid() {
		return nil, validationf("unknown tier %q", tier)
	}
	perms, err := identity.NormalizePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	base, err := s.newPrincipal(identity.RoleAdmin, in.Email, in.Password, in.FirstName, in.LastName, in.Phone)
	if err != nil {
		return nil, err
	}
	adm := &identity.Administrator{Principal: base, Tier: tier, Permissions: perms}

	repo, err := s.dir.For(identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := repo.Insert(ctx, adm); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	s.logger.Info().Str("principal_id", adm.ID.String()).Str("tier", string(tier)).Msg("administrator created")
	return adm, nil
}

// Login authenticates against the collection of the declared role.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string, role identity.Role) (Session, error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(role)))

	if !role.Valid() {
		return Session{}, validationf("unknown role %q", role)
	}
	repo, err := s.dir.For(role)
	if err != nil {
		return Session{}, err
	}

	acct, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.metrics.ObserveAuthFailure("invalid_credentials")
			return Session{}, VerifyAbsent(password, s.cfg.BcryptCost)
		}
		return Session{}, fmt.Errorf("load %s: %w", role, err)
	}
	if err := VerifyPassword(acct.Base().PasswordHash, password); err != nil {
		s.metrics.ObserveAuthFailure("invalid_credentials")
		return Session{}, err
	}
	if !acct.Base().IsActive {
		s.metrics.ObserveAuthFailure("deactivated")
		return Session{}, ErrAccountDeactivated
	}

	if role == identity.RoleAdmin {
		now := s.now().UTC()
		if updated, err := repo.UpdateByID(ctx, acct.Base().ID, identity.Patch{LastLoginAt: &now}); err != nil {
			s.logger.Warn().Err(err).Str("principal_id", acct.Base().ID.String()).Msg("failed to record admin login")
		} else {
			acct = updated
		}
	}

	return s.issue(acct)
}

// Me reloads the caller's principal record.
func (s *Service) Me(ctx context.Context, actor Actor) (identity.Account, error) {
	acct, err := s.dir.Resolve(ctx, actor.ID, actor.Role)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	return acct, nil
}

// ChangePassword requires the current password and returns a fresh session.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, current, next string) (Session, error) {
	acct, err := s.Me(ctx, actor)
	if err != nil {
		return Session{}, err
	}
	if err := VerifyPassword(acct.Base().PasswordHash, current); err != nil {
		return Session{}, err
	}
	if err := ValidatePassword(actor.Role, next); err != nil {
		return Session{}, err
	}
	hash, err := HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}

	repo, err := s.dir.For(actor.Role)
	if err != nil {
		return Session{}, err
	}
	updated, err := repo.UpdateByID(ctx, actor.ID, identity.Patch{PasswordHash: &hash})
	if err != nil {
		return Session{}, fmt.Errorf("update password: %w", err)
	}
	return s.issue(updated)
}

// ForgotPassword stores a hashed single-use token and emails the raw token.
// Unknown emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string, role identity.Role) error {
	if !role.Valid() {
		return validationf("unknown role %q", role)
	}
	repo, err := s.dir.For(role)
	if err != nil {
		return err
	}
	acct, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.logger.Debug().Str("role", string(role)).Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("load %s: %w", role, err)
	}

	raw, hash, err := newResetToken()
	if err != nil {
		return err
	}
	expires := s.now().UTC().Add(s.cfg.ResetTokenTTL)
	id := acct.Base().ID
	if _, err := repo.UpdateByID(ctx, id, identity.Patch{ResetToken: &identity.ResetToken{Hash: hash, ExpiresAt: expires}}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s?role=%s", s.cfg.FrontendURL, raw, role)
	if s.mailer == nil {
		return nil
	}
	if err := s.mailer.PasswordReset(ctx, acct, resetURL); err != nil {
		if _, clearErr := repo.UpdateByID(ctx, id, identity.Patch{ClearResetToken: true}); clearErr != nil {
			s.logger.Error().Err(clearErr).Str("principal_id", id.String()).Msg("failed to clear reset token")
		}
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, role identity.Role, rawToken, password string) (Session, error) {
	if !role.Valid() {
		return Session{}, validationf("unknown role %q", role)
	}
	if err := ValidatePassword(role, password); err != nil {
		return Session{}, err
	}
	repo, err := s.dir.For(role)
	if err != nil {
		return Session{}, err
	}

	acct, err := repo.FindByResetTokenHash(ctx, hashResetToken(rawToken), s.now().UTC())
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Session{}, ErrInvalidResetToken
		}
		return Session{}, fmt.Errorf("load reset token: %w", err)
	}
	if !acct.Base().IsActive {
		return Session{}, ErrAccountDeactivated
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	updated, err := repo.UpdateByID(ctx, acct.Base().ID, identity.Patch{PasswordHash: &hash, ClearResetToken: true})
	if err != nil {
		return Session{}, fmt.Errorf("reset password: %w", err)
	}
	return s.issue(updated)
}

func (s *Service) issue(acct identity.Account) (Session, error) {
	token, expiresAt, err := s.codec.Issue(acct.Base().ID, acct.Role(), identity.PermissionsOf(acct))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Account: acct}, nil
}

func newResetToken() (raw, hash string, err error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
