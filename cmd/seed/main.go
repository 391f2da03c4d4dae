package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "dev").Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env).With().Str("component", "seed").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seeding hashes every password; keep the cost low unless told otherwise.
	if os.Getenv("BCRYPT_COST") == "" {
		cfg.BcryptCost = 4
	}
	cfg.EmailProvider = "stub"

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer a.Close()

	_ = gofakeit.Seed(time.Now().UnixNano())
	password := getEnv("SEED_PASSWORD", "password123")

	if err := seedAdmin(ctx, a.Auth, password, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed admin")
	}
	if err := seedSpecialties(ctx, a.Specialties, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed specialties")
	}
	if err := seedPractitioners(ctx, a, getInt("SEED_PRACTITIONERS", 20), password, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedPatients(ctx, a.Auth, getInt("SEED_PATIENTS", 200), password, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	logger.Info().Str("password", password).Msg("seed complete")
}

func seedAdmin(ctx context.Context, svc *auth.Service, password string, logger zerolog.Logger) error {
	email := getEnv("SEED_ADMIN_EMAIL", "admin@clinic.local")
	_, err := svc.CreateAdmin(ctx, auth.AdminInput{
		Email:       email,
		Password:    password,
		FirstName:   "Clinic",
		LastName:    "Administrator",
		Tier:        identity.TierSuperAdmin,
		Permissions: identity.AllPermissions(),
	})
	if errors.Is(err, identity.ErrEmailTaken) {
		logger.Info().Str("email", email).Msg("admin already present")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info().Str("email", email).Msg("admin seeded")
	return nil
}

func seedSpecialties(ctx context.Context, svc *specialty.Service, logger zerolog.Logger) error {
	seeder := auth.Actor{Role: identity.RoleAdmin, Active: true, Permissions: []string{identity.PermManageSettings}}
	created := 0
	for i, name := range specialties {
		_, err := svc.Create(ctx, seeder, specialty.Input{Name: name, DisplayOrder: i})
		if errors.Is(err, specialty.ErrNameTaken) {
			continue
		}
		if err != nil {
			return fmt.Errorf("specialty %s: %w", name, err)
		}
		created++
	}
	logger.Info().Int("count", created).Msg("specialties seeded")
	return nil
}

func seedPractitioners(ctx context.Context, a *app.App, count int, password string, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding practitioners")

	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		sess, err := a.Auth.Register(ctx, auth.RegisterInput{
			Role:            identity.RolePractitioner,
			Email:           seedEmail("dr", first, last, i),
			Password:        password,
			FirstName:       first,
			LastName:        last,
			Phone:           gofakeit.Phone(),
			Specialty:       specialties[gofakeit.Number(0, len(specialties)-1)],
			Degree:          "MD",
			ExperienceYears: gofakeit.Number(1, 30),
			LicenseNumber:   fmt.Sprintf("LIC-%06d-%d", gofakeit.Number(0, 999999), i),
			Fee:             int64(gofakeit.Number(20, 200)) * 100,
		})
		if errors.Is(err, identity.ErrEmailTaken) || errors.Is(err, identity.ErrLicenseTaken) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := a.Identity.VerifyPractitioner(ctx, sess.Account.Base().ID); err != nil {
			return fmt.Errorf("verify practitioner: %w", err)
		}
	}
	logger.Info().Msg("practitioners seeded")
	return nil
}

func seedPatients(ctx context.Context, svc *auth.Service, count int, password string, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		_, err := svc.Register(ctx, auth.RegisterInput{
			Role:      identity.RolePatient,
			Email:     seedEmail("pt", first, last, i),
			Password:  password,
			FirstName: first,
			LastName:  last,
			Phone:     gofakeit.Phone(),
			Gender:    []string{"male", "female", "other"}[gofakeit.Number(0, 2)],
		})
		if errors.Is(err, identity.ErrEmailTaken) {
			continue
		}
		if err != nil {
			return err
		}
		if (i+1)%100 == 0 {
			logger.Info().Int("done", i+1).Int("count", count).Msg("patients progress")
		}
	}
	logger.Info().Msg("patients seeded")
	return nil
}

func seedEmail(prefix, first, last string, i int) string {
	local := strings.ToLower(fmt.Sprintf("%s.%s.%s.%d", prefix, first, last, i))
	local = strings.NewReplacer(" ", "", "'", "").Replace(local)
	return local + "@seed.clinic.local"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
