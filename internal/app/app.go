// Package app assembles the stores, services and senders shared by the binaries in cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Pool  *pgxpool.Pool
	Redis *redis.Client

	Directory    *identity.Directory
	Identity     *identity.Service
	Codec        *auth.TokenCodec
	Guard        *auth.Guard
	Auth         *auth.Service
	Appointments *appointment.Service
	Specialties  *specialty.Service
	Mailer       *notify.Mailer
}

// New connects the configured store and builds every service on top of it.
// Callers must Close the returned App.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	var apptRepo appointment.Repository
	var specialtyRepo specialty.Repository
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		a.Directory = memstore.NewDirectory()
		apptRepo = memstore.NewAppointments()
		specialtyRepo = memstore.NewSpecialties()
	default:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.Pool = pool
		a.Directory = identity.NewDirectory(
			identity.NewPgPatientRepository(pool),
			identity.NewPgPractitionerRepository(pool),
			identity.NewPgAdminRepository(pool),
		)
		apptRepo = appointment.NewPgRepository(pool)
		specialtyRepo = specialty.NewPgRepository(pool)
		logger.Info().Msg("connected to postgres")
	}

	var locker redisclient.Locker = redisclient.NoopLocker{}
	if cfg.RedisLocks {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.ClientOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = rdb
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	}

	sender, err := newSender(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Mailer = notify.NewMailer(sender, a.Directory, logger)

	slots, err := appointment.NewSlotVocabulary(cfg.SlotDayStart, cfg.SlotDayEnd, cfg.SlotStep)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("slot vocabulary: %w", err)
	}

	a.Codec, err = auth.NewTokenCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Guard = auth.NewGuard(a.Codec, a.Directory)
	a.Identity = identity.NewService(a.Directory, logger)
	a.Specialties = specialty.NewService(specialtyRepo, logger)
	a.Auth = auth.NewService(a.Directory, a.Codec, a.Mailer, auth.ServiceConfig{
		BcryptCost:    cfg.BcryptCost,
		ResetTokenTTL: cfg.ResetTokenTTL,
		FrontendURL:   cfg.FrontendURL,
	}, a.Metrics, logger)
	a.Appointments = appointment.NewService(apptRepo, a.Directory,
		appointment.WithLocker(locker),
		appointment.WithNotifier(a.Mailer),
		appointment.WithPrincipalCounter(a.Identity),
		appointment.WithSlots(slots),
		appointment.WithMetrics(a.Metrics),
		appointment.WithLogger(logger),
	)
	return a, nil
}

func newSender(ctx context.Context, cfg config.Config, logger zerolog.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if s == nil {
			return nil, errors.New("sendgrid sender needs an api key")
		}
		return s, nil
	case "ses":
		s, err := notify.NewSESSenderFromEnv(ctx, notify.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("ses sender: %w", err)
		}
		return s, nil
	default:
		return notify.NewStubSender(logger), nil
	}
}

// Pinger returns the Postgres pool for readiness checks, or nil for the memory store.
func (a *App) Pinger() interface{ Ping(context.Context) error } {
	if a.Pool == nil {
		return nil
	}
	return a.Pool
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("closing redis")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
