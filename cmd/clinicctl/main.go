package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Operational commands for the clinic scheduling service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(remindersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func load() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.Env).With().Str("component", "clinicctl").Logger(), nil
}

func withMigrator(fn func(m *db.Migrator, logger zerolog.Logger) error) error {
	cfg, logger, err := load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != "postgres" {
		return fmt.Errorf("migrations need STORE_DRIVER=postgres, got %q", cfg.StoreDriver)
	}
	m, err := db.NewMigrator(cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing migrator")
		}
	}()
	return fn(m, logger)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator, logger zerolog.Logger) error {
				if err := m.Up(); err != nil {
					return err
				}
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("migrations applied")
				return nil
			})
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrator(func(m *db.Migrator, logger zerolog.Logger) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				logger.Info().Int("steps", steps).Msg("migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator, _ zerolog.Logger) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark the schema as VERSION without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("version must be an integer: %w", err)
			}
			return withMigrator(func(m *db.Migrator, logger zerolog.Logger) error {
				if err := m.Force(version); err != nil {
					return err
				}
				logger.Info().Int("version", version).Msg("schema version forced")
				return nil
			})
		},
	})

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator; the password is read from CLINIC_ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			first, _ := cmd.Flags().GetString("first-name")
			last, _ := cmd.Flags().GetString("last-name")
			tier, _ := cmd.Flags().GetString("tier")
			perms, _ := cmd.Flags().GetStringSlice("permissions")

			password := os.Getenv("CLINIC_ADMIN_PASSWORD")
			if password == "" {
				return errors.New("CLINIC_ADMIN_PASSWORD is required")
			}
			if len(perms) == 1 && strings.EqualFold(perms[0], "all") {
				perms = identity.AllPermissions()
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				adm, err := a.Auth.CreateAdmin(cmd.Context(), auth.AdminInput{
					Email:       email,
					Password:    password,
					FirstName:   first,
					LastName:    last,
					Tier:        identity.Tier(tier),
					Permissions: perms,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s admin %s (%s)\n", adm.Tier, adm.Email, adm.ID)
				return nil
			})
		},
	}
	createCmd.Flags().String("email", "", "Administrator email")
	createCmd.Flags().String("first-name", "Clinic", "First name")
	createCmd.Flags().String("last-name", "Administrator", "Last name")
	createCmd.Flags().String("tier", string(identity.TierSuperAdmin), "super-admin, admin or moderator")
	createCmd.Flags().StringSlice("permissions", []string{"all"}, "Permission names, or \"all\"")
	_ = createCmd.MarkFlagRequired("email")
	cmd.AddCommand(createCmd)

	return cmd
}

func remindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-reminders",
		Short: "Run one reminder pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				sent, err := a.Appointments.SendReminders(cmd.Context(), a.Config.ReminderLeadTime)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reminders sent: %d\n", sent)
				return nil
			})
		},
	}
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, logger, err := load()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
