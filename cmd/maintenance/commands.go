package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/campusstay/reservation-backend/internal/services"
	"github.com/campusstay/reservation-backend/internal/utils"
	"github.com/campusstay/reservation-backend/pkg/jwt"
	"github.com/campusstay/reservation-backend/pkg/payment"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// connect opens the database from flags or the environment without loading
// (and validating) the full application config
func connect(cmd *cobra.Command) (*database.PostgresDB, error) {
	url, _ := cmd.Flags().GetString("database-url")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, errors.New("DATABASE_URL is not set and --database-url was not provided")
	}

	driver, _ := cmd.Flags().GetString("database-driver")
	if driver == "" {
		driver = os.Getenv("DATABASE_DRIVER")
	}

	return database.NewConnection(config.DatabaseConfig{
		URL:                url,
		Driver:             driver,
		MaxConnections:     5,
		MaxIdleConnections: 2,
		ConnMaxLifetime:    5 * time.Minute,
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db.DB, newLogger())
			if err != nil {
				return err
			}
			if applied == 0 {
				fmt.Println("No pending migrations.")
				return nil
			}
			fmt.Printf("Applied %d migration(s).\n", applied)
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or promote the administrator account from ADMIN_EMAIL / ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				email = os.Getenv("ADMIN_EMAIL")
			}
			password := os.Getenv("ADMIN_PASSWORD")
			cost, _ := cmd.Flags().GetInt("bcrypt-cost")

			db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			logger := newLogger()
			// token signing is not used here; the secret only satisfies the constructor
			authService := services.NewAuthService(database.NewUserRepository(db.DB), jwt.NewService("unused", time.Minute), cost, logger)

			user, err := authService.SeedAdmin(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Administrator ready: %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "admin email (defaults to ADMIN_EMAIL)")
	cmd.Flags().Int("bcrypt-cost", 12, "bcrypt cost for the password hash")
	return cmd
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply the provider's session status to bookings",
		Long: "Reconcile one payment reference (--reference) or sweep every booking that has been " +
			"awaiting payment for longer than --stale-after.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reference, _ := cmd.Flags().GetString("reference")
			staleAfter, _ := cmd.Flags().GetDuration("stale-after")
			batch, _ := cmd.Flags().GetInt("batch-size")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Payment.Provider != "stripe" {
				return errors.New("reconcile needs PAYMENT_PROVIDER=stripe; sandbox sessions live in the server process")
			}

			db, err := database.NewConnection(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			logger := newLogger()
			reconciler := buildReconciler(cfg, db, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			if reference != "" {
				booking, err := reconciler.Reconcile(ctx, reference, models.RequestMeta{DeviceType: "cli"})
				if err != nil && !errors.Is(err, services.ErrCapacityExceeded) {
					return err
				}
				fmt.Printf("Booking %s is %s\n", booking.ID, booking.Status)
				return nil
			}

			changed, err := reconciler.SweepStale(ctx, staleAfter, batch)
			if err != nil {
				return err
			}
			fmt.Printf("Sweep finished, %d booking(s) changed.\n", changed)
			return nil
		},
	}
	cmd.Flags().String("reference", "", "payment reference (checkout session id) to reconcile")
	cmd.Flags().Duration("stale-after", 30*time.Minute, "sweep bookings awaiting payment for longer than this")
	cmd.Flags().Int("batch-size", 200, "maximum bookings to sweep")
	return cmd
}

func buildReconciler(cfg *config.Config, db *database.PostgresDB, logger *logrus.Logger) *services.ReconcileService {
	events := database.NewPaymentEventRepository(db.DB, logger)
	bookingRepo := database.NewBookingRepository(db.DB)
	unitRepo := database.NewUnitRepository(db.DB)

	gateway := payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.APIBaseURL, cfg.Payment.RequestTimeout, logger)
	audit := services.NewAuditService(events, logger)
	ledger := services.NewCapacityLedger(unitRepo, logger)
	payments := services.NewPaymentService(gateway, audit, cfg, logger)
	bookings := services.NewBookingService(bookingRepo, unitRepo, ledger, payments, audit,
		services.NewAuditRefundHook(events, logger), cfg, logger)
	return services.NewReconcileService(bookingRepo, bookings, payments, logger)
}

func setOccupancyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-occupancy <unit_id> <occupancy>",
		Short: "Correct a unit's occupancy counter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid unit id: %w", err)
			}
			occupancy, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid occupancy: %w", err)
			}

			db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			ledger := services.NewCapacityLedger(database.NewUnitRepository(db.DB), newLogger())
			unit, err := ledger.CorrectOccupancy(cmd.Context(), unitID, occupancy)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d/%d occupied, active=%t\n", unit.Title, unit.CurrentOccupancy, unit.Capacity, unit.IsActive)
			return nil
		},
	}
}

func clearDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-data",
		Short: "Delete all bookings, reviews, favorites and payment events and reset occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to clear data without --yes")
			}

			db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Println("Connected to database. Truncating tables...")

			tables := []string{"payment_events", "favorites", "reviews", "bookings"}
			err = database.WithTx(cmd.Context(), db.DB, func(tx *sqlx.Tx) error {
				if _, err := tx.ExecContext(cmd.Context(),
					`TRUNCATE TABLE payment_events, favorites, reviews, bookings RESTART IDENTITY`); err != nil {
					return fmt.Errorf("failed to truncate tables: %w", err)
				}
				if _, err := tx.ExecContext(cmd.Context(),
					`UPDATE accommodation_units SET current_occupancy = 0, is_active = TRUE, updated_at = NOW()`); err != nil {
					return fmt.Errorf("failed to reset occupancy: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Println("Post-clear row counts:")
			for _, t := range tables {
				var count int
				if err := db.QueryRowContext(cmd.Context(), fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
					fmt.Printf("  %s: error: %v\n", t, err)
					continue
				}
				fmt.Printf("  %s: %d\n", t, count)
			}
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm destructive operation")
	return cmd
}

func generateSecretsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-secrets",
		Short: "Print a fresh JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := utils.GenerateJWTSecret()
			if err != nil {
				return fmt.Errorf("failed to generate secret: %w", err)
			}
			fmt.Println("Add this to your .env file or secret store:")
			fmt.Println()
			fmt.Printf("JWT_SECRET=%s\n", secret)
			fmt.Println()
			fmt.Println("Keep it out of version control.")
			return nil
		},
	}
}
