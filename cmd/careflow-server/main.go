package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ChristChad-mv/careflow-sub001/internal/config"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/alert"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/audit"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/dashboard"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/patient"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/staff"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/db"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/middleware"
)

// patientDirectoryAdapter narrows the patient repository to what the alert
// service needs, avoiding a direct dependency between the two domains.
type patientDirectoryAdapter struct {
	repo patient.Repository
}

func (a *patientDirectoryAdapter) IDsByNurse(ctx context.Context, hospitalID, nurseEmail string) ([]uuid.UUID, error) {
	return a.repo.IDsByNurse(ctx, hospitalID, nurseEmail)
}

func (a *patientDirectoryAdapter) Lookup(ctx context.Context, patientID uuid.UUID) (alert.PatientRef, error) {
	p, err := a.repo.GetByID(ctx, patientID)
	if err != nil {
		return alert.PatientRef{}, err
	}
	return alert.PatientRef{
		HospitalID: p.HospitalID,
		Name:       p.Name,
		NurseEmail: p.AssignedNurseEmail,
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "careflow-server",
		Short: "Clinical monitoring dashboard API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var rdb *redis.Client
	var counters middleware.CounterStore = middleware.NewMemoryCounterStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		counters = middleware.NewRedisCounterStore(rdb)
		logger.Info().Msg("rate limit counters backed by redis")
	}

	// Repositories and services
	staffRepo := staff.NewRepo(pool)
	auditRepo := audit.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)
	alertRepo := alert.NewRepo(pool)

	auditSvc := audit.NewService(auditRepo, logger)
	resolver := staff.NewResolver(staffRepo)
	staffSvc := staff.NewService(staffRepo, auditSvc)
	patientSvc := patient.NewService(patientRepo, auditSvc)
	alertSvc := alert.NewService(alertRepo, &patientDirectoryAdapter{repo: patientRepo}, auditSvc)
	dashboardSvc := dashboard.NewService(alertRepo, patientRepo)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Timeout(time.Duration(cfg.RequestTimeoutSecs) * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "X-CSRF-Token"},
		AllowCredentials: true,
	}))

	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.IsDev() && cfg.AuthDevSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthDevSigningKey)
	}

	limiter := middleware.NewRateLimiter(counters,
		time.Duration(cfg.RateLimitWindowSecs)*time.Second,
		map[middleware.RouteClass]int{
			middleware.ClassAPI:    cfg.RateLimitAPI,
			middleware.ClassAuth:   cfg.RateLimitAuth,
			middleware.ClassPublic: cfg.RateLimitPublic,
		})

	// Public surface
	e.GET("/health", db.HealthHandler(pool, rdb), limiter.Middleware(middleware.ClassPublic))

	// Browser API: token auth, tenant-scoped connections, CSRF protected.
	// Token issuance itself is unauthenticated and carries the public budget.
	apiV1 := e.Group("/api/v1")
	apiV1.GET("/csrf", middleware.CSRFTokenHandler(cfg.IsProduction()),
		limiter.Middleware(middleware.ClassPublic))
	apiV1.Use(limiter.Middleware(middleware.ClassAPI))
	apiV1.Use(auth.Middleware(jwtCfg, resolver))
	apiV1.Use(db.TenantScope(pool))
	apiV1.Use(middleware.CSRFGuard())

	auditHandler := audit.NewHandler(auditSvc)
	auditHandler.RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc).RegisterRoutes(apiV1)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)
	alertHandler := alert.NewHandler(alertSvc)
	alertHandler.RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	// Session recording gets the tighter auth budget.
	session := e.Group("/api/v1")
	session.Use(limiter.Middleware(middleware.ClassAuth))
	session.Use(auth.Middleware(jwtCfg, resolver))
	session.Use(middleware.CSRFGuard())
	auditHandler.RegisterSessionRoutes(session)

	// Agent API: key auth instead of tokens, no CSRF (no browser involved).
	// The agent drives the same alert, patient and interaction operations a
	// staff session does, through the identical services and checks.
	agent := e.Group("/api/agent")
	agent.Use(limiter.Middleware(middleware.ClassAPI))
	agent.Use(auth.AgentKeyMiddleware(cfg.AgentAPIKeyHash, resolver))
	agent.Use(db.TenantScope(pool))
	alertHandler.RegisterRoutes(agent)
	patientHandler.RegisterRoutes(agent)

	// Start server with graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "directory containing .sql migration files")

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, os.DirFS(dir)))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				return m.Up(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				applied, pending, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, v := range applied {
					fmt.Printf("applied  %s\n", v)
				}
				for _, v := range pending {
					fmt.Printf("pending  %s\n", v)
				}
				return nil
			})
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed development data for two hospitals",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			staffRepo := staff.NewRepo(pool)
			patientRepo := patient.NewRepo(pool)
			alertRepo := alert.NewRepo(pool)

			for _, u := range []*staff.User{
				{Email: "nurse.riley@stmarys.example", Name: "Riley Okafor", Role: auth.RoleNurse, HospitalID: "st-marys"},
				{Email: "coord.tan@stmarys.example", Name: "Mei Tan", Role: auth.RoleCoordinator, HospitalID: "st-marys"},
				{Email: "admin@stmarys.example", Name: "Sam Whitfield", Role: auth.RoleAdmin, HospitalID: "st-marys"},
				{Email: "nurse.ade@northgate.example", Name: "Ade Bello", Role: auth.RoleNurse, HospitalID: "northgate"},
				{Email: "agent@careflow.internal", Name: "Monitoring Agent", Role: auth.RoleCoordinator, HospitalID: "st-marys", ServiceAccount: true},
			} {
				if err := staffRepo.Create(ctx, u); err != nil {
					return fmt.Errorf("seed user %s: %w", u.Email, err)
				}
			}

			seedPatients := []*patient.Patient{
				{
					HospitalID: "st-marys", Name: "Jordan Park", Phone: "+1-555-0101",
					Diagnosis: "post-op knee replacement", RiskLevel: "RED",
					Brief:     "Reported swelling and pain above baseline on day 3.",
					DischargePlan: &patient.DischargePlan{
						Medications:      []patient.Medication{{Name: "apixaban", Dosage: "5mg", Frequency: "twice daily"}},
						CriticalSymptoms: []string{"calf swelling", "shortness of breath"},
						WarningSymptoms:  []string{"incision redness"},
					},
					AssignedNurseName: "Riley Okafor", AssignedNurseEmail: "nurse.riley@stmarys.example",
				},
				{
					HospitalID: "st-marys", Name: "Casey Nguyen", Phone: "+1-555-0102",
					Diagnosis: "cardiac monitoring", RiskLevel: "YELLOW",
					AssignedNurseName: "Riley Okafor", AssignedNurseEmail: "nurse.riley@stmarys.example",
				},
				{
					HospitalID: "northgate", Name: "Alex Dube",
					Diagnosis: "observation", RiskLevel: "GREEN",
					AssignedNurseName: "Ade Bello", AssignedNurseEmail: "nurse.ade@northgate.example",
				},
			}
			for _, p := range seedPatients {
				if err := patientRepo.Create(ctx, p); err != nil {
					return fmt.Errorf("seed patient %s: %w", p.Name, err)
				}
			}

			for i, a := range []*alert.Alert{
				{HospitalID: "st-marys", PatientID: seedPatients[0].ID, PatientName: seedPatients[0].Name, Trigger: "heart rate above threshold", Brief: "Resting heart rate exceeded 110 bpm for over an hour.", Priority: "RED", Status: alert.StatusActive},
				{HospitalID: "st-marys", PatientID: seedPatients[1].ID, PatientName: seedPatients[1].Name, Trigger: "potassium trending low", Brief: "Last two lab draws show potassium trending below range.", Priority: "YELLOW", Status: alert.StatusActive},
				{HospitalID: "northgate", PatientID: seedPatients[2].ID, PatientName: seedPatients[2].Name, Trigger: "routine check complete", Brief: "Scheduled follow-up call completed without findings.", Priority: "GREEN", Status: alert.StatusResolved, ResolutionNote: "no action needed"},
			} {
				if err := alertRepo.Create(ctx, a); err != nil {
					return fmt.Errorf("seed alert %d: %w", i, err)
				}
			}

			logger.Info().Msg("seeded development data")
			return nil
		},
	}
}
