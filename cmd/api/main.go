package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/handler"
	audithandler "github.com/jwalitptl/hospital-api/internal/handler/audit"
	"github.com/jwalitptl/hospital-api/internal/handler/catalog"
	doctorhandler "github.com/jwalitptl/hospital-api/internal/handler/doctor"
	patienthandler "github.com/jwalitptl/hospital-api/internal/handler/patient"
	surgeryhandler "github.com/jwalitptl/hospital-api/internal/handler/surgery"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/repository/mongodb"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/internal/router"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
	"github.com/jwalitptl/hospital-api/internal/service"
	auditservice "github.com/jwalitptl/hospital-api/internal/service/audit"
	catalogservice "github.com/jwalitptl/hospital-api/internal/service/catalog"
	doctorservice "github.com/jwalitptl/hospital-api/internal/service/doctor"
	eventservice "github.com/jwalitptl/hospital-api/internal/service/event"
	patientservice "github.com/jwalitptl/hospital-api/internal/service/patient"
	surgeryservice "github.com/jwalitptl/hospital-api/internal/service/surgery"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-api",
		Short: "Hospital records and surgery scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(setupCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the document indexes and the outbox and audit tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if cfg.Storage.Driver == config.StorageMemory {
				log.Info("memory storage needs no setup")
				return nil
			}

			store, err := mongodb.Connect(ctx, cfg.Mongo, nil)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())
			if err := store.EnsureIndexes(ctx); err != nil {
				return err
			}
			log.Info("document indexes ready", "database", cfg.Mongo.Database)

			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			base := postgres.NewBaseRepository(db)
			if err := base.Migrate(ctx); err != nil {
				return err
			}
			log.Info("outbox and audit tables ready", "database", cfg.Database.Name)
			return nil
		},
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
	// Request middleware logs through the global logger.
	zlog.Logger = *l.Zerolog()
	return l
}

// stores are the repositories selected by the storage driver.
type stores struct {
	doctors   repository.DoctorRepository
	patients  repository.PatientRepository
	surgeries repository.SurgeryRepository
	bookings  repository.BookingRepository
	outbox    repository.OutboxRepository
	audit     repository.AuditRepository
	checks    map[string]handler.Pinger
	closers   []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, m *metrics.Metrics, loc *time.Location) (*stores, error) {
	s := &stores{checks: map[string]handler.Pinger{}}

	if cfg.Storage.Driver == config.StorageMemory {
		store := memory.NewStore()
		s.doctors = memory.NewDoctorRepository(store)
		s.patients = memory.NewPatientRepository(store)
		s.surgeries = memory.NewSurgeryRepository(store)
		s.bookings = memory.NewBookingRepository(store, loc)
		return s, nil
	}

	store, err := mongodb.Connect(ctx, cfg.Mongo, m)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = store.Close(context.Background()) })
	s.doctors = mongodb.NewDoctorRepository(store)
	s.patients = mongodb.NewPatientRepository(store)
	s.surgeries = mongodb.NewSurgeryRepository(store)
	s.bookings = mongodb.NewBookingRepository(store, loc)
	s.checks["mongo"] = store

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = db.Close() })
	s.setPostgres(db)
	return s, nil
}

func (s *stores) setPostgres(db *sqlx.DB) {
	base := postgres.NewBaseRepository(db)
	s.outbox = postgres.NewOutboxRepository(base)
	s.audit = postgres.NewAuditRepository(base)
	s.checks["postgres"] = &base
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer, "hospital")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStores(ctx, cfg, m, loc)
	cancel()
	if err != nil {
		return err
	}
	defer st.close()

	var tracker *service.Tracker
	var auditSvc *auditservice.Service
	if st.outbox != nil {
		auditSvc = auditservice.NewService(st.audit)
		tracker = service.NewTracker(eventservice.NewService(st.outbox), auditSvc, log)
	} else {
		tracker = service.NewTracker(nil, nil, log)
	}

	doctorSvc := doctorservice.NewService(st.doctors, st.surgeries, tracker, cfg.Cache.DoctorTTL, loc)
	patientSvc := patientservice.NewService(st.patients, st.surgeries, tracker, loc)
	surgerySvc := surgeryservice.NewService(
		st.surgeries,
		st.doctors,
		st.patients,
		st.bookings,
		scheduling.NewGuard(loc),
		tracker,
		m,
		log.WithFields(map[string]interface{}{"component": "surgery"}),
	)
	catalogSvc := catalogservice.NewService(st.doctors, st.patients, st.surgeries)

	templates, err := catalog.Templates(loc)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	handlers := router.Handlers{
		Base:      handler.NewHandler(prometheus.DefaultGatherer, st.checks),
		Doctors:   doctorhandler.NewHandler(doctorSvc),
		Patients:  patienthandler.NewHandler(patientSvc),
		Surgeries: surgeryhandler.NewHandler(surgerySvc),
		Catalog:   catalog.NewHandler(catalogSvc, doctorSvc, patientSvc, surgerySvc, loc),
		Templates: templates,
	}
	if auditSvc != nil {
		handlers.Audit = audithandler.NewHandler(auditSvc)
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	if len(cfg.CORS.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.CORS.AllowedHeaders
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTS = cfg.Security.HSTS
	security.HSTSMaxAge = cfg.Security.HSTSMaxAge
	security.HSTSIncludeSubdomains = cfg.Security.HSTSIncludeSubdomains
	security.FrameDeny = cfg.Security.FrameDeny

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		CORSConfig:     corsConfig,
		Security:       &security,
		RequestTimeout: cfg.Server.RequestTimeout,
		BodyLimit:      cfg.Server.BodyLimit,
		MetricsEnabled: cfg.Monitoring.PrometheusEnabled,
		MetricsPath:    cfg.Monitoring.MetricsPath,
		MetricsPrefix:  "hospital_http",
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
		routerConfig.RateIdle = cfg.RateLimit.IdleTimeout
	}

	r := router.NewRouter(handlers, routerConfig)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "storage", cfg.Storage.Driver, "time_zone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
