package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/repository/mongodb"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	internalworker "github.com/jwalitptl/hospital-api/internal/worker"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

func main() {
	var healthAddr string

	rootCmd := &cobra.Command{
		Use:   "hospital-worker",
		Short: "Relay outbox events, mail booking notices and prune old records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(healthAddr)
		},
	}
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "Address of the health and metrics listener")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(healthAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.StorageMongo {
		return fmt.Errorf("worker needs the %s storage driver, got %s", config.StorageMongo, cfg.Storage.Driver)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	}).WithFields(map[string]interface{}{"component": "worker"})

	m := metrics.NewMetrics(prometheus.DefaultRegisterer, "hospital")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connectCancel()

	db, err := postgres.NewDB(connectCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	store, err := mongodb.Connect(connectCtx, cfg.Mongo, m)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	broker, err := redis.NewRedisBroker(connectCtx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog(), m)
	if err != nil {
		return err
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, log, m)
	if err != nil {
		return err
	}

	notifier := internalworker.NewNotifier(mongodb.NewDoctorRepository(store), email.New(cfg.SMTP, log), log, m)
	if err := notifier.Start(ctx, broker); err != nil {
		return err
	}

	cleanup := internalworker.NewCleanupWorker(outboxRepo, auditRepo, internalworker.CleanupConfig{
		OutboxRetention:    cfg.Outbox.Retention,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		Interval:           cfg.Audit.CleanupEvery,
	}, log)

	srv := healthServer(healthAddr, map[string]handler.Pinger{"mongo": store, "postgres": &base})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health check server failed")
			cancel()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		log.Info("Shutting down...")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func healthServer(addr string, checks map[string]handler.Pinger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	h := handler.NewHandler(prometheus.DefaultGatherer, checks)
	h.RegisterRoutes(engine.Group(""))
	engine.GET("/metrics", h.MetricsHandler())

	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
