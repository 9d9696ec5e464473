package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nssukenkyu-prog/SCC-reception-system/cmd/mainconfig"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/api/router"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/clinictime"
	appconfig "github.com/nssukenkyu-prog/SCC-reception-system/internal/config"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/events"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/observability/metrics"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/patients"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/status"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/visits"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

func main() {
	// A missing .env is fine in deployed environments.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reception API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	clock, err := clinictime.New(cfg.ClinicTimezone)
	if err != nil {
		logger.Warn("clinic timezone unavailable, using UTC", "timezone", cfg.ClinicTimezone, "error", err)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	recMetrics := metrics.NewReceptionMetrics(nil)
	bus := events.NewRedisBus(redisClient, logger)

	// Repositories.
	patientRepo := patients.NewDynamoRepository(dynamoClient, cfg.ReceptionTable)
	visitRepo := visits.NewDynamoRepository(dynamoClient, cfg.ReceptionTable)
	statusRepo := status.NewDynamoRepository(dynamoClient, cfg.ReceptionTable)
	statusCache := status.NewCache(redisClient, nil)

	// Identity.
	sessions := identity.NewSessions(cfg.SessionJWTSecret, cfg.SessionTTL)
	platform := identity.NewPlatformClient(cfg.PlatformProfileURL, cfg.PlatformTimeout)
	staffAuth := identity.NewStaffAuthenticator(cfg.StaffEmail, cfg.StaffPasswordSHA)
	identityHandler := identity.NewHandler(platform, sessions, staffAuth, logger)

	// Patient directory.
	verifier := patients.NewVerifier(cfg.VerifyStrategy, patientRepo)
	patientService := patients.NewService(patientRepo, verifier, visitRepo, bus, clock, recMetrics, logger)
	importer := patients.NewImporter(patientRepo, clock.Now)
	patientsHandler := patients.NewHandler(patientService, importer, logger)

	// Visit queue.
	visitService := visits.NewService(visitRepo, patientRepo, bus, clock, recMetrics, logger)
	visitsHandler := visits.NewHandler(visitService, patientService, logger)
	visitsStream := visits.NewStream(visitService, bus, logger)

	// Public status aggregate.
	estimator, err := status.NewEstimator(cfg.EstimatorStrategy, cfg.DefaultServiceMinutes)
	if err != nil {
		logger.Error("invalid estimator strategy", "error", err)
		os.Exit(1)
	}
	statusWorker := status.NewWorker(visitService, estimator, statusRepo, statusCache, bus, clock, recMetrics, logger)
	statusHandler := status.NewHandler(statusRepo, statusCache, bus, clock, logger)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go statusWorker.Run(workerCtx)

	r := router.New(&router.Config{
		Logger:             logger,
		Sessions:           sessions,
		IdentityHandler:    identityHandler,
		PatientsHandler:    patientsHandler,
		VisitsHandler:      visitsHandler,
		VisitsStream:       visitsStream,
		StatusHandler:      statusHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// The websocket endpoints hold connections open, so only the header
	// read gets a deadline.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
