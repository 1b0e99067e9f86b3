package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nexpat/clinicq/internal/config"
	formatHandler "github.com/nexpat/clinicq/internal/handler/format"
	"github.com/nexpat/clinicq/internal/handler/health"
	patientHandler "github.com/nexpat/clinicq/internal/handler/patient"
	prescriptionHandler "github.com/nexpat/clinicq/internal/handler/prescription"
	queueHandler "github.com/nexpat/clinicq/internal/handler/queue"
	userHandler "github.com/nexpat/clinicq/internal/handler/user"
	visitHandler "github.com/nexpat/clinicq/internal/handler/visit"
	"github.com/nexpat/clinicq/internal/middleware"
	"github.com/nexpat/clinicq/internal/registry"
	"github.com/nexpat/clinicq/internal/repository/postgres"
	"github.com/nexpat/clinicq/internal/router"
	formatService "github.com/nexpat/clinicq/internal/service/format"
	patientService "github.com/nexpat/clinicq/internal/service/patient"
	prescriptionService "github.com/nexpat/clinicq/internal/service/prescription"
	queueService "github.com/nexpat/clinicq/internal/service/queue"
	visitService "github.com/nexpat/clinicq/internal/service/visit"
	"github.com/nexpat/clinicq/pkg/auth"
	"github.com/nexpat/clinicq/pkg/blob"
	"github.com/nexpat/clinicq/pkg/logger"
	redisbroker "github.com/nexpat/clinicq/pkg/messaging/redis"
	"github.com/nexpat/clinicq/pkg/metrics"
)

func main() {
	logger.Setup(&logger.Config{Level: os.Getenv("LOG_LEVEL")})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	uploader, err := blob.NewS3Uploader(ctx, blob.Config{
		Bucket:    cfg.Blob.Bucket,
		Region:    cfg.Blob.Region,
		URLPrefix: cfg.Blob.URLPrefix,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob uploader")
	}

	var redisClient *redis.Client
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL})
	if err != nil {
		// The API can run without the display board feed.
		log.Warn().Err(err).Msg("redis unavailable, display board events are deferred to the worker")
	} else {
		defer broker.Close()
		redisClient = broker.Client()
	}

	m := metrics.NewMetrics("clinicq", "api")

	formatRepo := postgres.NewFormatRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)

	formatRegistry := registry.New(formatRepo)
	if _, err := formatRegistry.Get(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load registration number format")
	}

	formatSvc := formatService.NewService(formatRepo, formatRegistry, cfg.Format.Policy(), m)
	patientSvc := patientService.NewService(patientRepo, formatRegistry, m)
	visitSvc := visitService.NewService(visitRepo, patientRepo, queueRepo)
	queueSvc := queueService.NewService(queueRepo)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, visitRepo, uploader)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, 12*time.Hour, "clinicq")
	authMW := middleware.NewAuthMiddleware(jwtSvc)

	r := router.New(
		authMW,
		health.NewHandler(db, redisClient),
		userHandler.NewHandler(),
		patientHandler.NewHandler(patientSvc),
		visitHandler.NewHandler(visitSvc),
		queueHandler.NewHandler(queueSvc),
		prescriptionHandler.NewHandler(prescriptionSvc),
		formatHandler.NewHandler(formatSvc),
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			CacheTTL:       cfg.Cache.ResponseTTL,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "clinicq",
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
