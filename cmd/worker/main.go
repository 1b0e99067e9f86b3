package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/nexpat/clinicq/internal/config"
	"github.com/nexpat/clinicq/internal/repository/postgres"
	"github.com/nexpat/clinicq/pkg/logger"
	redisbroker "github.com/nexpat/clinicq/pkg/messaging/redis"
	"github.com/nexpat/clinicq/pkg/metrics"
	"github.com/nexpat/clinicq/pkg/worker"
)

// workerConfig is read from the environment; the worker runs headless and
// does not carry the API's config file.
type workerConfig struct {
	DatabaseHost     string        `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort     int           `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser     string        `envconfig:"DB_USER" default:"clinicq"`
	DatabasePassword string        `envconfig:"DB_PASSWORD" default:""`
	DatabaseName     string        `envconfig:"DB_NAME" default:"clinicq"`
	DatabaseSSLMode  string        `envconfig:"DB_SSLMODE" default:"disable"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	BatchSize        int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval     time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts    int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay       time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	RetentionPeriod  time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	MetricsPort      string        `envconfig:"METRICS_PORT" default:"9091"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}
	logger.Setup(&logger.Config{Level: cfg.LogLevel})

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Name:     cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.RedisURL})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("clinicq", "worker")
	processor := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(db),
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:       cfg.BatchSize,
			PollInterval:    cfg.PollInterval,
			RetryAttempts:   cfg.RetryAttempts,
			RetryDelay:      cfg.RetryDelay,
			RetentionPeriod: cfg.RetentionPeriod,
		},
		m,
	)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.MetricsPort, nil); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go processor.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()
}
