package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"example.com/exercisetracker/internal/config"
	"example.com/exercisetracker/internal/consumer"
	"example.com/exercisetracker/internal/logging"
	"example.com/exercisetracker/internal/persistence/postgres"
	httptransport "example.com/exercisetracker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, "exercise-tracker-consumer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if cfg.PostgresMigrate {
		if err := postgres.NewRepository(pool).Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	handler := consumer.NewPersistenceHandler(pool)

	metricsSrv := httptransport.NewServer(httptransport.ServerConfig{
		Address:         cfg.MetricsAddress,
		ShutdownTimeout: 10 * time.Second,
	}, promhttp.Handler())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.MetricsAddress).Msg("consumer metrics listening")
		if err := metricsSrv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		topicLogger := logger.With().Str("topic", topic).Logger()
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(topicLogger))

		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			topicLogger.Info().Str("group", cfg.ConsumerGroupID).Msg("consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				topicLogger.Error().Err(err).Msg("consumer stopped with error")
			}
		}(reader)
	}

	<-ctx.Done()
	log.Info().Msg("consumer shutdown requested")
	wg.Wait()
}
