package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"example.com/exercisetracker/internal/api"
	"example.com/exercisetracker/internal/config"
	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/logging"
	"example.com/exercisetracker/internal/outbox"
	"example.com/exercisetracker/internal/persistence/memory"
	"example.com/exercisetracker/internal/persistence/mongodb"
	"example.com/exercisetracker/internal/persistence/postgres"
	httptransport "example.com/exercisetracker/internal/transport/http"
)

type closableStore interface {
	domain.Store
	Close(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, "exercise-tracker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}

	var dispatcher *outbox.Dispatcher
	var producer *outbox.KafkaProducer
	if cfg.OutboxEnabled {
		producer = outbox.NewKafkaProducer(cfg.KafkaBrokers)
		dispatcher = outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	}

	service := domain.NewService(store, domain.WithStoreTimeout(cfg.StoreTimeout))

	mux := http.NewServeMux()
	api.NewHandler(service).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:         cfg.HTTPAddress,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}, httptransport.Chain(mux,
		httptransport.WithRequestLogging(logger),
		httptransport.WithRecovery,
		httptransport.WithMetrics(mux),
		httptransport.WithCORS(cfg.CORSAllowedOrigins),
	))

	log.Info().Str("addr", cfg.HTTPAddress).Str("driver", cfg.StoreDriver).Msg("exercise tracker listening")
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("shutting down")
	stop()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer closeCancel()

	if dispatcher != nil {
		dispatcher.Wait()
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("kafka producer close failed")
		}
	}

	if err := store.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("store close failed")
	}
}

// openStore builds the configured Record Store. The pool is only non-nil for
// the postgres driver, which is also the only driver that can feed the outbox.
func openStore(ctx context.Context, cfg config.Config) (closableStore, *pgxpool.Pool, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewStore(), nil, nil
	case config.DriverMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}

		var opts []postgres.Option
		if cfg.OutboxEnabled {
			opts = append(opts, postgres.WithOutbox())
		}
		repo := postgres.NewRepository(pool, opts...)
		if cfg.PostgresMigrate {
			if err := repo.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repo, pool, nil
	}
}
