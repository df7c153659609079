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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"example.com/babylog/internal/api"
	"example.com/babylog/internal/auth"
	"example.com/babylog/internal/cache"
	"example.com/babylog/internal/config"
	"example.com/babylog/internal/consumer"
	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
	"example.com/babylog/internal/journal"
	"example.com/babylog/internal/logger"
	"example.com/babylog/internal/outbox"
	"example.com/babylog/internal/persistence/memory"
	persistence "example.com/babylog/internal/persistence/postgres"
	httptransport "example.com/babylog/internal/transport/http"
)

func main() {
	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = "babylog-api"
	}
	logger.Init(opts)
	log := logger.Get()

	cfg := config.Load()
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store domain.ActivityStore
		pool  *pgxpool.Pool
	)
	if cfg.PostgresURL != "" {
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()
		store = persistence.NewRepository(pool)
	} else {
		log.Warn().Msg("POSTGRES_URL not set, using in-memory store")
		store = memory.NewStore()
	}

	days := cache.NewDayCache(daily.NewFetcher(store, loc), cache.WithLocation(loc))
	service := journal.NewService(store, days, loc, journal.WithTTL(cfg.CacheTTL))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		days.RunSweeper(gctx, cfg.CacheSweepInterval, func(removed int) {
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("day cache swept")
			}
		})
		return nil
	})

	if cfg.EventsEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		g.Go(func() error {
			dispatcher.Start(gctx)
			return nil
		})

		// Every replica needs every change, so each one consumes under its own group.
		groupID := fmt.Sprintf("%s-%s", cfg.ConsumerGroupPrefix, replicaID())
		reader := consumer.NewKafkaReader(cfg.KafkaBrokers, cfg.InvalidationTopic, groupID)
		defer reader.Close()

		processor := consumer.NewProcessor(reader, consumer.NewInvalidationHandler(days, loc))
		g.Go(func() error {
			if err := processor.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("invalidation consumer: %w", err)
			}
			return nil
		})
		log.Info().Str("group_id", groupID).Str("topic", cfg.InvalidationTopic).Msg("cross-replica invalidation enabled")
	}

	router := httptransport.NewRouter(cfg.CORSAllowedOrigins)
	api.NewHandler(service).RegisterRoutes(router, auth.NewMiddleware(auth.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}, nil))

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, router)
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddress).Str("timezone", loc.String()).Msg("babylog api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddress).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("babylog api stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("babylog api stopped")
}

func replicaID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "-" + uuid.NewString()[:8]
	}
	return uuid.NewString()
}
