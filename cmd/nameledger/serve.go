package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "nameledger/internal/http"
	jwttoken "nameledger/internal/jwt_token"
	"nameledger/internal/platform/config"
	"nameledger/internal/platform/httpserver"
	"nameledger/internal/platform/kafka"
	platformmetrics "nameledger/internal/platform/metrics"
	platformredis "nameledger/internal/platform/redis"
	"nameledger/internal/registry"
	"nameledger/internal/registry/cache"
	"nameledger/internal/registry/events"
	"nameledger/internal/registry/metrics"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	"nameledger/internal/registry/store/memory"
	"nameledger/internal/registry/store/postgres"
	"nameledger/internal/registry/store/postgres/migrations"
	id "nameledger/pkg/domain"
	"nameledger/pkg/platform/circuit"
)

const kafkaPartitions = 3

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

// serve wires every dependency and blocks until ctx is cancelled or a
// component fails.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.New(reg)
	checks := map[string]httpapi.HealthCheck{}

	ledger, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	resolveCache, closeCache, err := openCache(ctx, cfg, ledgerMetrics, checks)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher, worker, closeKafka, err := openPublisher(ctx, cfg, log, ledgerMetrics, checks)
	if err != nil {
		return err
	}
	defer closeKafka()

	deps := registry.Deps{
		Store:     ledger,
		Admin:     id.Identity(cfg.Ledger.AdminIdentity),
		Logger:    log,
		Publisher: publisher,
		Metrics:   ledgerMetrics,
	}
	if resolveCache != nil {
		deps.Cache = resolveCache
	}
	module, err := registry.New(deps)
	if err != nil {
		return err
	}

	seeds := make([]models.TldEntry, 0, len(cfg.Ledger.Tlds))
	for _, s := range cfg.Ledger.Tlds {
		seeds = append(seeds, models.TldEntry{TLD: s.TLD, FeeMultiplier: s.Multiplier})
	}
	seeded, err := module.Bootstrap(ctx, models.Amount(cfg.Ledger.BaseFee), seeds)
	if err != nil {
		return fmt.Errorf("bootstrapping ledger: %w", err)
	}
	log.Info("ledger ready", "seeded", seeded, "tlds", len(seeds))

	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key")
	}
	if cfg.Server.DevIdentityHeader {
		log.Warn("X-Caller-Identity header is trusted; do not enable outside development")
	}

	router := httpapi.NewRouter(httpapi.Config{
		Logger:            log,
		Handler:           module.Handler,
		Validator:         jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)),
		DevIdentityHeader: cfg.Server.DevIdentityHeader,
		RequestTimeout:    cfg.Server.RequestTimeout,
		HTTPMetrics:       platformmetrics.New(reg),
		Gatherer:          reg,
		Checks:            checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// openStore picks Postgres when a database URL is configured and the
// in-memory ledger otherwise.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]httpapi.HealthCheck) (store.Tx, func(), error) {
	if cfg.Database.URL == "" {
		return memory.New(memory.WithTimeout(cfg.Ledger.TxTimeout)), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	checks["postgres"] = db.PingContext
	return postgres.New(db, postgres.WithTimeout(cfg.Ledger.TxTimeout)), func() { _ = db.Close() }, nil
}

// openCache returns nil when Redis is not configured.
func openCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checks map[string]httpapi.HealthCheck) (*cache.RedisCache, func(), error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, func() {}, nil
	}
	checks["redis"] = client.Health

	c := cache.NewRedis(client,
		cache.WithTTL(cfg.Redis.CacheTTL),
		cache.WithMetrics(m),
		cache.WithBreaker(circuit.New("redis", circuit.WithFailureThreshold(5), circuit.WithCooldown(10*time.Second))),
	)
	return c, func() { _ = client.Close() }, nil
}

// openPublisher always logs notifications. With brokers configured it also
// buffers them for a worker that produces to Kafka.
func openPublisher(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics, checks map[string]httpapi.HealthCheck) (events.Publisher, *events.Worker, func(), error) {
	logPublisher := events.NewLogPublisher(log)

	client, err := kafka.NewProducer(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if client == nil {
		return logPublisher, nil, func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, kafkaPartitions); err != nil {
		client.Close()
		return nil, nil, nil, err
	}
	checks["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, client) }

	async := events.NewAsyncPublisher(
		events.WithBufferSize(cfg.Kafka.BufferSize),
		events.WithMetrics(m),
		events.WithLogger(log),
	)
	worker := async.Worker(events.NewKafkaSink(client, cfg.Kafka.Topic))
	return events.Fanout{logPublisher, async}, worker, client.Close, nil
}
