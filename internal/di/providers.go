package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	domrepo "DemandLoop/internal/domain/repository"
	domservice "DemandLoop/internal/domain/service"
	"DemandLoop/internal/handler/api"
	mid "DemandLoop/internal/middleware"
	internalrepo "DemandLoop/internal/repository"
	"DemandLoop/internal/repository/migrations"
	"DemandLoop/internal/service/cache"
	"DemandLoop/internal/service/live"
	svcmetrics "DemandLoop/internal/service/metrics"
	"DemandLoop/internal/service/ratelimit"
	"DemandLoop/internal/usecase"
	pkgch "DemandLoop/pkg/clickhouse"
	"DemandLoop/pkg/config"
	xhttp "DemandLoop/pkg/http"
	pkgkafka "DemandLoop/pkg/kafka"
	applogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/metrics"
	"DemandLoop/pkg/postgres"
	"DemandLoop/pkg/server"
)

const initTimeout = 10 * time.Second

// Stores groups the persistence backends selected by storage.driver.
type Stores struct {
	Venues      domrepo.VenueStore
	Signals     domrepo.SignalStore
	Predictions domrepo.PredictionStore
	// DB is nil for the in-memory driver.
	DB domrepo.Pinger
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvidePostgresPool connects and migrates PostgreSQL. Returns nil for storage.driver=memory.
func ProvidePostgresPool(cfg *config.Config, l *applogger.Logger) (*postgres.Pool, error) {
	if cfg.Storage.Driver != "postgres" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx,
		postgres.WithDSN(cfg.Postgres.DSN),
		postgres.WithMaxConns(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
		postgres.WithConnectTimeout(cfg.Postgres.ConnectTimeout),
		postgres.WithMaxConnLifetime(cfg.Postgres.ConnLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if !cfg.Postgres.SkipMigrations {
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		l.Info("postgres migrations applied")
	}
	return pool, nil
}

// ProvideStores selects PostgreSQL stores when a pool exists, in-memory ones otherwise.
// The memory driver is seeded from storage.seed_file when set.
func ProvideStores(cfg *config.Config, pool *postgres.Pool, l *applogger.Logger) (Stores, error) {
	if pool != nil {
		return Stores{
			Venues:      internalrepo.NewPostgresVenueStore(pool),
			Signals:     internalrepo.NewPostgresSignalStore(pool),
			Predictions: internalrepo.NewPostgresPredictionStore(pool),
			DB:          pool,
		}, nil
	}
	stores := Stores{
		Venues:      internalrepo.NewMemoryVenueStore(),
		Signals:     internalrepo.NewMemorySignalStore(),
		Predictions: internalrepo.NewMemoryPredictionStore(),
	}
	if cfg.Storage.SeedFile == "" {
		return stores, nil
	}
	f, err := os.Open(cfg.Storage.SeedFile)
	if err != nil {
		return Stores{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	seeder := usecase.NewSeedUseCase(stores.Venues, stores.Predictions, usecase.WithLogger(l))
	if _, err := seeder.SeedVenues(context.Background(), f); err != nil {
		return Stores{}, fmt.Errorf("seed memory store: %w", err)
	}
	return stores, nil
}

// ProvideRedisClient connects to Redis when enabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

// ProvideRateLimiter backs the check-in limiter with Redis or process memory.
func ProvideRateLimiter(cfg *config.Config, rc *redis.Client) *ratelimit.Limiter {
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimit.Backend == "redis" && rc != nil {
		store = ratelimit.NewRedisStore(rc, "demand:checkin:")
	}
	return ratelimit.New(store, cfg.RateLimit.Max, cfg.RateLimit.Window)
}

// ProvideResponseCache shares cached responses through Redis when it is available.
func ProvideResponseCache(rc *redis.Client) cache.BytesCache {
	if rc != nil {
		return cache.NewRedisCache(rc, "demand:resp:")
	}
	return cache.NewTTLCache()
}

// ProvideClickHouseClient creates a ClickHouse client and the history table. Returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePredictionArchive returns the ClickHouse archive, or a no-op one without ClickHouse.
func ProvidePredictionArchive(ch *pkgch.Client, l *applogger.Logger) domrepo.PredictionArchive {
	if ch == nil {
		return internalrepo.NopArchive{}
	}
	return internalrepo.NewCHPredictionArchive(ch, l)
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideHub creates the live WebSocket hub.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *live.Hub {
	return live.NewHub(l.With(applogger.String("component", "live")),
		live.WithSendBuffer(cfg.Live.SendBuffer),
		live.WithPingInterval(cfg.Live.PingInterval),
	)
}

// ProvidePredictionPublisher fans predictions out to live clients and, when enabled, Kafka.
func ProvidePredictionPublisher(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	hub *live.Hub,
	l *applogger.Logger,
) domrepo.PredictionPublisher {
	pubs := internalrepo.FanoutPublisher{hub}
	if producer != nil {
		pubs = append(pubs, kafkaPublisher(cfg, producer, l))
	}
	return pubs
}

// ProvideBatchPublisher publishes to Kafka only; batch runs have no live clients.
func ProvideBatchPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) domrepo.PredictionPublisher {
	if producer == nil {
		return internalrepo.FanoutPublisher(nil)
	}
	return kafkaPublisher(cfg, producer, l)
}

func kafkaPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) *internalrepo.KafkaPredictionPublisher {
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.PredictionsTopic,
		internalrepo.BreakerSettings{
			FailureThreshold: cfg.Kafka.Breaker.FailureThreshold,
			MaxRequests:      cfg.Kafka.Breaker.MaxRequests,
			Timeout:          cfg.Kafka.Breaker.Timeout,
		}, l)
}

func useCaseOptions(l *applogger.Logger, m domrepo.Metrics) []usecase.Option {
	return []usecase.Option{usecase.WithLogger(l), usecase.WithMetrics(m)}
}

// ProvideRecomputeUseCase creates the recompute orchestrator.
func ProvideRecomputeUseCase(
	cfg *config.Config,
	stores Stores,
	archive domrepo.PredictionArchive,
	publisher domrepo.PredictionPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.RecomputeUseCase {
	return usecase.NewRecomputeUseCase(
		stores.Venues, stores.Signals, stores.Predictions, archive, publisher,
		usecase.RecomputeConfig{Window: cfg.Recompute.Window, Workers: cfg.Recompute.Workers},
		useCaseOptions(l.With(applogger.String("component", "recompute")), m)...,
	)
}

// ProvideRecomputePipeline builds the throttled background recompute queue.
func ProvideRecomputePipeline(
	cfg *config.Config,
	r domservice.Recomputer,
	m domrepo.Metrics,
	l *applogger.Logger,
) *mid.RecomputePipeline {
	return mid.NewRecomputePipeline(r,
		mid.WithThrottle(cfg.Recompute.VenueThrottle),
		mid.WithWorkers(cfg.Recompute.Workers),
		mid.WithPipelineLogger(l.With(applogger.String("component", "pipeline"))),
		mid.WithPipelineMetrics(m),
	)
}

// ProvideCheckinUseCase creates the check-in use case.
func ProvideCheckinUseCase(
	stores Stores,
	limiter *ratelimit.Limiter,
	r domservice.Recomputer,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.CheckinUseCase {
	return usecase.NewCheckinUseCase(stores.Venues, stores.Signals, stores.Predictions, limiter, r,
		useCaseOptions(l.With(applogger.String("component", "checkin")), m)...)
}

func ProvidePlacesUseCase(stores Stores, m domrepo.Metrics, l *applogger.Logger) *usecase.PlacesUseCase {
	return usecase.NewPlacesUseCase(stores.Venues, stores.Predictions, useCaseOptions(l, m)...)
}

func ProvidePlaceDetailUseCase(stores Stores, m domrepo.Metrics, l *applogger.Logger) *usecase.PlaceDetailUseCase {
	return usecase.NewPlaceDetailUseCase(stores.Venues, stores.Predictions, useCaseOptions(l, m)...)
}

func ProvideTrendingUseCase(cfg *config.Config, stores Stores, m domrepo.Metrics, l *applogger.Logger) *usecase.TrendingUseCase {
	return usecase.NewTrendingUseCase(stores.Venues, stores.Signals, stores.Predictions, cfg.Recompute.Workers,
		useCaseOptions(l, m)...)
}

func ProvideHistoryUseCase(stores Stores, archive domrepo.PredictionArchive, m domrepo.Metrics, l *applogger.Logger) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(stores.Venues, archive, useCaseOptions(l, m)...)
}

// ProvideSignalIngestHandler consumes the signals topic and schedules recomputes on the pipeline.
func ProvideSignalIngestHandler(
	cfg *config.Config,
	stores Stores,
	pipeline *mid.RecomputePipeline,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.SignalIngestHandler {
	return usecase.NewSignalIngestHandler(cfg.Kafka.SignalsTopic, stores.Venues, stores.Signals, pipeline,
		useCaseOptions(l.With(applogger.String("component", "ingest")), m)...)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. Returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	cl := l.With(applogger.String("component", "kafka"))
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(cl),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.HookFuncs{
		DeadLetter: func(_ context.Context, topic string, km kafkago.Message, err error) {
			m.RecordError("signal_dead_letter")
			cl.Warn("signal dead-lettered",
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			)
		},
	})
	return consumer, nil
}

// ProvideHandlers builds every HTTP route group.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	stores Stores,
	places *usecase.PlacesUseCase,
	detail *usecase.PlaceDetailUseCase,
	trending *usecase.TrendingUseCase,
	history *usecase.HistoryUseCase,
	checkin *usecase.CheckinUseCase,
	r domservice.Recomputer,
	bc cache.BytesCache,
	hub *live.Hub,
) []xhttp.Handler {
	hl := l.With(applogger.String("component", "http"))
	return []xhttp.Handler{
		api.NewSystemHandler(hl, places, stores.DB, r, cfg.Dev.RecomputeEnabled),
		api.NewDemandHandler(hl, places, detail, trending, history, bc, cfg.Cache.TrendingTTL),
		api.NewCheckinHandler(hl, checkin),
		api.NewLiveHandler(hl, hub),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(l, handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
	)
}

// ProvideApp creates the application server and registers infrastructure for closing.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	pipeline *mid.RecomputePipeline,
	r domservice.Recomputer,
	hub *live.Hub,
	limiter *ratelimit.Limiter,
	consumer *pkgkafka.Consumer,
	ingest *usecase.SignalIngestHandler,
	pool *postgres.Pool,
	rc *redis.Client,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	archive domrepo.PredictionArchive,
	bc cache.BytesCache,
) *server.App {
	app := server.New(cfg, l, srv, pipeline, r, hub, limiter)
	if ttl, ok := bc.(*cache.TTLCache); ok {
		app.Every(cfg.Cache.TrendingTTL, func(context.Context) { ttl.Purge() })
	}
	if consumer != nil {
		app.SetConsumer(consumer, ingest)
	}
	if pool != nil {
		app.AddCloser("postgres", func() error {
			pool.Close()
			return nil
		})
	}
	if rc != nil {
		app.AddCloser("redis", rc.Close)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	app.AddCloser("archive", archive.Close)
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	return app
}

// RecomputeJob is a one-shot recompute pass together with the infrastructure it opened.
type RecomputeJob struct {
	Recomputer domservice.Recomputer
	closers    []func() error
}

// Close releases the job's connections in reverse order of opening.
func (j *RecomputeJob) Close() error {
	var errs []error
	for i := len(j.closers) - 1; i >= 0; i-- {
		if err := j.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ProvideRecomputeJob(
	r *usecase.RecomputeUseCase,
	pool *postgres.Pool,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) *RecomputeJob {
	j := &RecomputeJob{Recomputer: r}
	if pool != nil {
		j.closers = append(j.closers, func() error {
			pool.Close()
			return nil
		})
	}
	if ch != nil {
		j.closers = append(j.closers, ch.Close)
	}
	if producer != nil {
		j.closers = append(j.closers, producer.Close)
	}
	return j
}
