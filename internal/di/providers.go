package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"OmniTrackIQ/internal/domain/repository"
	"OmniTrackIQ/internal/handler/api"
	internalrepo "OmniTrackIQ/internal/repository"
	"OmniTrackIQ/internal/service/cache"
	svcmetrics "OmniTrackIQ/internal/service/metrics"
	"OmniTrackIQ/internal/service/ratelimit"
	"OmniTrackIQ/internal/services/attribution"
	"OmniTrackIQ/internal/usecase"
	pkgcache "OmniTrackIQ/pkg/cache"
	pkgch "OmniTrackIQ/pkg/clickhouse"
	"OmniTrackIQ/pkg/config"
	xhttp "OmniTrackIQ/pkg/http"
	pkgkafka "OmniTrackIQ/pkg/kafka"
	applogger "OmniTrackIQ/pkg/logger"
	"OmniTrackIQ/pkg/metrics"
	apptrace "OmniTrackIQ/pkg/otel"
	pkgpg "OmniTrackIQ/pkg/postgres"
	"OmniTrackIQ/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegisterer returns the registry every collector is added to.
func ProvideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// ProvideMetrics creates a Prometheus metrics recorder and registers the
// endpoint and Kafka collectors alongside it.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	svcmetrics.Register(reg)
	pkgkafka.RegisterMetrics(reg)
	return metrics.New(reg)
}

// ProvideTracer installs the global tracer provider.
func ProvideTracer(cfg *config.Config) (*apptrace.Provider, error) {
	tc := apptrace.DefaultConfig(cfg.Tracing.ServiceName)
	tc.Enabled = cfg.Tracing.Enabled
	tc.Environment = cfg.Environment
	tc.Endpoint = cfg.Tracing.Endpoint
	tc.Insecure = cfg.Tracing.Insecure
	tc.SamplingRate = cfg.Tracing.SamplingRate
	p, err := apptrace.InitTracer(context.Background(), tc)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	return p, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePostgresPool creates a pgx pool.
func ProvidePostgresPool(cfg *config.Config) (pkgpg.Pool, error) {
	pool, err := pkgpg.NewPool(context.Background(), pkgpg.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		ConnectTimeout:  cfg.Postgres.ConnectTimeout,
		ReadOnly:        cfg.Postgres.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	return pool, nil
}

// ProvideLedger opens the ledger store selected by ledger.driver.
func ProvideLedger(cfg *config.Config, l *applogger.Logger) (repository.Ledger, error) {
	switch cfg.Ledger.Driver {
	case "postgres":
		pool, err := ProvidePostgresPool(cfg)
		if err != nil {
			return nil, err
		}
		return internalrepo.NewPGLedger(pool, l), nil
	default:
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		return internalrepo.NewCHLedger(client, l), nil
	}
}

// ProvideCacheStore creates the result cache backend. "none" returns nil.
func ProvideCacheStore(cfg *config.Config) (pkgcache.Service, error) {
	c := cfg.Cache
	redisCache := func() (*pkgcache.RedisCache, error) {
		return pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(c.Redis.Host),
			pkgcache.WithRedisPort(c.Redis.Port),
			pkgcache.WithRedisPassword(c.Redis.Password),
			pkgcache.WithRedisDB(c.Redis.DB),
			pkgcache.WithRedisPool(c.Redis.PoolSize, c.Redis.PoolSize/2, 30*time.Second),
			pkgcache.WithRedisPrefix(c.Redis.Prefix),
		)
	}

	switch c.Backend {
	case "none":
		return nil, nil
	case "redis":
		rc, err := redisCache()
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	case "layered":
		rc, err := redisCache()
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		lc, err := pkgcache.NewLayeredCache(rc,
			pkgcache.WithLayeredMemorySize(c.MemoryMaxSize),
			pkgcache.WithLayeredMemoryTTL(c.L1TTL),
		)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("layered cache: %w", err)
		}
		return lc, nil
	default:
		mc, err := pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(c.MemoryMaxSize),
			pkgcache.WithMemoryMaxTTL(c.TTL),
		)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		return mc, nil
	}
}

// ProvideResultCache wraps the store with tenant-scoped keys.
func ProvideResultCache(cfg *config.Config, store pkgcache.Service, m repository.Metrics, l *applogger.Logger) *cache.ResultCache {
	return cache.NewResultCache(store, cfg.Cache.TTL, m, l)
}

// ProvideBase bundles what every analytics use case shares.
func ProvideBase(cfg *config.Config, ledger repository.Ledger, rc *cache.ResultCache, m repository.Metrics, l *applogger.Logger) *usecase.Base {
	return usecase.NewBase(ledger, rc, m, l, usecase.Config{MaxWindowDays: cfg.Analytics.MaxWindowDays})
}

func ProvideAnomalyUseCase(base *usecase.Base) *usecase.AnomalyUseCase {
	return usecase.NewAnomalyUseCase(base, nil, nil)
}

func ProvideAttributionUseCase(cfg *config.Config, base *usecase.Base) *usecase.AttributionUseCase {
	return usecase.NewAttributionUseCase(base, attribution.NewEngine(cfg.Analytics.LookbackDays))
}

func ProvideMixUseCase(base *usecase.Base) *usecase.MixUseCase {
	return usecase.NewMixUseCase(base, nil)
}

func ProvideIncrementalityUseCase(base *usecase.Base) *usecase.IncrementalityUseCase {
	return usecase.NewIncrementalityUseCase(base, nil)
}

// ProvideLimiter creates the per-tenant limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
}

func ProvideAnalyticsHandler(
	l *applogger.Logger,
	anomalies *usecase.AnomalyUseCase,
	attr *usecase.AttributionUseCase,
	mix *usecase.MixUseCase,
	incr *usecase.IncrementalityUseCase,
	limiter *ratelimit.Limiter,
) *api.AnalyticsHandler {
	return api.NewAnalyticsHandler(l, anomalies, attr, mix, incr, limiter)
}

// ProvideHTTPServer creates the echo server; /healthz follows the ledger.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AnalyticsHandler, ledger repository.Ledger, reg prometheus.Registerer) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(len(cfg.Server.CORSOrigins) > 0, cfg.Server.CORSOrigins...),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetrics(metricsPath, reg, prometheus.DefaultGatherer),
		xhttp.WithHealthCheck(ledger.Health),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Producer.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLedgerEventsHandler creates the invalidation handler.
func ProvideLedgerEventsHandler(cfg *config.Config, rc *cache.ResultCache, m repository.Metrics, l *applogger.Logger) *usecase.LedgerEventsHandler {
	return usecase.NewLedgerEventsHandler(cfg.Kafka.LedgerTopic, rc, m, l)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(ledgerGroupID(c.GroupID, c.PerReplica, os.Hostname)),
		pkgkafka.WithConsumerStartOffset(c.StartOffset),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ledgerGroupID gives every replica its own consumer group when perReplica
// is set, so each one sees every ledger.changed event and clears its own L1.
func ledgerGroupID(base string, perReplica bool, hostname func() (string, error)) string {
	if !perReplica {
		return base
	}
	host, err := hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return base + "-" + host
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	events *usecase.LedgerEventsHandler,
	producer *pkgkafka.Producer,
	limiter *ratelimit.Limiter,
	tracer *apptrace.Provider,
	ledger repository.Ledger,
	store pkgcache.Service,
) *server.App {
	d := server.Deps{
		Config:   cfg,
		Logger:   l,
		Server:   srv,
		Producer: producer,
		Limiter:  limiter,
		Tracer:   tracer,
		Closers:  []server.Closer{{Name: "ledger", Closer: ledger}},
	}
	if consumer != nil {
		d.Consumer = consumer
		d.Events = events
	}
	if store != nil {
		d.Closers = append(d.Closers, server.Closer{Name: "cache", Closer: store})
	}
	return server.New(d)
}
