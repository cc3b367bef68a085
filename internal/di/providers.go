package di

import (
	"context"
	"fmt"
	"time"

	"LPPLWatch/internal/domain/repository"
	domsvc "LPPLWatch/internal/domain/service"
	"LPPLWatch/internal/handler/api"
	internalrepo "LPPLWatch/internal/repository"
	"LPPLWatch/internal/services/artifacts"
	"LPPLWatch/internal/services/confidence"
	"LPPLWatch/internal/services/lppls"
	"LPPLWatch/internal/services/prices"
	"LPPLWatch/internal/services/render"
	"LPPLWatch/internal/services/retention"
	"LPPLWatch/internal/usecase"
	"LPPLWatch/pkg/cache"
	pkgch "LPPLWatch/pkg/clickhouse"
	"LPPLWatch/pkg/config"
	xhttp "LPPLWatch/pkg/http"
	pkgkafka "LPPLWatch/pkg/kafka"
	applogger "LPPLWatch/pkg/logger"
	"LPPLWatch/pkg/metrics"
	"LPPLWatch/pkg/queue"
	"LPPLWatch/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
	})
}

// ProvideRegisterer returns the registry scraped by the /metrics endpoint.
func ProvideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

// ProvideRedisClient connects to Redis when enabled; nil otherwise.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("redis client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCache prefers Redis and falls back to an in-process cache.
func ProvideCache(cfg *config.Config, client *redis.Client) cache.Service {
	if client != nil {
		return cache.NewRedisCache(client, cfg.Redis.Prefix)
	}
	return cache.NewMemoryCache(256)
}

// ProvideClickHouseClient creates a ClickHouse client when enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer when enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvidePriceHistory selects the warehouse or the HTTP price service.
func ProvidePriceHistory(cfg *config.Config, c cache.Service, ch *pkgch.Client, l *applogger.Logger) domsvc.PriceHistoryProvider {
	if cfg.Prices.Source == "clickhouse" && ch != nil {
		return internalrepo.NewCHPriceStore(ch, cfg.Prices.Table, l)
	}
	return prices.NewHTTPProvider(cfg, c, l)
}

func ProvideCurveFitter(cfg *config.Config) domsvc.CurveFitter {
	return lppls.NewHTTPCurveFitter(cfg)
}

func ProvideAggregator(cfg *config.Config) *confidence.Aggregator {
	return confidence.NewAggregator(lppls.NewFilterQualifier(cfg.Fit.Filter))
}

// ProvideRenderer returns nil when no render service is configured, which
// limits a run to text artifacts.
func ProvideRenderer(cfg *config.Config) domsvc.Renderer {
	if cfg.Render.ServiceURL == "" {
		return nil
	}
	return render.NewHTTPRenderer(cfg)
}

func ProvideRetention(l *applogger.Logger) *retention.Manager {
	return retention.NewManager(l)
}

func ProvideLayout(cfg *config.Config) artifacts.Layout {
	return artifacts.NewLayout(cfg.Run.OutputDir)
}

// ProvideConfidenceStore returns the ClickHouse store, or nil without ClickHouse.
func ProvideConfidenceStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.ConfidenceStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHConfidenceStore(ch, cfg.ClickHouse.Database, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideSignalPublisher returns the Kafka publisher, or nil without Kafka.
// The publisher also ships the logger's error digest.
func ProvideSignalPublisher(cfg *config.Config, p *pkgkafka.Producer, l *applogger.Logger) (repository.SignalPublisher, func()) {
	if p == nil {
		return nil, func() {}
	}
	pub := internalrepo.NewKafkaSignalPublisher(p, cfg.Kafka.Topic)
	l.AttachDigest(&applogger.DigestConfig{
		TimeInterval: time.Minute,
		Topic:        cfg.Kafka.DigestTopic,
		Publisher:    pub,
	})
	return pub, l.DetachDigest
}

func ProvideRunOrchestrator(
	cfg *config.Config,
	history domsvc.PriceHistoryProvider,
	fitter domsvc.CurveFitter,
	aggregator *confidence.Aggregator,
	renderer domsvc.Renderer,
	ret *retention.Manager,
	layout artifacts.Layout,
	store repository.ConfidenceStore,
	pub repository.SignalPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.RunOrchestrator {
	return usecase.NewRunOrchestrator(history, fitter, aggregator, renderer, ret, layout, store, pub, m, l, usecase.NewRunOptions(cfg))
}

func ProvideBatchRunner(orch *usecase.RunOrchestrator, c cache.Service, l *applogger.Logger) *usecase.BatchRunner {
	return usecase.NewBatchRunner(orch, c, l)
}

// ProvideRunQueue builds the Redis run queue when enabled and registers the
// batch job on it.
func ProvideRunQueue(cfg *config.Config, client *redis.Client, runner *usecase.BatchRunner, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || client == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.Config{
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue:"+cfg.Queue.Name))
	q.RegisterJob(usecase.NewRunBatchJob(runner))
	return q
}

// ProvideRunTrigger routes API run requests through the queue when present.
func ProvideRunTrigger(runner *usecase.BatchRunner, q *queue.RedisQueue) usecase.RunTrigger {
	if q != nil {
		return usecase.NewQueueTrigger(q)
	}
	return runner
}

func ProvideSignalQuery(store repository.ConfidenceStore, runner *usecase.BatchRunner) *usecase.SignalQuery {
	return usecase.NewSignalQuery(store, runner)
}

func ProvideHTTPHandler(l *applogger.Logger, q *usecase.SignalQuery, trigger usecase.RunTrigger) xhttp.Handler {
	return api.NewSignalsEchoHandler(l, q, trigger)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.BatchRunner,
	ret *retention.Manager,
	layout artifacts.Layout,
	handler xhttp.Handler,
	q *queue.RedisQueue,
) *server.App {
	return server.New(cfg, l, runner, ret, layout, handler, q)
}
