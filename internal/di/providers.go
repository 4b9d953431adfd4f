package di

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	icache "PriceCast/internal/service/cache"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/usecase"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the source or a
// sink needs one, and creates the forecast tables when the sink is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.NeedsClickHouse() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.HasSink(config.SinkClickHouse) {
		if err := client.InitSchema(ctx, pkgch.ForecastSchema(cfg.ClickHouse.Database)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka sink is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.HasSink(config.SinkKafka) {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBytesCache returns Redis when enabled and an in-process TTL cache otherwise.
func ProvideBytesCache(cfg *config.Config) (icache.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache(), nil
	}
	c, err := icache.NewRedisCache(context.Background(), icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideForecastStore creates the cache-backed forecast store.
func ProvideForecastStore(c icache.BytesCache, cfg *config.Config) *internalrepo.CacheForecastStore {
	return internalrepo.NewCacheForecastStore(c, cfg.Cache.TTL)
}

// ProvideObservationSource selects the configured input.
func ProvideObservationSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.ObservationSource {
	if cfg.Input.Source == config.SourceClickHouse {
		return internalrepo.NewCHObservationSource(ch, cfg.Input.Table, l)
	}
	return internalrepo.NewJSONObservationSource(cfg.Input.Path)
}

// ProvideDocumentFile creates the required output file writer.
func ProvideDocumentFile(cfg *config.Config) *internalrepo.FileDocumentWriter {
	return internalrepo.NewFileDocumentWriter(cfg.Output.Path)
}

// ProvideSinks builds the optional sinks in a fixed order. The cache store is
// always fed in server mode since it backs the API.
func ProvideSinks(
	cfg *config.Config,
	store *internalrepo.CacheForecastStore,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) []repository.DocumentSink {
	var sinks []repository.DocumentSink
	if cfg.HasSink(config.SinkCache) || cfg.Server.Enabled {
		sinks = append(sinks, store)
	}
	if cfg.HasSink(config.SinkKafka) && producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastsTopic))
	}
	if cfg.HasSink(config.SinkClickHouse) && ch != nil {
		sinks = append(sinks, internalrepo.NewCHForecastStore(ch, cfg.ClickHouse.Database))
	}
	return sinks
}

// ProvideForecastEngine creates the forecasting use case.
func ProvideForecastEngine(
	source repository.ObservationSource,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ForecastEngine {
	return usecase.NewForecastEngine(source, m, l, usecase.EngineConfig{
		TargetPeriod:     cfg.Forecast.TargetPeriod,
		MaxHorizon:       cfg.Forecast.MaxHorizon,
		Seed:             cfg.Forecast.Seed,
		Workers:          cfg.Forecast.Workers,
		MaxTrainingCalls: cfg.Forecast.MaxTrainingCalls,
	})
}

// ProvideDocumentPublisher creates the publisher writing the file and sinks.
func ProvideDocumentPublisher(
	file *internalrepo.FileDocumentWriter,
	sinks []repository.DocumentSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.DocumentPublisher {
	return usecase.NewDocumentPublisher(file, internalrepo.EncodeDocument, sinks, m, l)
}

// ProvideHTTPServer creates the API server in server mode.
func ProvideHTTPServer(cfg *config.Config, store *internalrepo.CacheForecastStore, l *applogger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	limiter := ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(api.NewForecastsEchoHandler(store, l), l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithMiddleware(limiter.Middleware()),
	)
}

// ProvideRebuildConsumer creates the rebuild trigger consumer when a topic is
// configured and the server is running.
func ProvideRebuildConsumer(
	cfg *config.Config,
	engine *usecase.ForecastEngine,
	publisher *usecase.DocumentPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Server.Enabled || cfg.Kafka.Rebuild.Topic == "" {
		return nil, nil
	}
	h := usecase.NewRebuildHandler(cfg.Kafka.Rebuild.Topic, engine, publisher, m, l)
	r := cfg.Kafka.Rebuild
	consumer, err := pkgkafka.NewConsumer(h, l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(r.GroupID),
		pkgkafka.WithConsumerRetry(r.RetryMax, r.BackoffMin, r.BackoffMax),
		pkgkafka.WithConsumerFetch(r.MinBytes, r.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.ForecastEngine,
	publisher *usecase.DocumentPublisher,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	cache icache.BytesCache,
	ch *pkgch.Client,
) *server.App {
	opts := []server.Option{server.WithCloser("cache", cache)}
	if httpServer != nil {
		opts = append(opts, server.WithHTTPServer(httpServer))
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka_producer", producer))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	return server.New(cfg, l, engine, publisher, opts...)
}
