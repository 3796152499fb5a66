package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"CardPulse/internal/domain/repository"
	"CardPulse/internal/handler/api"
	mid "CardPulse/internal/middleware"
	internalrepo "CardPulse/internal/repository"
	"CardPulse/internal/services/chart"
	"CardPulse/internal/services/outcome"
	"CardPulse/internal/services/signals"
	"CardPulse/internal/usecase"
	pkgcache "CardPulse/pkg/cache"
	pkgch "CardPulse/pkg/clickhouse"
	"CardPulse/pkg/config"
	pkgkafka "CardPulse/pkg/kafka"
	applogger "CardPulse/pkg/logger"
	"CardPulse/pkg/metrics"
	"CardPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if db == "" {
		db = "cardpulse"
	}
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_observations (
            ts DateTime,
            card_id String,
            venue_id String,
            condition LowCardinality(String),
            is_foil UInt8,
            language LowCardinality(String),
            price Decimal64(4),
            price_low Decimal64(4),
            price_mid Decimal64(4),
            price_high Decimal64(4),
            price_market Decimal64(4),
            currency LowCardinality(String),
            num_listings UInt32,
            total_quantity UInt32,
            ingested_at DateTime
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (card_id, venue_id, condition, is_foil, language, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.recommendations (
            id String,
            card_id String,
            action LowCardinality(String),
            current_price Decimal64(4),
            target_price Decimal64(4),
            horizon_days Int32,
            created_at DateTime,
            valid_until DateTime,
            price_end Decimal64(4) DEFAULT 0,
            price_peak Decimal64(4) DEFAULT 0,
            price_peak_at DateTime DEFAULT toDateTime(0),
            accuracy_end Decimal64(4) DEFAULT 0,
            accuracy_peak Decimal64(4) DEFAULT 0,
            profit_pct_end Decimal64(4) DEFAULT 0,
            profit_pct_peak Decimal64(4) DEFAULT 0,
            evaluated_at DateTime DEFAULT toDateTime(0)
        ) ENGINE = ReplacingMergeTree(evaluated_at)
        ORDER BY id`, db),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when no
// brokers are configured (clickhouse-only deployments).
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSnapshotStore creates ClickHouse snapshot storage.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewCHSnapshotStore(chClient.DB(), cfg.ClickHouse.Database+".price_observations")
}

// ProvideObservationPublisher creates Kafka publisher repository.
func ProvideObservationPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMarketReader creates the rollup/raw-bucket query reader.
func ProvideMarketReader(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.MarketReader {
	r := internalrepo.NewCHMarketReader(chClient, cfg.ClickHouse.Database, cfg.ClickHouse.RollupsEnabled)
	r.SetLogger(l)
	return r
}

// ProvideRecommendationStore creates the recommendations boundary.
func ProvideRecommendationStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.RecommendationStore {
	s := internalrepo.NewCHRecommendationStore(chClient,
		cfg.ClickHouse.Database+".recommendations",
		cfg.ClickHouse.Database+".price_observations",
	)
	s.SetLogger(l)
	return s
}

// ProvideCache creates the signal cache: layered Redis when configured,
// in-process memory otherwise.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideDetector creates the signal detector with configured gates.
func ProvideDetector(cfg *config.Config) *signals.Detector {
	dc := signals.DefaultConfig()
	if cfg.Signals.MomentumThreshold > 0 {
		dc.MomentumThreshold = cfg.Signals.MomentumThreshold
	}
	if cfg.Signals.MinVolatility > 0 {
		dc.MinVolatility = cfg.Signals.MinVolatility
	}
	if cfg.Signals.MinCorrelation > 0 {
		dc.MinCorrelation = cfg.Signals.MinCorrelation
	}
	if cfg.Signals.MinTrendPoints > 0 {
		dc.MinTrendPoints = cfg.Signals.MinTrendPoints
	}
	return signals.NewDetector(dc)
}

// ProvideChartConfig creates the gap-fill bounds.
func ProvideChartConfig(cfg *config.Config) chart.Config {
	cc := chart.DefaultConfig()
	if cfg.Chart.SanityMin != 0 || cfg.Chart.SanityMax != 0 {
		cc.SanityMin = decimal.NewFromFloat(cfg.Chart.SanityMin)
		cc.SanityMax = decimal.NewFromFloat(cfg.Chart.SanityMax)
	}
	if cfg.Chart.MaxGapFraction > 0 {
		cc.MaxGapFraction = cfg.Chart.MaxGapFraction
	}
	return cc
}

// ProvideEvaluator creates the outcome evaluator.
func ProvideEvaluator(cfg *config.Config) *outcome.Evaluator {
	return outcome.NewEvaluator(decimal.NewFromFloat(cfg.Evaluator.HoldThreshold))
}

// ProvideHistoryUseCase creates the aggregate-lag compositor.
func ProvideHistoryUseCase(reader repository.MarketReader, cc chart.Config, l *applogger.Logger) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(reader, cc, l)
}

// ProvideSignalsUseCase creates the cached signal computation.
func ProvideSignalsUseCase(reader repository.MarketReader, det *signals.Detector, cache pkgcache.Service, cfg *config.Config) *usecase.SignalsUseCase {
	ttl := cfg.Signals.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return usecase.NewSignalsUseCase(reader, det, cache, ttl)
}

// ProvideObservationsUseCase creates the raw observation query use case.
func ProvideObservationsUseCase(store repository.SnapshotStore) *usecase.ObservationsUseCase {
	return usecase.NewObservationsUseCase(store)
}

// ProvideIngestUseCase creates the dual-backend ingest use case.
func ProvideIngestUseCase(
	pub repository.Publisher,
	store repository.SnapshotStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.IngestUseCase {
	return usecase.NewIngestUseCase(pub, store, m, cfg.Backend.Type)
}

// ProvideIngestPipeline builds the middleware between the feed and storage.
func ProvideIngestPipeline(ing *usecase.IngestUseCase, m repository.Metrics) *mid.IngestPipeline {
	return mid.NewIngestPipeline(ing, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
// Returns nil when no brokers are configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Consumer.GroupID == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaObservationsHandler registers handler for the observation topic.
func ProvideKafkaObservationsHandler(pipe *mid.IngestPipeline, m repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, pipe, m)
}

// ProvideOutcomeUseCase creates the batch evaluator.
func ProvideOutcomeUseCase(
	recs repository.RecommendationStore,
	ev *outcome.Evaluator,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.OutcomeBatchUseCase {
	return usecase.NewOutcomeBatchUseCase(recs, ev, m, l)
}

// ProvideMarketHandler creates the Echo HTTP surface.
func ProvideMarketHandler(
	l *applogger.Logger,
	history *usecase.HistoryUseCase,
	sig *usecase.SignalsUseCase,
	obs *usecase.ObservationsUseCase,
	ingest *usecase.IngestUseCase,
	outcomes *usecase.OutcomeBatchUseCase,
) *api.MarketEchoHandler {
	return api.NewMarketEchoHandler(l, history, sig, obs, ingest, outcomes)
}

// ProvideEvaluatorCron schedules periodic outcome evaluation. Returns
// nil when the evaluator is disabled; manual runs stay available over
// HTTP either way.
func ProvideEvaluatorCron(cfg *config.Config, outcomes *usecase.OutcomeBatchUseCase, l *applogger.Logger) (*cron.Cron, error) {
	if !cfg.Evaluator.Enabled {
		return nil, nil
	}
	c := cron.New()
	batch := cfg.Evaluator.BatchSize
	if _, err := c.AddFunc(cfg.Evaluator.Schedule, func() {
		stats, err := outcomes.EvaluatePending(context.Background(), batch)
		if err != nil {
			l.Error("scheduled outcome evaluation failed", applogger.Error(err))
			return
		}
		l.Info("scheduled outcome evaluation done",
			applogger.Int("processed", stats.Processed),
			applogger.Int("evaluated", stats.Evaluated),
			applogger.Int("skipped_no_data", stats.SkippedNoData),
		)
	}); err != nil {
		return nil, fmt.Errorf("evaluator schedule: %w", err)
	}
	return c, nil
}

// kafkaLogPublisher feeds aggregated error logs to a Kafka topic.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	chClient *pkgch.Client,
	pipe *mid.IngestPipeline,
	ingest *usecase.IngestUseCase,
	handler *api.MarketEchoHandler,
	evalCron *cron.Cron,
) *server.App {
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "cardpulse.app_logs",
			Publisher:      kafkaLogPublisher{producer},
		})
	}
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
				l.Warn("kafka handler error",
					applogger.String("topic", topic),
					applogger.String("trace_id", pkgkafka.ExtractTraceID(km)),
					applogger.Error(err))
			},
		})
	}
	return server.New(cfg, l, consumer, kh, chClient, pipe, ingest, handler, evalCron)
}
