package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"CandleVault/internal/domain/repository"
	"CandleVault/internal/handler/api"
	internalrepo "CandleVault/internal/repository"
	icache "CandleVault/internal/service/cache"
	"CandleVault/internal/service/history"
	"CandleVault/internal/service/ratelimit"
	"CandleVault/internal/service/threatscreen"
	"CandleVault/internal/service/validation"
	"CandleVault/internal/services/analytics"
	"CandleVault/internal/usecase"
	pkgcache "CandleVault/pkg/cache"
	pkgch "CandleVault/pkg/clickhouse"
	"CandleVault/pkg/config"
	xhttp "CandleVault/pkg/http"
	pkgkafka "CandleVault/pkg/kafka"
	applogger "CandleVault/pkg/logger"
	"CandleVault/pkg/metrics"
	pkgqueue "CandleVault/pkg/queue"
	"CandleVault/pkg/server"

	"github.com/shopspring/decimal"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Logging.Pretty {
		format = "console"
	}
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the backend
// needs one. Both the direct clickhouse backend and the queue backend's
// persist job land rows there.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != usecase.BackendClickHouse && cfg.Backend.Type != usecase.BackendQueue {
		return nil, nil
	}

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
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".candles (" +
			"id String, session_id String, seq UInt64, ts DateTime64(3), " +
			"open Float64, high Float64, low Float64, close Float64, " +
			"volume Float64, spread Float64" +
			") ENGINE=MergeTree ORDER BY (session_id, seq)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
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

// ProvideCandleStorage creates ClickHouse storage repository.
func ProvideCandleStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".candles")
}

// ProvideCandlePublisher creates Kafka publisher repository.
func ProvideCandlePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideQueue creates the Redis queue for the async persistence lane and
// registers the persist job on it.
func ProvideQueue(cfg *config.Config, lgr *applogger.Logger, store repository.Storage) *pkgqueue.RedisQueue {
	if cfg.Backend.Type != usecase.BackendQueue {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.Addr,
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	})

	var opts []pkgqueue.RedisQueueOption
	if cfg.Queue.KeyPrefix != "" {
		opts = append(opts, pkgqueue.WithKeyPrefix(cfg.Queue.KeyPrefix))
	}

	q := pkgqueue.NewRedisQueue(lgr, &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, pkgqueue.ModeProducerConsumer, opts...)

	q.RegisterJob(usecase.NewCandlePersistJob(store, lgr))
	return q
}

// ProvideValidationCache selects the validation cache backend.
func ProvideValidationCache(cfg *config.Config) (icache.ValidationCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return icache.NewMemoryCache(
			icache.WithTTL(cfg.Cache.TTL),
			icache.WithCapacity(cfg.Cache.MaxSize),
		), nil
	case "redis", "layered":
		host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
		if err != nil {
			return nil, fmt.Errorf("cache redis addr: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("cache redis port: %w", err)
		}
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("cache redis: %w", err)
		}
		var svc pkgcache.Service = rc
		if cfg.Cache.Backend == "layered" {
			svc = pkgcache.NewLayeredCache(rc)
		}
		return icache.NewSharedCache(svc, icache.WithSharedTTL(cfg.Cache.TTL)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// ProvideRateLimiter creates the per-session submission limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Pipeline.RateWindow, cfg.Pipeline.RateQuota, 5*time.Minute)
}

// ProvideScreener creates the threat screener.
func ProvideScreener(limiter *ratelimit.Limiter) *threatscreen.Screener {
	return threatscreen.New(limiter)
}

// ProvideValidator creates the structural validator with configured
// thresholds, falling back to the stock values.
func ProvideValidator(cfg *config.Config) *validation.Validator {
	vcfg := validation.DefaultConfig()
	v := cfg.Pipeline.Validation
	if v.SpreadErrorRatio > 0 {
		vcfg.SpreadErrorRatio = decimal.NewFromFloat(v.SpreadErrorRatio)
	}
	if v.SpreadWarnHigh > 0 {
		vcfg.SpreadWarnHighRatio = decimal.NewFromFloat(v.SpreadWarnHigh)
	}
	if v.SpreadWarnLow > 0 {
		vcfg.SpreadWarnLowRatio = decimal.NewFromFloat(v.SpreadWarnLow)
	}
	if v.LowVolumeThreshold > 0 {
		vcfg.LowVolumeWarn = decimal.NewFromInt(v.LowVolumeThreshold)
	}
	return validation.New(vcfg)
}

// ProvideAnalyzer creates the contextual rule analyzer.
func ProvideAnalyzer(cfg *config.Config) *analytics.Analyzer {
	acfg := analytics.DefaultAnalyzerConfig()
	if cfg.Pipeline.AnalysisWindow > 0 {
		acfg.WindowSize = cfg.Pipeline.AnalysisWindow
	}
	return analytics.NewAnalyzer(acfg)
}

// ProvideSuggester creates the autofill suggester.
func ProvideSuggester(cfg *config.Config) *analytics.Suggester {
	acfg := analytics.DefaultAnalyzerConfig()
	if cfg.Pipeline.AnalysisWindow > 0 {
		acfg.WindowSize = cfg.Pipeline.AnalysisWindow
	}
	return analytics.NewSuggester(acfg)
}

// ProvideIndex creates the in-memory read model.
func ProvideIndex() *internalrepo.CandleIndex {
	return internalrepo.NewCandleIndex()
}

// ProvideHistory creates the undo/redo manager.
func ProvideHistory(cfg *config.Config) *history.Manager {
	return history.New(cfg.Pipeline.HistoryDepth)
}

// ProvideCommitter creates the backend-routing committer.
func ProvideCommitter(
	pub repository.Publisher,
	store repository.Storage,
	q *pkgqueue.RedisQueue,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.CandleCommitter {
	var qs pkgqueue.QueueService
	if q != nil {
		qs = q
	}
	return usecase.NewCandleCommitter(pub, store, qs, m, cfg.Backend.Type)
}

// ProvidePipeline assembles the validation pipeline.
func ProvidePipeline(
	screener *threatscreen.Screener,
	validator *validation.Validator,
	analyzer *analytics.Analyzer,
	suggester *analytics.Suggester,
	vcache icache.ValidationCache,
	index *internalrepo.CandleIndex,
	hist *history.Manager,
	committer *usecase.CandleCommitter,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(
		screener, validator, analyzer, suggester,
		vcache, index, hist,
		committer.CommitFunc(), m, lgr,
	)
}

// ProvideTransfer creates the CSV/JSON transfer adapter.
func ProvideTransfer(p *usecase.Pipeline) *usecase.Transfer {
	return usecase.NewTransfer(p)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(lgr *applogger.Logger, p *usecase.Pipeline, tr *usecase.Transfer) xhttp.Handler {
	return api.NewCandlesEchoHandler(lgr, p, tr)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	pipeline *usecase.Pipeline,
	committer *usecase.CandleCommitter,
	q *pkgqueue.RedisQueue,
	chClient *pkgch.Client,
	vcache icache.ValidationCache,
	limiter *ratelimit.Limiter,
	handler xhttp.Handler,
) *server.App {
	app := server.New(cfg, lgr, pipeline, committer, q, chClient, vcache, limiter)
	app.SetHTTPHandler(handler)
	return app
}
