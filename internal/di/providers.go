package di

import (
	"context"
	"fmt"
	"os"
	"time"

	domrepo "BreakoutScan/internal/domain/repository"
	"BreakoutScan/internal/handler/api"
	internalrepo "BreakoutScan/internal/repository"
	"BreakoutScan/internal/service/finnhub"
	"BreakoutScan/internal/service/notify"
	"BreakoutScan/internal/service/ratelimit"
	"BreakoutScan/internal/services/signals"
	"BreakoutScan/internal/usecase"
	"BreakoutScan/pkg/cache"
	pkgch "BreakoutScan/pkg/clickhouse"
	"BreakoutScan/pkg/config"
	xhttp "BreakoutScan/pkg/http"
	pkgkafka "BreakoutScan/pkg/kafka"
	"BreakoutScan/pkg/logger"
	"BreakoutScan/pkg/metrics"
	"BreakoutScan/pkg/queue"
	"BreakoutScan/pkg/server"
)

const userAgent = "breakout-scanner/1.0"

// ProvideLogger builds the process logger from log.* config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideLogCollector attaches the Kafka warn/error digest when enabled.
func ProvideLogCollector(cfg *config.Config, l *logger.Logger, producer *pkgkafka.Producer) (*logger.Collector, func()) {
	if !cfg.Log.Digest.Enabled || producer == nil {
		return nil, func() {}
	}
	host, _ := os.Hostname()
	c := logger.NewCollector(logger.CollectorConfig{
		FlushInterval:  cfg.Log.Digest.FlushInterval,
		CountThreshold: cfg.Log.Digest.CountThreshold,
		Topic:          cfg.Log.Digest.Topic,
		Source:         host,
		Publisher:      producer,
	})
	l.AttachCollector(c)
	return c, func() {
		l.DetachCollector()
		c.Close()
	}
}

// ProvideRecorder creates the Prometheus recorder.
func ProvideRecorder() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetrics exposes the recorder through the domain port.
func ProvideMetrics(r *metrics.Recorder) domrepo.Metrics {
	return r
}

// ProvideRedis connects to Redis when enabled; nil otherwise.
func ProvideRedis(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, cfg.Redis.Timeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache selects the bar cache backend. A nil Service disables caching.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, func(), error) {
	c := cfg.MarketData.Cache
	if !c.Enabled {
		return nil, func() {}, nil
	}
	switch c.Backend {
	case "redis":
		if rc == nil {
			return nil, nil, fmt.Errorf("cache backend redis needs redis.enabled")
		}
		return rc, func() {}, nil
	case "layered":
		if rc == nil {
			return nil, nil, fmt.Errorf("cache backend layered needs redis.enabled")
		}
		lc := cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(c.MaxSize), cache.WithLayeredMemoryTTL(c.TTL))
		// lc.Close would also close the shared Redis client, which ProvideRedis owns
		return lc, func() {}, nil
	default:
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(c.MaxSize), cache.WithMemoryDefaultTTL(c.TTL))
		return mc, func() { _ = mc.Close() }, nil
	}
}

// ProvideLocker prefers Redis so separate processes share the scan lock.
func ProvideLocker(rc *cache.RedisCache, svc cache.Service) server.Locker {
	if rc != nil {
		return rc
	}
	if svc != nil {
		return svc
	}
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(16))
}

// ProvideClickHouseClient connects when the sink or the bar provider needs it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled && cfg.MarketData.Provider != "clickhouse" {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.ScannerSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates the producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, rec *metrics.Recorder) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(rec.Registerer()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideScanQueue creates the on-demand scan queue when enabled.
func ProvideScanQueue(cfg *config.Config, rc *cache.RedisCache, l *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(rc.Client(), l, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, queue.WithKeyPrefix(cfg.Queue.Prefix))
}

// ProvideLimiter is shared by the Finnhub client and the evaluate endpoint.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideMarketData selects the bar provider and wraps it in the cache.
func ProvideMarketData(cfg *config.Config, ch *pkgch.Client, svc cache.Service, limiter *ratelimit.Limiter, l *logger.Logger) (domrepo.MarketData, error) {
	var src domrepo.MarketData
	switch cfg.MarketData.Provider {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("clickhouse provider without client")
		}
		src = internalrepo.NewClickHouseBars(ch.DB(), cfg.ClickHouse.Database, l)
	default:
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Finnhub.Timeout), xhttp.WithUserAgent(userAgent))
		src = finnhub.New(finnhub.Config{
			APIKey:     cfg.Finnhub.APIKey,
			BaseURL:    cfg.Finnhub.BaseURL,
			RatePerSec: cfg.Finnhub.RatePerSec,
			Burst:      cfg.Finnhub.Burst,
			MaxRetries: cfg.Finnhub.MaxRetries,
		}, client, limiter, l)
	}
	if svc == nil {
		return src, nil
	}
	return internalrepo.NewCachedMarketData(src, svc, cfg.MarketData.Cache.TTL, l), nil
}

// ProvideEngine builds the three detectors from signals.* config.
func ProvideEngine(cfg *config.Config) (*usecase.Engine, error) {
	vc := cfg.Signals.VolumeDryUp
	vdu := signals.VolumeDryUpConfig{
		LookbackPeriod:    vc.LookbackPeriod,
		RedDayVolumeRatio: vc.RedDayVolumeRatio,
		EMAPeriod:         vc.EMAPeriod,
		PullbackMaxGap:    vc.PullbackMaxGap,
		MaxEMADistance:    vc.MaxEMADistance,
	}
	mc := cfg.Signals.Momentum
	mom := signals.DefaultMomentumConfig()
	mom.RSIPeriod = mc.RSIPeriod
	mom.RSILookback = mc.RSILookback
	mom.OBVLookback = mc.OBVLookback
	mom.MACDFast = mc.MACDFast
	mom.MACDSlow = mc.MACDSlow
	mom.MACDSignal = mc.MACDSignal
	mom.MACDLookback = mc.MACDLookback
	mom.PriceFlatTolerance = mc.PriceFlatTolerance
	mom.MinSubChecks = mc.MinSubChecks
	rc := cfg.Signals.RelativeStrength
	rs := signals.RelativeStrengthConfig{
		RSLookback:         rc.RSLookback,
		OutperformanceFull: rc.OutperformanceFull,
		SlopeFull:          rc.SlopeFull,
	}

	for _, v := range []interface{ Validate() error }{vdu, mom, rs} {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("signals config: %w", err)
		}
	}

	return usecase.NewEngine(
		signals.NewVolumeDryUp(vdu),
		signals.NewMomentumDivergence(mom),
		signals.NewRelativeStrength(rs),
		usecase.EngineConfig{
			AlertThreshold: cfg.Alerts.Threshold,
			Tiers: usecase.AlertTiers{
				HighPriority: cfg.Alerts.HighPriorityScore,
				Watch:        cfg.Alerts.WatchListScore,
			},
			MinBars: cfg.MarketData.MinBars,
		},
	), nil
}

// ProvideScanner creates the worker-pool scanner.
func ProvideScanner(cfg *config.Config, data domrepo.MarketData, engine *usecase.Engine, m domrepo.Metrics, l *logger.Logger) *usecase.Scanner {
	return usecase.NewScanner(data, engine, m, l, usecase.ScannerConfig{
		Benchmark:       cfg.Scan.Benchmark,
		Concurrency:     cfg.Scan.Concurrency,
		MaxFailureRatio: cfg.Scan.MaxFailureRatio,
	})
}

// ProvideRunStore keeps the latest run for the read API.
func ProvideRunStore() *internalrepo.MemoryRunStore {
	return internalrepo.NewMemoryRunStore()
}

// ProvideSinks lists the enabled result sinks.
func ProvideSinks(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) []domrepo.ResultSink {
	var sinks []domrepo.ResultSink
	if cfg.Output.CSV {
		sinks = append(sinks, internalrepo.NewCSVSink(cfg.Output.ResultsDir, l))
	}
	if cfg.Output.Report {
		sinks = append(sinks, internalrepo.NewReportSink(cfg.Output.ResultsDir, cfg.Output.TopN, l))
	}
	if cfg.ClickHouse.Enabled && ch != nil {
		sinks = append(sinks, internalrepo.NewClickHouseSink(ch.DB(), cfg.ClickHouse.Database, l))
	}
	return sinks
}

// ProvideNotifiers lists the alert channels.
func ProvideNotifiers(cfg *config.Config, producer *pkgkafka.Producer, l *logger.Logger) []domrepo.Notifier {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Webhook.Timeout), xhttp.WithUserAgent(userAgent))
	notifiers := []domrepo.Notifier{
		notify.NewWebhook(notify.WebhookConfig{
			URL:       cfg.Webhook.URL,
			Username:  cfg.Webhook.Username,
			MaxFields: cfg.Webhook.MaxFields,
		}, client, l),
	}
	if producer != nil {
		notifiers = append(notifiers, internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertTopic))
	}
	return notifiers
}

// ProvideDispatcher fans a finished run out to sinks and notifiers.
func ProvideDispatcher(store *internalrepo.MemoryRunStore, sinks []domrepo.ResultSink, notifiers []domrepo.Notifier, m domrepo.Metrics, l *logger.Logger) *usecase.Dispatcher {
	return usecase.NewDispatcher(store, sinks, notifiers, m, l)
}

// ProvideTickerSource reads the watch-list file unless tickers are configured.
func ProvideTickerSource(cfg *config.Config) domrepo.TickerSource {
	return internalrepo.NewTickerFile(cfg.Scan.TickerFile, cfg.Scan.Tickers)
}

// ProvideScanHandler exposes the latest run over HTTP.
func ProvideScanHandler(cfg *config.Config, store *internalrepo.MemoryRunStore, scanner *usecase.Scanner, q *queue.RedisQueue, limiter *ratelimit.Limiter, l *logger.Logger) *api.ScanHandler {
	var jobs api.Enqueuer
	if q != nil {
		jobs = q
	}
	return api.NewScanHandler(l, store, scanner, jobs, limiter, api.RateLimit{
		Burst:        float64(cfg.Server.EvaluateBurst),
		RefillPerSec: cfg.Server.EvaluateRefillPerSec,
	})
}

// ProvideHTTPServer builds the Echo server with metrics when enabled.
func ProvideHTTPServer(cfg *config.Config, h *api.ScanHandler, rec *metrics.Recorder, l *logger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, rec.Handler(), rec.Registerer()))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp assembles the application. The collector parameter only forces
// the digest to be wired before the first log line.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	_ *logger.Collector,
	tickers domrepo.TickerSource,
	scanner *usecase.Scanner,
	dispatcher *usecase.Dispatcher,
	locker server.Locker,
	rec *metrics.Recorder,
	q *queue.RedisQueue,
	httpServer *xhttp.Server,
) *server.App {
	var sq server.Queue
	if q != nil {
		sq = q
	}
	return server.New(server.Options{
		Serve:          cfg.Scan.Interval > 0,
		Timeout:        cfg.Scan.Timeout,
		LockTTL:        cfg.Scan.LockTTL,
		Interval:       cfg.Scan.Interval,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		Job:            cfg.Metrics.Job,
	}, l, tickers, scanner, dispatcher, locker, rec, sq, httpServer)
}
