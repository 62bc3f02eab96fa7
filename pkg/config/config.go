package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Scan        ScanConfig       `yaml:"scan"`
	Signals     SignalsConfig    `yaml:"signals"`
	Alerts      AlertsConfig     `yaml:"alerts"`
	MarketData  MarketDataConfig `yaml:"market_data"`
	Finnhub     FinnhubConfig    `yaml:"finnhub"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	Queue       QueueConfig      `yaml:"queue"`
	Output      OutputConfig     `yaml:"output"`
	Webhook     WebhookConfig    `yaml:"webhook"`
}

type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout"`
	TimeFormat string `yaml:"time_format"`
	// Digest publishes deduplicated warn/error events to Kafka.
	Digest struct {
		Enabled        bool          `yaml:"enabled"`
		Topic          string        `yaml:"topic" default:"scanner.log-digest"`
		FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
		CountThreshold int           `yaml:"count_threshold" default:"100" validate:"gte=1"`
	} `yaml:"digest"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	// CORSOrigins limits browser origins; empty allows any.
	CORSOrigins []string `yaml:"cors_origins"`
	// EvaluateBurst and EvaluateRefillPerSec bound on-demand evaluations per client IP.
	EvaluateBurst        int     `yaml:"evaluate_burst" default:"5" validate:"gte=1"`
	EvaluateRefillPerSec float64 `yaml:"evaluate_refill_per_sec" default:"0.2" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled" default:"true"`
	Path           string `yaml:"path" default:"/metrics"`
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" default:"breakout_scanner"`
}

type ScanConfig struct {
	Benchmark  string   `yaml:"benchmark" default:"SPY" validate:"required"`
	Tickers    []string `yaml:"tickers"`
	TickerFile string   `yaml:"ticker_file" default:"tickers.txt"`
	// Concurrency is the worker pool size.
	Concurrency     int           `yaml:"concurrency" default:"4" validate:"gte=1,lte=64"`
	MaxFailureRatio float64       `yaml:"max_failure_ratio" default:"1" validate:"gt=0,lte=1"`
	Timeout         time.Duration `yaml:"timeout" default:"15m"`
	LockTTL         time.Duration `yaml:"lock_ttl" default:"30m"`
	// Interval repeats the scan while serving; 0 runs once at startup.
	Interval time.Duration `yaml:"interval"`
}

type SignalsConfig struct {
	VolumeDryUp      VolumeDryUpConfig      `yaml:"volume_dry_up"`
	Momentum         MomentumConfig         `yaml:"momentum"`
	RelativeStrength RelativeStrengthConfig `yaml:"relative_strength"`
}

type VolumeDryUpConfig struct {
	LookbackPeriod    int     `yaml:"lookback_period" default:"20" validate:"gte=2"`
	RedDayVolumeRatio float64 `yaml:"red_day_volume_ratio" default:"0.7" validate:"gt=0"`
	EMAPeriod         int     `yaml:"ema_period" default:"21" validate:"gte=1"`
	PullbackMaxGap    int     `yaml:"pullback_max_gap" default:"1" validate:"gte=0"`
	MaxEMADistance    float64 `yaml:"max_ema_distance" default:"0.10" validate:"gt=0"`
}

type MomentumConfig struct {
	RSIPeriod          int     `yaml:"rsi_period" default:"14" validate:"gte=2"`
	RSILookback        int     `yaml:"rsi_lookback" default:"5" validate:"gte=2"`
	OBVLookback        int     `yaml:"obv_lookback" default:"5" validate:"gte=2"`
	MACDFast           int     `yaml:"macd_fast" default:"12" validate:"gte=1"`
	MACDSlow           int     `yaml:"macd_slow" default:"26" validate:"gte=2"`
	MACDSignal         int     `yaml:"macd_signal" default:"9" validate:"gte=1"`
	MACDLookback       int     `yaml:"macd_lookback" default:"5" validate:"gte=2"`
	PriceFlatTolerance float64 `yaml:"price_flat_tolerance" default:"0.002" validate:"gte=0"`
	MinSubChecks       int     `yaml:"min_sub_checks" default:"2" validate:"gte=1,lte=3"`
}

type RelativeStrengthConfig struct {
	RSLookback         int     `yaml:"rs_lookback" default:"5" validate:"gte=2"`
	OutperformanceFull float64 `yaml:"outperformance_full" default:"0.05" validate:"gt=0"`
	SlopeFull          float64 `yaml:"slope_full" default:"0.005" validate:"gt=0"`
}

type AlertsConfig struct {
	Threshold         int `yaml:"threshold" default:"2" validate:"gte=1,lte=3"`
	HighPriorityScore int `yaml:"high_priority_score" default:"20" validate:"gte=0,lte=30"`
	WatchListScore    int `yaml:"watch_list_score" default:"15" validate:"gte=0,lte=30"`
}

type MarketDataConfig struct {
	Provider string `yaml:"provider" default:"finnhub" validate:"oneof=finnhub clickhouse"`
	MinBars  int    `yaml:"min_bars" default:"60" validate:"gte=1"`
	Cache    struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		TTL     time.Duration `yaml:"ttl" default:"6h"`
		MaxSize int           `yaml:"max_size" default:"2000" validate:"gte=1"`
	} `yaml:"cache"`
}

type FinnhubConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"url"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
	RatePerSec float64       `yaml:"rate_per_sec" default:"1" validate:"gt=0"`
	Burst      int           `yaml:"burst" default:"5" validate:"gte=1"`
	MaxRetries int           `yaml:"max_retries" default:"2" validate:"gte=0,lte=5"`
}

type ClickHouseConfig struct {
	// Enabled turns on the scan_results sink; the bars provider only needs Host.
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"scanner"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	AlertTopic   string        `yaml:"alert_topic" default:"scanner.alerts"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size" default:"10"`
	Timeout  time.Duration `yaml:"timeout" default:"5s"`
	Prefix   string        `yaml:"prefix" default:"scan"`
}

// QueueConfig controls the Redis queue of on-demand scan requests.
type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Prefix     string        `yaml:"prefix" default:"scan:queue"`
	Workers    int           `yaml:"workers" default:"1" validate:"gte=1,lte=8"`
	RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"1m"`
}

type OutputConfig struct {
	ResultsDir string `yaml:"results_dir" default:"results" validate:"required"`
	CSV        bool   `yaml:"csv" default:"true"`
	Report     bool   `yaml:"report" default:"true"`
	TopN       int    `yaml:"top_n" default:"10" validate:"gte=1"`
}

type WebhookConfig struct {
	URL       string        `yaml:"url" validate:"omitempty,url"`
	Username  string        `yaml:"username" default:"Breakout Scanner"`
	Timeout   time.Duration `yaml:"timeout" default:"10s"`
	MaxFields int           `yaml:"max_fields" default:"10" validate:"gte=1,lte=25"`
}

var validate = validator.New()

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Parse decodes YAML over the defaults without validating.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// ApplyEnv overrides fields from environment variables looked up via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := getenv("TICKERS"); v != "" {
		c.Scan.Tickers = splitList(v)
	}
	if v := getenv("BENCHMARK"); v != "" {
		c.Scan.Benchmark = v
	}
	if v := getenv("ALERT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALERT_THRESHOLD: %w", err)
		}
		c.Alerts.Threshold = n
	}
	if v := getenv("WEBHOOK_URL"); v != "" {
		c.Webhook.URL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("MARKET_DATA_PROVIDER"); v != "" {
		c.MarketData.Provider = v
	}
	if v := getenv("RESULTS_DIR"); v != "" {
		c.Output.ResultsDir = v
	}
	return nil
}

// Validate runs struct tag rules and cross-field checks.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.MarketData.Provider == "finnhub" && c.Finnhub.APIKey == "" {
		errs = append(errs, errors.New("finnhub.api_key is required for the finnhub provider"))
	}
	if c.MarketData.Provider == "clickhouse" && c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required for the clickhouse provider"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if c.Log.Digest.Enabled && !c.Kafka.Enabled {
		errs = append(errs, errors.New("log.digest requires kafka"))
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		errs = append(errs, errors.New("queue requires redis"))
	}
	if c.MarketData.Cache.Enabled && c.MarketData.Cache.Backend != "memory" && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("market_data.cache.backend %q requires redis", c.MarketData.Cache.Backend))
	}
	if m := c.Signals.Momentum; m.MACDFast >= m.MACDSlow {
		errs = append(errs, fmt.Errorf("signals.momentum: macd_fast (%d) must be below macd_slow (%d)", m.MACDFast, m.MACDSlow))
	}
	if c.Alerts.WatchListScore > c.Alerts.HighPriorityScore {
		errs = append(errs, errors.New("alerts.watch_list_score cannot exceed high_priority_score"))
	}
	if len(c.Scan.Tickers) == 0 && c.Scan.TickerFile == "" {
		errs = append(errs, errors.New("scan.tickers or scan.ticker_file is required"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
