package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"LPPLWatch/pkg/util"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Logger      LoggerConfig     `yaml:"logger"`
	Run         RunConfig        `yaml:"run"`
	Fit         FitConfig        `yaml:"fit"`
	Prices      PricesConfig     `yaml:"prices"`
	Render      RenderConfig     `yaml:"render"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Redis       RedisConfig      `yaml:"redis"`
	Queue       QueueConfig      `yaml:"queue"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50"`
	MaxBackups int    `yaml:"max_backups" default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" default:"14"`
}

// RunConfig drives one batch over the tracked instruments.
type RunConfig struct {
	Tickers         []string      `yaml:"tickers" default:"[\"^NDX\",\"SPY\",\"^GSPC\",\"QQQ\",\"BTC-USD\"]" validate:"min=1,dive,required"`
	StartDate       string        `yaml:"start_date" default:"2019-01-01" validate:"required"`
	OutputDir       string        `yaml:"output_dir" default:"daily_plots" validate:"required"`
	KeepHistoryDays int           `yaml:"keep_history_days" default:"3" validate:"gte=1"`
	Interval        time.Duration `yaml:"interval"` // serve mode only, 0 disables periodic batches
}

// FilterConfig holds the LPPLS qualification bounds applied to each window fit.
type FilterConfig struct {
	MMin            float64 `yaml:"m_min" default:"0"`
	MMax            float64 `yaml:"m_max" default:"1"`
	WMin            float64 `yaml:"w_min" default:"2"`
	WMax            float64 `yaml:"w_max" default:"15"`
	OMin            float64 `yaml:"o_min" default:"2.5"`
	DMin            float64 `yaml:"d_min" default:"0.5"`
	TcWindowPercent float64 `yaml:"tc_window_percent" default:"0.5" validate:"gt=0"`
}

type FitConfig struct {
	ServiceURL         string        `yaml:"service_url" validate:"required,url"`
	Timeout            time.Duration `yaml:"timeout" default:"10m"`
	Attempts           int           `yaml:"attempts" default:"2" validate:"gte=1"`
	MaxSearches        int           `yaml:"max_searches" default:"25" validate:"gte=1"`
	Workers            int           `yaml:"workers" default:"4" validate:"gte=1"`
	WindowSize         int           `yaml:"window_size" default:"120" validate:"gte=2"`
	SmallestWindowSize int           `yaml:"smallest_window_size" default:"30" validate:"gte=2"`
	OuterIncrement     int           `yaml:"outer_increment" default:"1" validate:"gte=1"`
	InnerIncrement     int           `yaml:"inner_increment" default:"5" validate:"gte=1"`
	Filter             FilterConfig  `yaml:"filter"`
}

type PricesConfig struct {
	Source     string        `yaml:"source" default:"http" validate:"oneof=http clickhouse"`
	ServiceURL string        `yaml:"service_url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
	CacheTTL   time.Duration `yaml:"cache_ttl" default:"1h"`
	Table      string        `yaml:"table" default:"lpplwatch.daily_closes"`
}

type RenderConfig struct {
	ServiceURL string        `yaml:"service_url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" default:"60s"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"lpplwatch"`
}

// QueueConfig enables the Redis-backed run request queue (requires redis.enabled).
type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Name       string        `yaml:"name" default:"runs"`
	RetryLimit int           `yaml:"retry_limit" default:"1"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"lpplwatch"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"lppl.signals"`
	DigestTopic  string        `yaml:"digest_topic" default:"lppl.error-digest"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LPPL_TICKERS"); v != "" {
		c.Run.Tickers = util.SplitList(v)
	}
	if v := os.Getenv("LPPL_OUTPUT_DIR"); v != "" {
		c.Run.OutputDir = v
	}
	if v := os.Getenv("LPPL_START_DATE"); v != "" {
		c.Run.StartDate = v
	}
	if v := os.Getenv("FIT_SERVICE_URL"); v != "" {
		c.Fit.ServiceURL = v
	}
	if v := os.Getenv("PRICE_SERVICE_URL"); v != "" {
		c.Prices.ServiceURL = v
	}
	if v := os.Getenv("RENDER_SERVICE_URL"); v != "" {
		c.Render.ServiceURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
}

// Validate checks struct tags and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, ok := util.ParseTime(c.Run.StartDate); !ok {
		return fmt.Errorf("run.start_date %q is not a date", c.Run.StartDate)
	}
	if c.Fit.SmallestWindowSize > c.Fit.WindowSize {
		return fmt.Errorf("fit.smallest_window_size (%d) exceeds fit.window_size (%d)", c.Fit.SmallestWindowSize, c.Fit.WindowSize)
	}
	if c.Fit.Filter.MMin >= c.Fit.Filter.MMax || c.Fit.Filter.WMin >= c.Fit.Filter.WMax {
		return fmt.Errorf("fit.filter bounds are empty")
	}
	switch c.Prices.Source {
	case "http":
		if c.Prices.ServiceURL == "" {
			return fmt.Errorf("prices.service_url is required for source 'http'")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("prices.source 'clickhouse' requires clickhouse.enabled")
		}
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// StartDate returns the parsed run start date.
func (c *Config) StartDate() time.Time {
	t, _ := util.ParseTime(strings.TrimSpace(c.Run.StartDate))
	return util.Day(t)
}
