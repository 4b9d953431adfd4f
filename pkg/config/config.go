package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

const (
	SinkCache      = "cache"
	SinkKafka      = "kafka"
	SinkClickHouse = "clickhouse"

	SourceFile       = "file"
	SourceClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Forecast struct {
		TargetPeriod     string `yaml:"target_period" default:"2026-11"`
		MaxHorizon       int    `yaml:"max_horizon" default:"36" validate:"gte=1,lte=240"`
		Seed             int64  `yaml:"seed" default:"42"`
		Workers          int    `yaml:"workers" validate:"gte=0"`
		MaxTrainingCalls int    `yaml:"max_training_calls" validate:"gte=0"`
	} `yaml:"forecast"`

	Input struct {
		Source string `yaml:"source" default:"file" validate:"oneof=file clickhouse"`
		Path   string `yaml:"path" default:"dashboard/public/data/detailed.json"`
		Table  string `yaml:"table" default:"pricecast.observations"`
	} `yaml:"input"`

	Output struct {
		Path  string   `yaml:"path" default:"dashboard/public/data/forecasts.json" validate:"required"`
		Sinks []string `yaml:"sinks" validate:"unique,dive,oneof=cache kafka clickhouse"`
	} `yaml:"output"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"20" validate:"gte=0"`
			Burst int     `yaml:"burst" default:"40" validate:"gte=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Log logger.Config `yaml:"log"`

	Cache struct {
		TTL time.Duration `yaml:"ttl" default:"720h"`
	} `yaml:"cache"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"pricecast"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		ForecastsTopic string   `yaml:"forecasts_topic" default:"pricecast.forecasts"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression    string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer       struct {
			MaxAttempts int           `yaml:"max_attempts" default:"5"`
			Linger      time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes  int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize   int           `yaml:"batch_size" default:"500"`
		} `yaml:"producer"`
		Rebuild struct {
			Topic      string        `yaml:"topic"`
			GroupID    string        `yaml:"group_id" default:"pricecast-rebuild"`
			RetryMax   int           `yaml:"retry_max" default:"3" validate:"gte=0"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"1s"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"rebuild"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pricecast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

func parse(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PRICECAST_INPUT"); v != "" {
		c.Input.Path = v
	}
	if v := getenv("PRICECAST_OUTPUT"); v != "" {
		c.Output.Path = v
	}
	if v := getenv("PRICECAST_TARGET_PERIOD"); v != "" {
		c.Forecast.TargetPeriod = v
	}
	if v := getenv("PRICECAST_MAX_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRICECAST_MAX_HORIZON: %w", err)
		}
		c.Forecast.MaxHorizon = n
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	return nil
}

// HasSink reports whether the named optional sink is enabled.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.Output.Sinks, name)
}

// NeedsClickHouse reports whether any component reads from or writes to ClickHouse.
func (c *Config) NeedsClickHouse() bool {
	return c.Input.Source == SourceClickHouse || c.HasSink(SinkClickHouse)
}

// Validate checks struct tags and the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !util.IsPeriod(c.Forecast.TargetPeriod) {
		return fmt.Errorf("forecast.target_period must be YYYY-MM, got %q", c.Forecast.TargetPeriod)
	}
	if c.Input.Source == SourceFile && c.Input.Path == "" {
		return fmt.Errorf("input.path is required for the file source")
	}
	if c.NeedsClickHouse() && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is used")
	}
	if c.Input.Source == SourceClickHouse && c.Input.Table == "" {
		return fmt.Errorf("input.table is required for the clickhouse source")
	}
	if c.HasSink(SinkKafka) || c.Kafka.Rebuild.Topic != "" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is used")
		}
	}
	if c.HasSink(SinkKafka) && c.Kafka.ForecastsTopic == "" {
		return fmt.Errorf("kafka.forecasts_topic is required for the kafka sink")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Kafka.Rebuild.BackoffMin > c.Kafka.Rebuild.BackoffMax {
		return fmt.Errorf("kafka.rebuild.backoff_min must not exceed backoff_max")
	}
	return nil
}
