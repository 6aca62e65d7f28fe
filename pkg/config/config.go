package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"DemandLoop/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Path string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Storage struct {
		Driver   string `yaml:"driver" default:"postgres"` // postgres | memory
		SeedFile string `yaml:"seed_file"`                 // places CSV loaded at startup by the memory driver
	} `yaml:"storage"`
	Postgres struct {
		DSN            string        `yaml:"dsn"`
		MaxConns       int32         `yaml:"max_conns" default:"10"`
		MinConns       int32         `yaml:"min_conns" default:"1"`
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"5s"`
		ConnLifetime   time.Duration `yaml:"conn_lifetime" default:"30m"`
		SkipMigrations bool          `yaml:"skip_migrations"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		SignalsTopic     string   `yaml:"signals_topic" default:"demand.signals"`
		PredictionsTopic string   `yaml:"predictions_topic" default:"demand.predictions"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1"`
		Compression      string   `yaml:"compression" default:"snappy"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"demand-loop"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"demand.signals.dlq"`
		} `yaml:"consumer"`
		Breaker struct {
			FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
			MaxRequests      uint32        `yaml:"max_requests" default:"1"`
			Timeout          time.Duration `yaml:"timeout" default:"30s"`
		} `yaml:"breaker"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"demand"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Recompute struct {
		Window           time.Duration `yaml:"window" default:"120m"`
		Interval         time.Duration `yaml:"interval" default:"5m"`
		DisableScheduler bool          `yaml:"disable_scheduler"`
		Workers          int           `yaml:"workers" default:"4"`
		VenueThrottle    time.Duration `yaml:"venue_throttle" default:"15s"`
	} `yaml:"recompute"`
	RateLimit struct {
		Backend       string        `yaml:"backend" default:"memory"` // memory | redis
		Max           int           `yaml:"max" default:"6"`
		Window        time.Duration `yaml:"window" default:"10m"`
		EvictInterval time.Duration `yaml:"evict_interval" default:"1m"`
	} `yaml:"rate_limit"`
	Cache struct {
		TrendingTTL time.Duration `yaml:"trending_ttl" default:"30s"`
	} `yaml:"cache"`
	Live struct {
		SendBuffer   int           `yaml:"send_buffer" default:"16"`
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"live"`
	Dev struct {
		RecomputeEnabled bool `yaml:"recompute_enabled"`
	} `yaml:"dev"`
}

// Load reads and parses a YAML configuration file, applying defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment. Setting an infrastructure address enables it.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Postgres.DSN = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v, ok := lookup("CLICKHOUSE_HOST"); ok && v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v, ok := lookup("PORT"); ok {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("RATE_LIMIT_BACKEND"); ok && v != "" {
		c.RateLimit.Backend = v
	}
	if v, ok := lookup("DEV_RECOMPUTE_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Dev.RecomputeEnabled = b
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for storage.driver=postgres")
		}
	default:
		return fmt.Errorf("storage.driver must be 'postgres' or 'memory', got '%s'", c.Storage.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("rate_limit.backend=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("rate_limit.backend must be 'memory' or 'redis', got '%s'", c.RateLimit.Backend)
	}
	if c.RateLimit.Max < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.max and rate_limit.window must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Recompute.Workers < 1 {
		return fmt.Errorf("recompute.workers must be at least 1")
	}
	if c.Recompute.Window <= 0 {
		return fmt.Errorf("recompute.window must be positive")
	}
	return nil
}
