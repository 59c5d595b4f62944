package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	apperrors "mongo-testkit/internal/shared/errors"
)

// Sequence backends
const (
	SequenceBackendMemory = "memory"
	SequenceBackendRedis  = "redis"
)

// LogConfig selects the logging backend and its verbosity.
type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"text"`
	Backend string `env:"LOG_BACKEND" envDefault:"logrus"`
}

// RedisConfig holds the connection settings for the shared run counter.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`

	// KeyPrefix namespaces the counters shared by every process of a CI job.
	KeyPrefix string `env:"REDIS_SEQUENCE_KEY_PREFIX" envDefault:"testkit:sequence:"`
}

// GetAddr returns host:port
func (c RedisConfig) GetAddr() string {
	return c.Host + ":" + c.Port
}

// Config holds all configuration for the testkit module.
type Config struct {
	MongoDBURI             string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabasePrefix         string        `env:"TESTKIT_DATABASE_PREFIX" envDefault:"MongoTest-"`
	AppName                string        `env:"TESTKIT_APP_NAME" envDefault:"mongo-testkit"`
	ConnectTimeout         time.Duration `env:"TESTKIT_CONNECT_TIMEOUT" envDefault:"10s"`
	ServerSelectionTimeout time.Duration `env:"TESTKIT_SERVER_SELECTION_TIMEOUT" envDefault:"10s"`
	MaxPoolSize            uint64        `env:"TESTKIT_MAX_POOL_SIZE" envDefault:"20"`

	// IgnoredDiagnostics lists driver log messages dropped before they reach the logger.
	IgnoredDiagnostics []string `env:"TESTKIT_IGNORED_DIAGNOSTICS" envSeparator:","`

	SequenceBackend string `env:"TESTKIT_SEQUENCE_BACKEND" envDefault:"memory"`

	Redis RedisConfig
	Log   LogConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Nested structs without a prefix tag are parsed with the parent.
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load testkit configuration from environment: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MongoDBURI:             "mongodb://localhost:27017",
		DatabasePrefix:         "MongoTest-",
		AppName:                "mongo-testkit",
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 10 * time.Second,
		MaxPoolSize:            20,
		SequenceBackend:        SequenceBackendMemory,
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: "30m",
			ConnMaxLifetime: "1h",
			KeyPrefix:       "testkit:sequence:",
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Backend: "logrus",
		},
	}
}

// Validate checks the values that would otherwise fail late, at connect time.
func (c *Config) Validate() error {
	ve := apperrors.NewValidationErrors()
	switch {
	case c.MongoDBURI == "":
		ve.Add("MONGODB_URI", "MONGODB_URI must not be empty", c.MongoDBURI)
	case !strings.HasPrefix(c.MongoDBURI, "mongodb://") && !strings.HasPrefix(c.MongoDBURI, "mongodb+srv://"):
		ve.Add("MONGODB_URI", fmt.Sprintf("MONGODB_URI must use the mongodb:// or mongodb+srv:// scheme, got %q", c.MongoDBURI), c.MongoDBURI)
	}
	switch {
	case c.DatabasePrefix == "":
		ve.Add("TESTKIT_DATABASE_PREFIX", "TESTKIT_DATABASE_PREFIX must not be empty", c.DatabasePrefix)
	// MongoDB database names cannot contain these characters.
	case strings.ContainsAny(c.DatabasePrefix, `/\. "$`):
		ve.Add("TESTKIT_DATABASE_PREFIX", fmt.Sprintf("TESTKIT_DATABASE_PREFIX %q contains characters not allowed in database names", c.DatabasePrefix), c.DatabasePrefix)
	}
	switch c.SequenceBackend {
	case SequenceBackendMemory, SequenceBackendRedis:
	default:
		ve.Add("TESTKIT_SEQUENCE_BACKEND", fmt.Sprintf("TESTKIT_SEQUENCE_BACKEND must be %q or %q, got %q",
			SequenceBackendMemory, SequenceBackendRedis, c.SequenceBackend), c.SequenceBackend)
	}

	if appErr := ve.ToAppError(); appErr != nil {
		return appErr.WithComponent("config")
	}
	return nil
}
