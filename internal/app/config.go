package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration shared by the PTF binaries. A
// missing required value is a startup-time fatal error, never a panic
// deep in request handling.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	LinkCacheTTL time.Duration `envconfig:"LINK_CACHE_TTL" default:"5m"`

	// HashWorkers bounds concurrent password derivations independently
	// of HTTP concurrency; zero means one per CPU.
	HashWorkers int64 `envconfig:"HASH_WORKERS" default:"0"`

	// AuthServiceAddress is where relying services reach the authority.
	AuthServiceAddress string        `envconfig:"AUTH_SERVICE_ADDRESS" default:"http://127.0.0.1:8081"`
	AuthClientTimeout  time.Duration `envconfig:"AUTH_CLIENT_TIMEOUT" default:"10s"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
