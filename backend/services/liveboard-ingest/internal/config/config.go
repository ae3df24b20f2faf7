package config

import (
	"fmt"
	"strings"
	"time"

	libconfig "liveboard/backend/libs/config"
)

// Trigger authentication modes.
const (
	AuthAnonymous = "anonymous"
	AuthKey       = "key"
	AuthJWT       = "jwt"
)

// Config defines liveboard ingest configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"LIVEBOARD_HTTP_PORT"`
	} `yaml:"http"`
	IRail    IRailConfig    `yaml:"irail"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
}

// IRailConfig configures the upstream liveboard API.
type IRailConfig struct {
	BaseURL   string        `yaml:"baseUrl" env:"IRAIL_BASE_URL" validate:"required,url"`
	Station   string        `yaml:"station" env:"IRAIL_STATION" validate:"required"`
	UserAgent string        `yaml:"userAgent" env:"IRAIL_USER_AGENT" validate:"required"`
	Language  string        `yaml:"language" env:"IRAIL_LANGUAGE" validate:"omitempty,oneof=en nl fr de"`
	Timeout   time.Duration `yaml:"timeout" env:"IRAIL_TIMEOUT" validate:"gt=0"`
}

// DatabaseConfig configures the departures sink. DSN may be empty at startup;
// every invocation then fails with a configuration error instead of connecting.
type DatabaseConfig struct {
	DSN            string        `yaml:"dsn" env:"SQL_CONNECTION_STRING"`
	Table          string        `yaml:"table" env:"SQL_TABLE" validate:"required"`
	BatchSize      int           `yaml:"batchSize" env:"SQL_BATCH_SIZE" validate:"min=1"`
	MaxRetries     int           `yaml:"maxRetries" env:"SQL_MAX_RETRIES" validate:"min=1"`
	RetryDelay     time.Duration `yaml:"retryDelay" env:"SQL_RETRY_DELAY" validate:"gt=0"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" env:"SQL_CONNECT_TIMEOUT" validate:"gt=0"`
}

// RedisConfig configures the optional run summary cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" validate:"gte=0"`
	RunTTL   time.Duration `yaml:"runTtl" env:"REDIS_RUN_TTL" validate:"gt=0"`
}

// AuthConfig guards the trigger endpoint.
type AuthConfig struct {
	Mode      string `yaml:"mode" env:"TRIGGER_AUTH_MODE" validate:"oneof=anonymous key jwt"`
	KeyHash   string `yaml:"keyHash" env:"TRIGGER_KEY_HASH" validate:"required_if=Mode key"`
	JWTSecret string `yaml:"jwtSecret" env:"TRIGGER_JWT_SECRET" validate:"required_if=Mode jwt"`
}

// Default returns configuration with defaults applied.
func Default() *Config {
	cfg := &Config{
		IRail: IRailConfig{
			BaseURL:   "https://api.irail.be",
			Station:   "Gent-Sint-Pieters",
			UserAgent: "liveboard-ingest/1.0",
			Timeout:   10 * time.Second,
		},
		Database: DatabaseConfig{
			Table:          "train_departures",
			BatchSize:      20,
			MaxRetries:     5,
			RetryDelay:     10 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			RunTTL: 24 * time.Hour,
		},
		Auth: AuthConfig{
			Mode: AuthAnonymous,
		},
	}
	cfg.HTTP.Port = "8090"
	return cfg
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = AuthAnonymous
	}

	if err := libconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
