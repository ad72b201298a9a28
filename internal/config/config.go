package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvDockerDev   = "dockerdev"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// sessions & auth
	SessionBackend              string `toml:"session_backend"` // redis | memory
	SessionTTLHours             int    `toml:"session_ttl_hours"`
	SessionCacheSeconds         int    `toml:"session_cache_seconds"`
	PasswordHashCost            int    `toml:"password_hash_cost"`
	LoginRateLimitAllowedPerMin int    `toml:"login_rate_limit_allowed_per_min"`

	// live workouts
	LiveWorkoutTTLHours int `toml:"live_workout_ttl_hours"`

	AllowedOrigins []string `toml:"allowed_origins"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) SessionCacheTTL() time.Duration {
	return time.Duration(c.SessionCacheSeconds) * time.Second
}

func (c *Config) LiveWorkoutTTL() time.Duration {
	return time.Duration(c.LiveWorkoutTTLHours) * time.Hour
}

type Toml struct {
	Development *Config `toml:"development"`
	Production  *Config `toml:"production"`
	DockerDev   *Config `toml:"dockerdev"`
}

func (t *Toml) Get(env string) (*Config, error) {
	normalized, err := NormalizeEnv(env)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	switch normalized {
	case EnvDevelopment:
		cfg = t.Development
	case EnvProduction:
		cfg = t.Production
	case EnvDockerDev:
		cfg = t.DockerDev
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", normalized)
	}

	cfg.Environment = normalized
	return cfg, nil
}

func NormalizeEnv(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "prod", "production":
		return EnvProduction, nil
	case "ddev", "dockerdev":
		return EnvDockerDev, nil
	default:
		return "", fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the section for env,
// with unset values replaced by defaults.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config [%s]: %w", cfg.Environment, err)
	}

	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.SessionBackend == "" {
		c.SessionBackend = "redis"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24 * 7
	}
	if c.SessionCacheSeconds == 0 {
		c.SessionCacheSeconds = 30
	}
	if c.LoginRateLimitAllowedPerMin == 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
	if c.LiveWorkoutTTLHours == 0 {
		c.LiveWorkoutTTLHours = 12
	}
}

func (c *Config) Validate() error {
	if c.PostgresHost == "" || c.PostgresDBName == "" {
		return fmt.Errorf("postgres host and db name are required")
	}
	switch c.SessionBackend {
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("redis host is required for the redis session backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown session backend: %s", c.SessionBackend)
	}
	if c.SessionTTLHours < 0 || c.SessionCacheSeconds < 0 || c.LiveWorkoutTTLHours < 0 {
		return fmt.Errorf("ttl values must not be negative")
	}
	return nil
}
