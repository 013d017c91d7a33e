package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// prometheus metrics listener
	MetricsHost string `toml:"metrics_host"`
	MetricsPort string `toml:"metrics_port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// storage: memory | file | redis | postgres
	StoreBackend   string `toml:"store_backend"`
	DataDir        string `toml:"data_dir"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	RedisKeyPrefix string `toml:"redis_key_prefix"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	CacheEnabled   bool   `toml:"cache_enabled"`
	CacheSizeMB    int    `toml:"cache_size_mb"`
	// http api
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the section for env,
// with defaults applied for the unset values.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env [%s] missing", env)
	}

	cfg.applyDefaults(env)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(env string) {
	if c.Environment == "" {
		c.Environment = strings.ToLower(env)
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.MetricsPort == "" {
		c.MetricsPort = "2112"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.StoreBackend == "" {
		c.StoreBackend = "file"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.CacheSizeMB == 0 {
		c.CacheSizeMB = 10
	}
	if c.RateLimitPerMin == 0 {
		c.RateLimitPerMin = 120
	}
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "file":
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("redis store: redis_host not set")
		}
	case "postgres":
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return fmt.Errorf("postgres store: postgres_host and postgres_db_name must be set")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("invalid rate_limit_per_min: %d", c.RateLimitPerMin)
	}
	return nil
}
