package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RateSourceExchangeRateAPI = "exchangerate-api"
	RateSourceMock            = "mock"

	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all runtime configuration derived from environment variables.
type Config struct {
	APIKey               string
	APIBaseURL           string
	RateSource           string
	FetchTimeout         time.Duration
	RatesStaleTime       time.Duration
	RatesRefreshInterval time.Duration
	StorageBackend       string
	StorageDir           string
	RedisURL             string
	RedisKeyPrefix       string
	DefaultSource        string
	DefaultTheme         string
	HTTPAddr             string
	HTTPPort             string
	RateLimitRPS         int
	LogLevel             string
}

// Load reads environment variables using viper and returns a typed config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	bindEnv(v, "api_key", "EXCHANGE_RATE_API_KEY", "WIDGET_API_KEY", "VITE_API_KEY")
	bindEnv(v, "api_base_url", "EXCHANGE_RATE_BASE_URL", "WIDGET_API_BASE_URL")
	bindEnv(v, "rate_source", "RATE_SOURCE", "WIDGET_RATE_SOURCE")
	bindEnv(v, "fetch_timeout", "FETCH_TIMEOUT", "WIDGET_FETCH_TIMEOUT")
	bindEnv(v, "rates_stale_time", "RATES_STALE_TIME", "WIDGET_RATES_STALE_TIME")
	bindEnv(v, "rates_refresh_interval", "RATES_REFRESH_INTERVAL", "WIDGET_RATES_REFRESH_INTERVAL")
	bindEnv(v, "storage_backend", "STORAGE_BACKEND", "WIDGET_STORAGE_BACKEND")
	bindEnv(v, "storage_dir", "STORAGE_DIR", "WIDGET_STORAGE_DIR")
	bindEnv(v, "redis_url", "REDIS_URL", "WIDGET_REDIS_URL")
	bindEnv(v, "redis_key_prefix", "REDIS_KEY_PREFIX", "WIDGET_REDIS_KEY_PREFIX")
	bindEnv(v, "default_source", "DEFAULT_SOURCE_CURRENCY", "WIDGET_DEFAULT_SOURCE_CURRENCY")
	bindEnv(v, "default_theme", "DEFAULT_THEME", "WIDGET_DEFAULT_THEME")
	bindEnv(v, "http_addr", "HTTP_ADDR", "WIDGET_HTTP_ADDR")
	bindEnv(v, "port", "PORT", "WIDGET_PORT")
	bindEnv(v, "rate_limit_rps", "RATE_LIMIT_RPS", "WIDGET_RATE_LIMIT_RPS")
	bindEnv(v, "log_level", "LOG_LEVEL", "WIDGET_LOG_LEVEL")

	v.SetDefault("api_key", "")
	v.SetDefault("api_base_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("rate_source", RateSourceExchangeRateAPI)
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("rates_stale_time", "10m")
	v.SetDefault("rates_refresh_interval", "10m")
	v.SetDefault("storage_backend", StorageFile)
	v.SetDefault("storage_dir", ".widget")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_key_prefix", "currency-widget")
	v.SetDefault("default_source", "USD")
	v.SetDefault("default_theme", "light")
	v.SetDefault("http_addr", "127.0.0.1")
	v.SetDefault("port", "8080")
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("log_level", "info")

	fetchTimeout, err := time.ParseDuration(v.GetString("fetch_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	staleTime, err := time.ParseDuration(v.GetString("rates_stale_time"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATES_STALE_TIME: %w", err)
	}
	refreshInterval, err := time.ParseDuration(v.GetString("rates_refresh_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATES_REFRESH_INTERVAL: %w", err)
	}

	cfg := &Config{
		APIKey:               strings.TrimSpace(v.GetString("api_key")),
		APIBaseURL:           strings.TrimRight(v.GetString("api_base_url"), "/"),
		RateSource:           strings.ToLower(v.GetString("rate_source")),
		FetchTimeout:         fetchTimeout,
		RatesStaleTime:       staleTime,
		RatesRefreshInterval: refreshInterval,
		StorageBackend:       strings.ToLower(v.GetString("storage_backend")),
		StorageDir:           v.GetString("storage_dir"),
		RedisURL:             v.GetString("redis_url"),
		RedisKeyPrefix:       v.GetString("redis_key_prefix"),
		DefaultSource:        strings.ToUpper(v.GetString("default_source")),
		DefaultTheme:         strings.ToLower(v.GetString("default_theme")),
		HTTPAddr:             v.GetString("http_addr"),
		HTTPPort:             v.GetString("port"),
		RateLimitRPS:         max(v.GetInt("rate_limit_rps"), 1),
		LogLevel:             v.GetString("log_level"),
	}

	switch cfg.RateSource {
	case RateSourceExchangeRateAPI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("EXCHANGE_RATE_API_KEY is required")
		}
	case RateSourceMock:
	default:
		return nil, fmt.Errorf("unsupported RATE_SOURCE %q", cfg.RateSource)
	}

	switch cfg.StorageBackend {
	case StorageFile:
		if strings.TrimSpace(cfg.StorageDir) == "" {
			return nil, fmt.Errorf("STORAGE_DIR is required for the file storage backend")
		}
	case StorageRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis storage backend")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.FetchTimeout <= 0 || cfg.RatesStaleTime <= 0 || cfg.RatesRefreshInterval <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT, RATES_STALE_TIME and RATES_REFRESH_INTERVAL must be positive")
	}
	if cfg.DefaultTheme != "light" && cfg.DefaultTheme != "dark" {
		return nil, fmt.Errorf("DEFAULT_THEME must be light or dark")
	}

	return cfg, nil
}

// Addr is the listen address of the local HTTP adapter.
func (c *Config) Addr() string {
	return c.HTTPAddr + ":" + c.HTTPPort
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}
