// Package config provides configuration loading and management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourorg/mandi-compare/internal/insight"
	"github.com/yourorg/mandi-compare/internal/validation"
)

// EnvPrefix is prepended to every environment variable, e.g. MANDI_PORT
const EnvPrefix = "MANDI"

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string `mapstructure:"port" validate:"required"`

	// Catalog file path or http(s) URL; empty selects the embedded sample catalog
	Catalog string `mapstructure:"catalog"`

	// Per-request timeout for the HTTP adapter
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`

	// Logging
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`

	// Impact thresholds for potential savings
	Impact insight.Thresholds `mapstructure:"impact"`

	// Number of workers evaluating markets; 0 or 1 evaluates sequentially
	Parallelism int `mapstructure:"parallelism" validate:"gte=0"`

	// Rate limiting for the HTTP adapter; 0 disables it
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gte=0"`

	// Whether to expose Prometheus metrics
	EnableMetrics bool `mapstructure:"enable_metrics"`

	// Whether to sign comparison responses
	SealResults bool `mapstructure:"seal_results"`

	// OpenTelemetry endpoint for observability
	OtelEndpoint string `mapstructure:"otel_endpoint"`

	// IQR multiplier for the catalog price audit; 0 disables the audit
	PriceAuditIQR float64 `mapstructure:"price_audit_iqr" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	th := insight.DefaultThresholds()

	v.SetDefault("port", "8080")
	v.SetDefault("catalog", "")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("impact.high", th.High)
	v.SetDefault("impact.medium", th.Medium)
	v.SetDefault("parallelism", 0)
	v.SetDefault("rate_limit_rps", 0.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("enable_metrics", true)
	v.SetDefault("seal_results", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("price_audit_iqr", 1.5)
}

// Load reads configuration with the following priority:
// 1. Environment variables (MANDI_ prefix, .env file supported)
// 2. Config file (configPath, or config.yaml in . or ./configs)
// 3. Defaults
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Standard OTLP variable is honoured as well
	if err := v.BindEnv("otel_endpoint", EnvPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); err != nil {
		return nil, fmt.Errorf("failed to bind otel endpoint: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars and defaults apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error (for use in main)
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
