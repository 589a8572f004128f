package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseDriver   string        `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	Port             string        `mapstructure:"PORT"`
	LogMode          string        `mapstructure:"LOG_MODE"`
	CORSOrigins      string        `mapstructure:"CORS_ORIGINS"`
	OperationTimeout time.Duration `mapstructure:"OPERATION_TIMEOUT"`
	MetricsEnabled   bool          `mapstructure:"METRICS_ENABLED"`
	OtelEnabled      bool          `mapstructure:"OTEL_ENABLED"`
	OtelEndpoint     string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelSampleRatio  float64       `mapstructure:"OTEL_SAMPLER_RATIO"`
}

var AppConfig *Config

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_MODE", "dev")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("OPERATION_TIMEOUT", "10s")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.OtelSampleRatio < 0 {
		cfg.OtelSampleRatio = 0
	}
	if cfg.OtelSampleRatio > 1 {
		cfg.OtelSampleRatio = 1
	}

	AppConfig = &cfg
	return &cfg, nil
}

// AllowedOrigins splits CORS_ORIGINS into a clean list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
