// Package config loads FlexBase settings from .env, an optional config.yml
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultJWTSecret = "flexbase-dev-secret-change-me"

	MediaBackendLocal = "local"
	MediaBackendS3    = "s3"
)

// Config holds application configuration values
type Config struct {
	Env                 string  `mapstructure:"APP_ENV"`
	Port                string  `mapstructure:"PORT"`
	MongoURI            string  `mapstructure:"MONGODB_URI"`
	MongoDatabase       string  `mapstructure:"MONGODB_DATABASE"`
	MongoTransactions   bool    `mapstructure:"MONGODB_TRANSACTIONS"`
	JWTSecret           string  `mapstructure:"JWT_SECRET"`
	JWTTTLHours         int     `mapstructure:"JWT_TTL_HOURS"`
	RedisURL            string  `mapstructure:"REDIS_URL"`
	MediaBackend        string  `mapstructure:"MEDIA_BACKEND"`
	MediaDir            string  `mapstructure:"MEDIA_DIR"`
	MediaBaseURL        string  `mapstructure:"MEDIA_BASE_URL"`
	MaxUploadMB         int64   `mapstructure:"MAX_UPLOAD_MB"`
	AWSRegion           string  `mapstructure:"AWS_REGION"`
	S3Bucket            string  `mapstructure:"S3_BUCKET"`
	S3Endpoint          string  `mapstructure:"S3_ENDPOINT"`
	CDNBaseURL          string  `mapstructure:"CDN_BASE_URL"`
	LogLevel            string  `mapstructure:"LOG_LEVEL"`
	LogFile             string  `mapstructure:"LOG_FILE"`
	AllowedOrigins      string  `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitRPM        int     `mapstructure:"RATE_LIMIT_RPM"`
	OTelEnabled         bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint        string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRate    float64 `mapstructure:"OTEL_SAMPLING_RATE"`
	ServiceName         string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion      string  `mapstructure:"SERVICE_VERSION"`
	ShutdownTimeoutSecs int     `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

var defaults = map[string]any{
	"APP_ENV":                     "development",
	"PORT":                        "8080",
	"MONGODB_URI":                 "mongodb://localhost:27017",
	"MONGODB_DATABASE":            "flexbase",
	"MONGODB_TRANSACTIONS":        false,
	"JWT_SECRET":                  DefaultJWTSecret,
	"JWT_TTL_HOURS":               24 * 7,
	"REDIS_URL":                   "",
	"MEDIA_BACKEND":               MediaBackendLocal,
	"MEDIA_DIR":                   "./uploads",
	"MEDIA_BASE_URL":              "/media",
	"MAX_UPLOAD_MB":               50,
	"AWS_REGION":                  "us-east-1",
	"S3_BUCKET":                   "",
	"S3_ENDPOINT":                 "",
	"CDN_BASE_URL":                "",
	"LOG_LEVEL":                   "info",
	"LOG_FILE":                    "",
	"ALLOWED_ORIGINS":             "http://localhost:3000,http://localhost:8080",
	"RATE_LIMIT_RPM":              300,
	"OTEL_ENABLED":                false,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4318",
	"OTEL_SAMPLING_RATE":          0.1,
	"SERVICE_NAME":                "flexbase",
	"SERVICE_VERSION":             "dev",
	"SHUTDOWN_TIMEOUT_SECONDS":    30,
}

// Load reads .env (if present), then config.yml (if present), then the
// environment, and validates the result
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.SetConfigName("config")
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.MediaBackend = strings.ToLower(strings.TrimSpace(c.MediaBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate ensures required values are present and production settings are safe
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTLHours <= 0 {
		return errors.New("JWT_TTL_HOURS must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	if c.OTelSamplingRate < 0 || c.OTelSamplingRate > 1 {
		return errors.New("OTEL_SAMPLING_RATE must be between 0 and 1")
	}

	switch c.MediaBackend {
	case MediaBackendLocal:
		if c.MediaDir == "" {
			return errors.New("MEDIA_DIR is required for the local media backend")
		}
	case MediaBackendS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when MEDIA_BACKEND=s3")
		}
	default:
		return fmt.Errorf("MEDIA_BACKEND must be %q or %q", MediaBackendLocal, MediaBackendS3)
	}

	if c.IsProduction() {
		if c.JWTSecret == DefaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required in production")
		}
		for _, origin := range c.Origins() {
			if origin == "*" {
				return errors.New("ALLOWED_ORIGINS must not contain '*' in production")
			}
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production deployment
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsTest reports whether the server should run on the in-memory store
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

// Origins splits ALLOWED_ORIGINS
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// TokenTTL is the lifetime of issued session tokens
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

// MaxUploadBytes is MAX_UPLOAD_MB in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// ShutdownTimeout bounds graceful shutdown
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}
