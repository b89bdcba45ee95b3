package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:              "development",
		Port:             "8080",
		MongoURI:         "mongodb://localhost:27017",
		JWTSecret:        "a-very-long-secret-that-is-definitely-32-chars",
		JWTTTLHours:      24,
		MediaBackend:     MediaBackendLocal,
		MediaDir:         "./uploads",
		MaxUploadMB:      10,
		AllowedOrigins:   "https://flexbase.app",
		OTelSamplingRate: 0.5,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "flexbase", cfg.MongoDatabase)
	assert.Equal(t, MediaBackendLocal, cfg.MediaBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout())
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "  TEST ")
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("MONGODB_TRANSACTIONS", "true")
	t.Setenv("MEDIA_BACKEND", "S3")
	t.Setenv("S3_BUCKET", "flexbase-media")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.True(t, cfg.IsTest())
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, MediaBackendS3, cfg.MediaBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("MEDIA_BACKEND", "ftp")

	_, err := load(viper.New())
	assert.ErrorContains(t, err, "MEDIA_BACKEND")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"zero ttl", func(c *Config) { c.JWTTTLHours = 0 }, "JWT_TTL_HOURS"},
		{"zero upload", func(c *Config) { c.MaxUploadMB = 0 }, "MAX_UPLOAD_MB"},
		{"sampling out of range", func(c *Config) { c.OTelSamplingRate = 1.5 }, "OTEL_SAMPLING_RATE"},
		{"s3 without bucket", func(c *Config) { c.MediaBackend = MediaBackendS3 }, "S3_BUCKET"},
		{"local without dir", func(c *Config) { c.MediaDir = "" }, "MEDIA_DIR"},
		{"production valid", func(c *Config) { c.Env = "production" }, ""},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = DefaultJWTSecret
		}, "default value"},
		{"production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, "32 characters"},
		{"production without mongo", func(c *Config) {
			c.Env = "production"
			c.MongoURI = ""
		}, "MONGODB_URI"},
		{"production wildcard origin", func(c *Config) {
			c.Env = "production"
			c.AllowedOrigins = "https://flexbase.app,*"
		}, "ALLOWED_ORIGINS"},
		{"development wildcard origin", func(c *Config) { c.AllowedOrigins = "*" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
