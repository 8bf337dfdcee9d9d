package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:        "production",
		Port:       "5000",
		JWTSecret:  "secure-secret-at-least-32-chars-long",
		DBDriver:   "postgres",
		DBPassword: "secure-password",
		DBSSLMode:  "require",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"default secret in production", func(c *Config) { c.JWTSecret = defaultJWTSecret }, true},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }, true},
		{"weak db password", func(c *Config) { c.DBPassword = "password" }, true},
		{"ssl disabled in production", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"sqlite in production", func(c *Config) { c.DBDriver = "sqlite" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"development allows defaults", func(c *Config) {
			c.Env = "development"
			c.JWTSecret = defaultJWTSecret
			c.DBPassword = "password"
			c.DBSSLMode = "disable"
			c.DBDriver = "sqlite"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, 10, cfg.EventMaxUploadSizeMB)
	assert.True(t, cfg.AllowAdminSignup)
	assert.False(t, cfg.IsProduction())
}
