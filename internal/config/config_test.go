package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("StoppageTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{StoppageTimeoutSeconds: 60}
		assert.Equal(t, 60*time.Second, cfg.StoppageTimeout())
	})

	t.Run("SnapshotDebounce converts milliseconds to duration", func(t *testing.T) {
		cfg := &Config{SnapshotDebounceMS: 500}
		assert.Equal(t, 500*time.Millisecond, cfg.SnapshotDebounce())
	})

	t.Run("WriteTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{WriteTimeoutSeconds: 10}
		assert.Equal(t, 10*time.Second, cfg.WriteTimeout())
	})

	t.Run("RetentionCutoff converts days to duration", func(t *testing.T) {
		cfg := &Config{RetentionDays: 30}
		assert.Equal(t, 30*24*time.Hour, cfg.RetentionCutoff())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoppageTimeoutSeconds: 60,
			SnapshotDebounceMS:     500,
			WriteMaxRetries:        3,
			TickIntervalSeconds:    1,
			RetentionDays:          30,
		}
	}

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate(true))
	})

	t.Run("rejects non-positive stoppage timeout", func(t *testing.T) {
		cfg := valid()
		cfg.StoppageTimeoutSeconds = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive debounce", func(t *testing.T) {
		cfg := valid()
		cfg.SnapshotDebounceMS = -1
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects zero retries", func(t *testing.T) {
		cfg := valid()
		cfg.WriteMaxRetries = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("retention only enforced in production", func(t *testing.T) {
		cfg := valid()
		cfg.RetentionDays = 0
		assert.NoError(t, cfg.Validate(false))
		assert.Error(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                     os.Getenv("PORT"),
		"DATABASE_URL":             os.Getenv("DATABASE_URL"),
		"REDIS_URL":                os.Getenv("REDIS_URL"),
		"STOPPAGE_TIMEOUT_SECONDS": os.Getenv("STOPPAGE_TIMEOUT_SECONDS"),
		"SNAPSHOT_DEBOUNCE_MS":     os.Getenv("SNAPSHOT_DEBOUNCE_MS"),
		"WRITE_MAX_RETRIES":        os.Getenv("WRITE_MAX_RETRIES"),
		"LOG_LEVEL":                os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("STOPPAGE_TIMEOUT_SECONDS")
		os.Unsetenv("SNAPSHOT_DEBOUNCE_MS")
		os.Unsetenv("WRITE_MAX_RETRIES")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 60, cfg.StoppageTimeoutSeconds)
		assert.Equal(t, 500, cfg.SnapshotDebounceMS)
		assert.Equal(t, 3, cfg.WriteMaxRetries)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("STOPPAGE_TIMEOUT_SECONDS", "90")
		os.Setenv("SNAPSHOT_DEBOUNCE_MS", "250")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 90, cfg.StoppageTimeoutSeconds)
		assert.Equal(t, 250, cfg.SnapshotDebounceMS)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required values", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
