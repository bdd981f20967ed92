package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	RedisURL               string `env:"REDIS_URL,required"`
	StoppageTimeoutSeconds int    `env:"STOPPAGE_TIMEOUT_SECONDS" envDefault:"60"`
	SnapshotDebounceMS     int    `env:"SNAPSHOT_DEBOUNCE_MS" envDefault:"500"`
	WriteTimeoutSeconds    int    `env:"WRITE_TIMEOUT_SECONDS" envDefault:"10"`
	WriteMaxRetries        int    `env:"WRITE_MAX_RETRIES" envDefault:"3"`
	TickIntervalSeconds    int    `env:"TICK_INTERVAL_SECONDS" envDefault:"1"`
	RetentionDays          int    `env:"RETENTION_DAYS" envDefault:"30"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) StoppageTimeout() time.Duration {
	return time.Duration(c.StoppageTimeoutSeconds) * time.Second
}

func (c *Config) SnapshotDebounce() time.Duration {
	return time.Duration(c.SnapshotDebounceMS) * time.Millisecond
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

func (c *Config) RetentionCutoff() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.StoppageTimeoutSeconds <= 0 {
		return fmt.Errorf("STOPPAGE_TIMEOUT_SECONDS must be positive")
	}
	if c.SnapshotDebounceMS <= 0 {
		return fmt.Errorf("SNAPSHOT_DEBOUNCE_MS must be positive")
	}
	if c.WriteMaxRetries < 1 {
		return fmt.Errorf("WRITE_MAX_RETRIES must be at least 1")
	}
	if c.TickIntervalSeconds < 1 {
		return fmt.Errorf("TICK_INTERVAL_SECONDS must be at least 1")
	}

	if isProduction {
		if c.RetentionDays < 1 {
			return fmt.Errorf("RETENTION_DAYS must be at least 1 in production")
		}
		if c.SnapshotDebounceMS > 5000 {
			log.Warn().Int("ms", c.SnapshotDebounceMS).Msg("SNAPSHOT_DEBOUNCE_MS is unusually high: snapshot writes will lag board moves")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
