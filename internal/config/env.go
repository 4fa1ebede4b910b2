package config

import (
	"fmt"

	pkgconfig "github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvOverrides.
const EnvPrefix = "CHAINDEMUX"

// envOverrides are the settings that can be replaced from the environment,
// e.g. CHAINDEMUX_DB_PATH=/data/state.db.
type envOverrides struct {
	LogLevel       string `envconfig:"LOG_LEVEL"`
	DBPath         string `envconfig:"DB_PATH"`
	SourcePath     string `envconfig:"SOURCE_PATH"`
	RedisAddress   string `envconfig:"REDIS_ADDRESS"`
	MetricsAddress string `envconfig:"METRICS_ADDRESS"`
}

// ApplyEnvOverrides replaces file settings with the CHAINDEMUX_* environment variables that are set.
// Setting the Redis or metrics address enables the corresponding section.
func ApplyEnvOverrides(cfg *pkgconfig.Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if env.LogLevel != "" {
		if cfg.Logging == nil {
			cfg.Logging = &pkgconfig.LoggingConfig{}
		}
		cfg.Logging.DefaultLevel = env.LogLevel
	}

	if env.DBPath != "" {
		cfg.DB.Path = env.DBPath
	}

	if env.SourcePath != "" {
		cfg.Source.Path = env.SourcePath
	}

	if env.RedisAddress != "" {
		if cfg.Notifications == nil {
			cfg.Notifications = &pkgconfig.NotificationsConfig{}
		}
		cfg.Notifications.Address = env.RedisAddress
	}

	if env.MetricsAddress != "" {
		if cfg.Metrics == nil {
			cfg.Metrics = &pkgconfig.MetricsConfig{}
		}
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = env.MetricsAddress
	}

	return nil
}
