package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables with the LUMO_ prefix
// (e.g. LUMO_SERVER_PORT, LUMO_DATABASE_URL). Missing variables fall back to
// defaults where one exists; required settings without a usable value fail
// validation. Returns a populated Config struct or an error.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults double as the key registry: viper only surfaces environment
	// variables for keys it already knows, so even the required settings
	// get a (failing) default here.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("srs.initial_interval_days", 1.0)
	v.SetDefault("srs.second_interval_days", 6.0)
	v.SetDefault("srs.pass_threshold", 3)
	v.SetDefault("srs.mastery_repetitions", 8)
	v.SetDefault("srs.mastery_interval_days", 60.0)
	v.SetDefault("srs.history_limit", 50)
	v.SetDefault("srs.lapsed_after_days", 14.0)

	v.SetDefault("cache.max_entries", 1024)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 50)
	v.SetDefault("task.stuck_task_age_minutes", 30)

	// Environment variables take precedence: LUMO_SERVER_PORT overrides
	// the server.port default.
	v.SetEnvPrefix("LUMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
