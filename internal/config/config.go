package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs"      validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"    validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// SRSConfig tunes the spaced-repetition scheduler. The defaults implement
// the standard SM-2 ladder; every threshold can be overridden per deployment.
type SRSConfig struct {
	InitialIntervalDays float64 `mapstructure:"initial_interval_days" validate:"required,gt=0"`
	SecondIntervalDays  float64 `mapstructure:"second_interval_days"  validate:"required,gt=0"`
	PassThreshold       int     `mapstructure:"pass_threshold"        validate:"required,min=1,max=5"`
	MasteryRepetitions  int     `mapstructure:"mastery_repetitions"   validate:"required,min=1"`
	MasteryIntervalDays float64 `mapstructure:"mastery_interval_days" validate:"required,gt=0"`
	HistoryLimit        int     `mapstructure:"history_limit"         validate:"required,min=1"`
	LapsedAfterDays     float64 `mapstructure:"lapsed_after_days"     validate:"required,gt=0"`
}

// CacheConfig bounds the recommendation cache.
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"required,min=1"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,min=1"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,min=1"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,min=1"`
}
