package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Quota    QuotaConfig    `mapstructure:"quota" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gt=0"`
	CardsPerTopic     int    `mapstructure:"cards_per_topic" validate:"gt=0,lte=50"`
}

// RedisConfig contains settings for the quota snapshot cache.
type RedisConfig struct {
	Addr               string `mapstructure:"addr" validate:"required"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db" validate:"gte=0"`
	SnapshotTTLSeconds int    `mapstructure:"snapshot_ttl_seconds" validate:"gt=0"`
}

// QuotaConfig defines the daily limits for each subscription plan and the
// sizing of the per-user gate registry. The unlimited plan has no limits and
// therefore no limit settings here.
type QuotaConfig struct {
	FreeSessionsPerDay    int `mapstructure:"free_sessions_per_day" validate:"gte=0"`
	FreeGenerationsPerDay int `mapstructure:"free_generations_per_day" validate:"gte=0"`
	ProSessionsPerDay     int `mapstructure:"pro_sessions_per_day" validate:"gte=0"`
	ProGenerationsPerDay  int `mapstructure:"pro_generations_per_day" validate:"gte=0"`
	GateCacheSize         int `mapstructure:"gate_cache_size" validate:"gt=0"`
}

// TaskConfig contains settings for the background task processing system.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gt=0"`
}
