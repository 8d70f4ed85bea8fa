package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Cache  CacheConfig  `mapstructure:"cache" validate:"required"`
	Batch  BatchConfig  `mapstructure:"batch" validate:"required"`
	LLM    LLMConfig    `mapstructure:"llm" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// CacheConfig contains the work cache settings.
type CacheConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// BatchConfig contains the default batch processing options. Per-batch
// requests may override any of them within the same bounds.
type BatchConfig struct {
	GroupSize                int `mapstructure:"group_size" validate:"required,gt=0"`
	TimeoutSeconds           int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries               int `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitIntervalSeconds int `mapstructure:"rate_limit_interval_seconds" validate:"gte=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name" validate:"required"`
}
