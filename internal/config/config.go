package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// CacheConfig contains settings for the optional Redis result cache.
// An empty address disables caching entirely.
type CacheConfig struct {
	RedisAddr  string `mapstructure:"redis_addr"`
	TTLMinutes int    `mapstructure:"ttl_minutes" validate:"gte=0"`
}

// LLMConfig contains all generative-model integration settings.
// GeminiAPIKey may be empty: every operation then degrades to its documented
// fallback or placeholder behavior instead of calling the provider.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	TextModel         string `mapstructure:"text_model"          validate:"required"`
	ImageModel        string `mapstructure:"image_model"         validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}
