package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-router/")
	v.AddConfigPath("$HOME/.llm-router")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("LLM_ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.top_p", 0.9)

	// Model tier defaults
	v.SetDefault("models.primary", "gpt-4o")
	v.SetDefault("models.fast", "gpt-3.5-turbo-0125")
	v.SetDefault("models.classification", "gpt-3.5-turbo-0125")
	v.SetDefault("models.max_tokens_primary", 2000)
	v.SetDefault("models.max_tokens_fast", 1000)

	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")

	// Routing defaults
	v.SetDefault("routing.confidence_threshold", 0.8)
	v.SetDefault("routing.complex_length_threshold", 50)
	v.SetDefault("routing.max_input_length", 5000)

	// Quality defaults
	v.SetDefault("quality.threshold", 0.7)
	v.SetDefault("quality.auto_approval_threshold", 0.8)
	v.SetDefault("quality.allowed_email_domains", []string{"company.com", "organization.org"})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl_route", "1h")
	v.SetDefault("cache.ttl_comment", "24h")
	v.SetDefault("cache.ttl_email", "24h")
	v.SetDefault("cache.cleanup_frequency", "5m")
	v.SetDefault("cache.sqlite_path", "/data/llm_router_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/llm_router")

	// Cost governance defaults
	v.SetDefault("cost.max_daily_usd", 100.0)
	v.SetDefault("cost.alert_at_usd", 80.0)

	// Circuit breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.timeout", "5m")

	// Alerting defaults
	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.failure_window", "5m")
	v.SetDefault("alerts.failure_count", 3)
	v.SetDefault("alerts.cooldown", "10m")

	// Metrics defaults
	v.SetDefault("metrics.max_records", 10000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
