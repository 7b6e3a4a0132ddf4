package config

import "time"

// LLMConfig represents the configuration for the generation provider
type LLMConfig struct {
	Provider    string
	Timeout     time.Duration
	Temperature float32
	TopP        float32
}

// ModelsConfig maps model tiers to provider model names and token limits
type ModelsConfig struct {
	Primary          string
	Fast             string
	Classification   string
	MaxTokensPrimary int
	MaxTokensFast    int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region  string
	ModelID string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	ModelName string
}

// RoutingConfig holds the classifier and input-validation thresholds
type RoutingConfig struct {
	ConfidenceThreshold    float64
	ComplexLengthThreshold int
	MaxInputLength         int
}

// QualityConfig holds validation and approval thresholds
type QualityConfig struct {
	Threshold             float64
	AutoApprovalThreshold float64
	AllowedEmailDomains   []string
}

// CostConfig holds daily spend governance limits
type CostConfig struct {
	MaxDailyUSD float64
	AlertAtUSD  float64
}

// BreakerConfig holds circuit breaker tuning
type BreakerConfig struct {
	FailureThreshold int
	Timeout          time.Duration
}

// AlertConfig holds error-alert policy tuning
type AlertConfig struct {
	Enabled       bool
	FailureWindow time.Duration
	FailureCount  int
	Cooldown      time.Duration
}

// GetLLM returns the generation provider configuration
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		Timeout:     timeout,
		Temperature: float32(c.GetFloat64("llm.temperature")),
		TopP:        float32(c.GetFloat64("llm.top_p")),
	}
}

// GetModels returns the model tier configuration
func (c *Config) GetModels() ModelsConfig {
	return ModelsConfig{
		Primary:          c.GetString("models.primary"),
		Fast:             c.GetString("models.fast"),
		Classification:   c.GetString("models.classification"),
		MaxTokensPrimary: c.GetInt("models.max_tokens_primary"),
		MaxTokensFast:    c.GetInt("models.max_tokens_fast"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey: c.GetString("openai.api_key"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:  c.GetString("bedrock.region"),
		ModelID: c.GetString("bedrock.model_id"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:    c.GetString("gemini.api_key"),
		ModelName: c.GetString("gemini.model_name"),
	}
}

// GetRouting returns the routing configuration
func (c *Config) GetRouting() RoutingConfig {
	return RoutingConfig{
		ConfidenceThreshold:    c.GetFloat64("routing.confidence_threshold"),
		ComplexLengthThreshold: c.GetInt("routing.complex_length_threshold"),
		MaxInputLength:         c.GetInt("routing.max_input_length"),
	}
}

// GetQuality returns the quality configuration
func (c *Config) GetQuality() QualityConfig {
	return QualityConfig{
		Threshold:             c.GetFloat64("quality.threshold"),
		AutoApprovalThreshold: c.GetFloat64("quality.auto_approval_threshold"),
		AllowedEmailDomains:   c.GetStringSlice("quality.allowed_email_domains"),
	}
}

// GetCost returns the cost governance configuration
func (c *Config) GetCost() CostConfig {
	return CostConfig{
		MaxDailyUSD: c.GetFloat64("cost.max_daily_usd"),
		AlertAtUSD:  c.GetFloat64("cost.alert_at_usd"),
	}
}

// GetBreaker returns the circuit breaker configuration
func (c *Config) GetBreaker() BreakerConfig {
	timeout, err := c.GetDuration("breaker.timeout")
	if err != nil {
		timeout = 5 * time.Minute
	}
	return BreakerConfig{
		FailureThreshold: c.GetInt("breaker.failure_threshold"),
		Timeout:          timeout,
	}
}

// GetAlerts returns the alert policy configuration
func (c *Config) GetAlerts() AlertConfig {
	window, err := c.GetDuration("alerts.failure_window")
	if err != nil {
		window = 5 * time.Minute
	}
	cooldown, err := c.GetDuration("alerts.cooldown")
	if err != nil {
		cooldown = 10 * time.Minute
	}
	return AlertConfig{
		Enabled:       c.GetBool("alerts.enabled"),
		FailureWindow: window,
		FailureCount:  c.GetInt("alerts.failure_count"),
		Cooldown:      cooldown,
	}
}
