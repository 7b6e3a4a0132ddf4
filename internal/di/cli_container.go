package di

import (
	"flag"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/classifier"
	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/factory"
	"github.com/taskpilot/llm-router/internal/generation"
	"github.com/taskpilot/llm-router/internal/logging"
	"github.com/taskpilot/llm-router/internal/metrics"
	"github.com/taskpilot/llm-router/internal/pipeline"
	"github.com/taskpilot/llm-router/internal/resilience"
	"github.com/taskpilot/llm-router/internal/validator"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	Temperature float64
	TopP        float64

	// Model tier flags
	PrimaryModel string
	FastModel    string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey string

	// Routing flags
	ConfidenceThreshold float64
	MaxDailyUSD         float64

	// Input flags
	Input      string
	UserID     string
	UserName   string
	Manager    string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	flag.StringVar(&flags.Provider, "provider", "openai", "LLM provider (openai, bedrock, gemini)")
	flag.Float64Var(&flags.Temperature, "temperature", 0.3, "Temperature for LLM generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")

	// Model tier flags
	flag.StringVar(&flags.PrimaryModel, "primary-model", "gpt-4o", "Model used for generation")
	flag.StringVar(&flags.FastModel, "fast-model", "gpt-3.5-turbo-0125", "Model used for fallback and classification")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")

	// Routing flags
	flag.Float64Var(&flags.ConfidenceThreshold, "confidence-threshold", 0.8, "Minimum confidence for cached routing decisions")
	flag.Float64Var(&flags.MaxDailyUSD, "max-daily-usd", 100.0, "Daily LLM spend ceiling in USD")

	// Input flags
	flag.StringVar(&flags.Input, "input", "", "Request to route (use stdin if not specified)")
	flag.StringVar(&flags.UserID, "user-id", "cli", "User ID for the request context")
	flag.StringVar(&flags.UserName, "user-name", "", "User name for the request context")
	flag.StringVar(&flags.Manager, "manager", "", "Manager name for the request context")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register generation client
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.LLMFactory) (core.GenerationClient, error) {
		return f.CreateGenerationClient()
	}); err != nil {
		return nil, err
	}

	// Register in-process collaborators. A one-shot CLI run gets an
	// in-memory cache and default resilience limits; nothing persists.
	if err := container.Provide(func(logger *zap.Logger) core.ResultCache {
		return cache.NewMemoryCache(logger, 100)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(logger *zap.Logger) *metrics.Collector {
		return metrics.NewCollector(logger, 1000)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) *resilience.Governor {
		return resilience.NewGovernor(
			logger,
			resilience.NewBreakerRegistry(resilience.BreakerConfig{}),
			resilience.NewCostLedger(logger, resilience.DefaultPricing(), flags.MaxDailyUSD, flags.MaxDailyUSD*0.8),
			resilience.NewAlertManager(logger, resilience.AlertConfig{}),
		)
	}); err != nil {
		return nil, err
	}

	// Register generation manager and generators
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		client core.GenerationClient,
		governor *resilience.Governor,
		collector *metrics.Collector,
	) *generation.Manager {
		return generation.NewManager(logger, client, governor, collector, cfg.GetLLM().Timeout)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		manager *generation.Manager,
		resultCache core.ResultCache,
		responseValidator *validator.Validator,
	) *generation.CommentGenerator {
		routing := cfg.GetRouting()
		quality := cfg.GetQuality()
		return generation.NewCommentGenerator(logger, manager, resultCache, responseValidator,
			routing.MaxInputLength, quality.Threshold, quality.AutoApprovalThreshold, time.Hour)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		manager *generation.Manager,
		resultCache core.ResultCache,
		responseValidator *validator.Validator,
	) *generation.EmailGenerator {
		return generation.NewEmailGenerator(logger, manager, resultCache, responseValidator,
			cfg.GetRouting().MaxInputLength, cfg.GetQuality().Threshold, time.Hour)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(generation.NewIntentResolver); err != nil {
		return nil, err
	}

	// Register classifier, validator and pipeline
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *classifier.Classifier {
		routing := cfg.GetRouting()
		return classifier.New(logger, routing.MaxInputLength, routing.ComplexLengthThreshold)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *validator.Validator {
		quality := cfg.GetQuality()
		return validator.New(logger, quality.AutoApprovalThreshold, quality.AllowedEmailDomains)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		flags *CLIFlags,
		logger *zap.Logger,
		intentClassifier *classifier.Classifier,
		responseValidator *validator.Validator,
		comments *generation.CommentGenerator,
		emails *generation.EmailGenerator,
		intents *generation.IntentResolver,
		resultCache core.ResultCache,
		collector *metrics.Collector,
	) *pipeline.Pipeline {
		return pipeline.New(logger, intentClassifier, responseValidator,
			comments, emails, intents, resultCache, collector,
			pipeline.Options{
				ConfidenceThreshold: flags.ConfidenceThreshold,
				RouteTTL:            time.Hour,
			})
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)
	v.Set("llm.temperature", flags.Temperature)
	v.Set("llm.top_p", flags.TopP)

	// Set model tiers
	v.Set("models.primary", flags.PrimaryModel)
	v.Set("models.fast", flags.FastModel)
	v.Set("models.classification", flags.FastModel)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
	}

	// Set routing thresholds
	v.Set("routing.confidence_threshold", flags.ConfidenceThreshold)
	v.Set("cost.max_daily_usd", flags.MaxDailyUSD)

	return config.NewFromViper(v)
}
