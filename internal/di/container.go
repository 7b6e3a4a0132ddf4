package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/classifier"
	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/factory"
	"github.com/taskpilot/llm-router/internal/generation"
	"github.com/taskpilot/llm-router/internal/httpapi"
	"github.com/taskpilot/llm-router/internal/logging"
	"github.com/taskpilot/llm-router/internal/metrics"
	"github.com/taskpilot/llm-router/internal/pipeline"
	"github.com/taskpilot/llm-router/internal/resilience"
	"github.com/taskpilot/llm-router/internal/utils"
	"github.com/taskpilot/llm-router/internal/validator"
)

// CacheStop releases the background work owned by the result cache backend.
type CacheStop func()

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}

	// Register generation client
	if err := container.Provide(func(f *factory.LLMFactory) (core.GenerationClient, error) {
		return f.CreateGenerationClient()
	}); err != nil {
		return nil, err
	}

	// Register result cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.ResultCache, CacheStop, error) {
		c, stop, err := f.CreateResultCache()
		return c, CacheStop(stop), err
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register metrics collector
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *metrics.Collector {
		return metrics.NewCollector(logger, cfg.GetInt("metrics.max_records"))
	}); err != nil {
		return nil, err
	}

	// Register resilience components
	if err := container.Provide(func(cfg *config.Config) *resilience.BreakerRegistry {
		breakerCfg := cfg.GetBreaker()
		return resilience.NewBreakerRegistry(resilience.BreakerConfig{
			MaxFailures:  breakerCfg.FailureThreshold,
			ResetTimeout: breakerCfg.Timeout,
		})
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *resilience.CostLedger {
		costCfg := cfg.GetCost()
		return resilience.NewCostLedger(logger, resilience.DefaultPricing(), costCfg.MaxDailyUSD, costCfg.AlertAtUSD)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *resilience.AlertManager {
		alertCfg := cfg.GetAlerts()
		return resilience.NewAlertManager(logger, resilience.AlertConfig{
			FailureWindow: alertCfg.FailureWindow,
			FailureCount:  alertCfg.FailureCount,
			Cooldown:      alertCfg.Cooldown,
		})
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(resilience.NewGovernor); err != nil {
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
		caches *factory.CacheFactory,
	) *generation.CommentGenerator {
		routing := cfg.GetRouting()
		quality := cfg.GetQuality()
		return generation.NewCommentGenerator(logger, manager, resultCache, responseValidator,
			routing.MaxInputLength, quality.Threshold, quality.AutoApprovalThreshold, caches.CommentTTL())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		manager *generation.Manager,
		resultCache core.ResultCache,
		responseValidator *validator.Validator,
		caches *factory.CacheFactory,
	) *generation.EmailGenerator {
		return generation.NewEmailGenerator(logger, manager, resultCache, responseValidator,
			cfg.GetRouting().MaxInputLength, cfg.GetQuality().Threshold, caches.EmailTTL())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(generation.NewIntentResolver); err != nil {
		return nil, err
	}

	// Register classifier and validator
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

	// Register pipeline
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		intentClassifier *classifier.Classifier,
		responseValidator *validator.Validator,
		comments *generation.CommentGenerator,
		emails *generation.EmailGenerator,
		intents *generation.IntentResolver,
		resultCache core.ResultCache,
		collector *metrics.Collector,
		caches *factory.CacheFactory,
	) *pipeline.Pipeline {
		return pipeline.New(logger, intentClassifier, responseValidator,
			comments, emails, intents, resultCache, collector,
			pipeline.Options{
				ConfidenceThreshold: cfg.GetRouting().ConfidenceThreshold,
				RouteTTL:            caches.RouteTTL(),
			})
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		p *pipeline.Pipeline,
		collector *metrics.Collector,
		governor *resilience.Governor,
		resultCache core.ResultCache,
		text *utils.TextProcessor,
	) (*httpapi.Server, error) {
		readTimeout, err := cfg.GetDuration("server.read_timeout")
		if err != nil {
			return nil, err
		}
		writeTimeout, err := cfg.GetDuration("server.write_timeout")
		if err != nil {
			return nil, err
		}
		return httpapi.NewServer(logger, p, collector, governor, resultCache, text,
			cfg.GetString("server.listen_address"), readTimeout, writeTimeout), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
