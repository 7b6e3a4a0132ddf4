package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/adapters/bedrock"
	"github.com/taskpilot/llm-router/internal/adapters/gemini"
	"github.com/taskpilot/llm-router/internal/adapters/openai"
	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
)

// LLMFactory creates generation clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new generation client factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerationClient creates a generation client for the configured provider
func (f *LLMFactory) CreateGenerationClient() (core.GenerationClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateGenerationClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateGenerationClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateGenerationClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
