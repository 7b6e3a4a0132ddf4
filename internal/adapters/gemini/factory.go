package gemini

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
)

// Factory creates Gemini generation clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Gemini factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerationClient creates a new Gemini-backed generation client
func (f *Factory) CreateGenerationClient() (core.GenerationClient, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	llmCfg := f.cfg.GetLLM()
	models := f.cfg.GetModels()

	return NewClient(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		models.MaxTokensPrimary,
		llmCfg.Temperature,
		llmCfg.TopP,
		f.logger,
	)
}
