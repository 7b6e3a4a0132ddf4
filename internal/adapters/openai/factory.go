package openai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
)

// Factory creates new instances of the OpenAI generation client
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI clients
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerationClient creates a new OpenAI-backed generation client
func (f *Factory) CreateGenerationClient() (core.GenerationClient, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	llmCfg := f.cfg.GetLLM()
	client := openai.NewClient(openaiCfg.APIKey)

	return NewClient(
		client,
		f.cfg.GetModels(),
		llmCfg.Temperature,
		llmCfg.TopP,
		f.logger,
	), nil
}
