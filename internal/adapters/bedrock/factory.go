package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
)

// Factory creates Bedrock generation clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerationClient creates a new Bedrock-backed generation client
func (f *Factory) CreateGenerationClient() (core.GenerationClient, error) {
	bedrockCfg := f.cfg.GetBedrock()
	if bedrockCfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock model ID is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)
	llmCfg := f.cfg.GetLLM()
	models := f.cfg.GetModels()

	return NewClient(
		client,
		bedrockCfg.ModelID,
		models.MaxTokensPrimary,
		llmCfg.Temperature,
		llmCfg.TopP,
		f.logger,
	), nil
}
