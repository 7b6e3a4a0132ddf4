package openai

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
)

// rateLimitRetryAfter is assumed when the provider does not say how long to
// back off.
const rateLimitRetryAfter = 60 * time.Second

// Client is an implementation of the GenerationClient interface using OpenAI
type Client struct {
	client      *openai.Client
	models      config.ModelsConfig
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewClient creates a new OpenAI generation client
func NewClient(
	client *openai.Client,
	models config.ModelsConfig,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Client {
	return &Client{
		client:      client,
		models:      models,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Generate produces text for the request using the model mapped to its tier.
// Provider failures are folded into the result's error kind; a Go error is
// reserved for broken invariants in the request itself.
func (c *Client) Generate(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	model, maxTokens := c.modelForTier(req.Tier)
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := c.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.UserMessage,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Warn("OpenAI call failed", zap.String("model", model), zap.Error(err))
		return classifyError(err, model), nil
	}

	if len(resp.Choices) == 0 {
		return &core.GenerationResult{
			Success:           false,
			ModelUsed:         model,
			ErrorKind:         core.ErrKindGenerationFailed,
			ErrorMessage:      "empty response from OpenAI",
			FallbackAvailable: true,
		}, nil
	}

	return &core.GenerationResult{
		Success:   true,
		Content:   resp.Choices[0].Message.Content,
		ModelUsed: resp.Model,
		Usage: core.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) modelForTier(tier core.ModelTier) (string, int) {
	switch tier {
	case core.TierPrimary:
		return c.models.Primary, c.models.MaxTokensPrimary
	case core.TierClassification:
		if c.models.Classification != "" {
			return c.models.Classification, c.models.MaxTokensFast
		}
		return c.models.Fast, c.models.MaxTokensFast
	default:
		return c.models.Fast, c.models.MaxTokensFast
	}
}

// classifyError maps provider errors onto the pipeline's failure taxonomy.
func classifyError(err error, model string) *core.GenerationResult {
	result := &core.GenerationResult{
		Success:      false,
		ModelUsed:    model,
		ErrorMessage: err.Error(),
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		result.ErrorKind = core.ErrKindTimeout
		result.FallbackAvailable = true
		return result
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			result.ErrorKind = core.ErrKindAuthentication
		case 429:
			result.ErrorKind = core.ErrKindRateLimit
			result.RetryAfter = rateLimitRetryAfter
			result.FallbackAvailable = true
		default:
			result.ErrorKind = core.ErrKindAPIError
			result.FallbackAvailable = true
		}
		return result
	}

	result.ErrorKind = core.ErrKindAPIError
	result.FallbackAvailable = true
	return result
}
