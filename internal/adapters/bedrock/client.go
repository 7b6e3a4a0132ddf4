package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

const rateLimitRetryAfter = 60 * time.Second

// Client is an implementation of the GenerationClient interface using Amazon
// Bedrock. All tiers share the configured model; Bedrock deployments pick one
// Claude variant per environment rather than per call.
type Client struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewClient creates a new Bedrock generation client
func NewClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Client {
	return &Client{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      float32            `json:"temperature,omitempty"`
	TopP             float32            `json:"top_p,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate produces text for the request via InvokeModel.
func (c *Client) Generate(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := c.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	payload, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           req.SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.UserMessage},
		},
		Temperature: temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		c.logger.Warn("Bedrock call failed", zap.String("model_id", c.modelID), zap.Error(err))
		return c.classifyError(err), nil
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return &core.GenerationResult{
			Success:           false,
			ModelUsed:         c.modelID,
			ErrorKind:         core.ErrKindGenerationFailed,
			ErrorMessage:      fmt.Sprintf("failed to unmarshal model response: %v", err),
			FallbackAvailable: true,
		}, nil
	}
	if len(parsed.Content) == 0 {
		return &core.GenerationResult{
			Success:           false,
			ModelUsed:         c.modelID,
			ErrorKind:         core.ErrKindGenerationFailed,
			ErrorMessage:      "empty response from Bedrock",
			FallbackAvailable: true,
		}, nil
	}

	return &core.GenerationResult{
		Success:   true,
		Content:   parsed.Content[0].Text,
		ModelUsed: c.modelID,
		Usage: core.TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

func (c *Client) classifyError(err error) *core.GenerationResult {
	result := &core.GenerationResult{
		Success:      false,
		ModelUsed:    c.modelID,
		ErrorMessage: err.Error(),
	}

	var throttled *types.ThrottlingException
	var denied *types.AccessDeniedException
	var modelTimeout *types.ModelTimeoutException

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.As(err, &modelTimeout):
		result.ErrorKind = core.ErrKindTimeout
		result.FallbackAvailable = true
	case errors.As(err, &throttled):
		result.ErrorKind = core.ErrKindRateLimit
		result.RetryAfter = rateLimitRetryAfter
		result.FallbackAvailable = true
	case errors.As(err, &denied):
		result.ErrorKind = core.ErrKindAuthentication
	default:
		result.ErrorKind = core.ErrKindAPIError
		result.FallbackAvailable = true
	}
	return result
}
