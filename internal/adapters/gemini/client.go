package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/taskpilot/llm-router/internal/core"
)

const rateLimitRetryAfter = 60 * time.Second

// Client is an implementation of the GenerationClient interface using Google
// Gemini. All tiers share the configured model.
type Client struct {
	client      *genai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewClient creates a new Gemini generation client
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*Client, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate produces text for the request.
func (c *Client) Generate(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTopP(c.topP)

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	temperature := c.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	model.SetTemperature(temperature)

	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserMessage))
	if err != nil {
		c.logger.Warn("Gemini call failed", zap.String("model", c.modelName), zap.Error(err))
		return c.classifyError(err), nil
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return &core.GenerationResult{
			Success:           false,
			ModelUsed:         c.modelName,
			ErrorKind:         core.ErrKindGenerationFailed,
			ErrorMessage:      "empty response from Gemini",
			FallbackAvailable: true,
		}, nil
	}

	result := &core.GenerationResult{
		Success:   true,
		Content:   fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]),
		ModelUsed: c.modelName,
	}
	if resp.UsageMetadata != nil {
		result.Usage = core.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

func (c *Client) classifyError(err error) *core.GenerationResult {
	result := &core.GenerationResult{
		Success:      false,
		ModelUsed:    c.modelName,
		ErrorMessage: err.Error(),
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		result.ErrorKind = core.ErrKindTimeout
		result.FallbackAvailable = true
		return result
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
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
