package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/prompts"
)

var errNoJSONObject = errors.New("generation: no JSON object in response")

// IntentResolution is the parsed outcome of an LLM-assisted intent
// classification for a request the heuristic classifier could not place.
type IntentResolution struct {
	Intent               string            `json:"intent"`
	Confidence           float64           `json:"confidence"`
	ExtractedInfo        map[string]string `json:"extracted_info,omitempty"`
	UserFriendlyResponse string            `json:"user_friendly_response,omitempty"`
}

// Route maps the resolved intent back onto a pipeline route. Unknown or
// unclear intents stay on the classification route so the pipeline asks the
// user to clarify.
func (r *IntentResolution) Route() core.RouteType {
	switch r.Intent {
	case "task_completion":
		return core.RouteBackendCompletion
	case "task_update":
		return core.RouteLLMRephrasing
	case "productivity_query":
		return core.RouteBackendProductivity
	case "email_request":
		return core.RouteLLMEmail
	}
	return core.RouteLLMClassification
}

// IntentResolver asks the fast model what an ambiguous request means. It is
// only consulted when pattern matching gave low confidence, so its cost per
// call is deliberately kept on the cheapest tier.
type IntentResolver struct {
	logger  *zap.Logger
	manager *Manager
}

func NewIntentResolver(logger *zap.Logger, manager *Manager) *IntentResolver {
	return &IntentResolver{logger: logger, manager: manager}
}

// Resolve classifies the input. A nil resolution with ok=false means the
// model was unavailable or returned garbage; callers fall back to asking the
// user directly.
func (r *IntentResolver) Resolve(ctx context.Context, input string) (*IntentResolution, bool) {
	result := r.manager.Generate(ctx, &core.GenerationRequest{
		SystemPrompt: prompts.ClassificationHelper,
		UserMessage:  input,
		Tier:         core.TierClassification,
		Temperature:  0.1,
		MaxTokens:    300,
	})
	if !result.Success {
		r.logger.Warn("intent resolution unavailable", zap.String("error", string(result.ErrorKind)))
		return nil, false
	}

	resolution, err := parseIntentJSON(result.Content)
	if err != nil {
		r.logger.Warn("unparseable intent response",
			zap.Error(err),
			zap.String("content", truncateForLog(result.Content, 200)))
		return nil, false
	}

	r.logger.Info("resolved ambiguous intent",
		zap.String("intent", resolution.Intent),
		zap.Float64("confidence", resolution.Confidence))
	return resolution, true
}

// parseIntentJSON decodes the model response. Models occasionally wrap the
// JSON in markdown fences or prose despite the prompt, so on a failed decode
// we retry on the outermost brace-delimited span before giving up.
func parseIntentJSON(content string) (*IntentResolution, error) {
	content = strings.TrimSpace(content)

	var resolution IntentResolution
	if err := json.Unmarshal([]byte(content), &resolution); err == nil {
		return normalizeResolution(&resolution), nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, errNoJSONObject
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &resolution); err != nil {
		return nil, err
	}
	return normalizeResolution(&resolution), nil
}

func normalizeResolution(r *IntentResolution) *IntentResolution {
	r.Intent = strings.ToLower(strings.TrimSpace(r.Intent))
	if r.Intent == "" {
		r.Intent = "unclear"
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	return r
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
