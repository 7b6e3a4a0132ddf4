package generation

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/prompts"
	"github.com/taskpilot/llm-router/internal/validator"
)

var (
	subjectLineRe = regexp.MustCompile(`(?im)^subject:\s*(.+)$`)
	greetingRe    = regexp.MustCompile(`(?im)^((?:dear|hello|hi)\b[^,\n]*),?\s*$`)
	closingRe     = regexp.MustCompile(`(?im)^((?:best regards|kind regards|regards|sincerely|best)\b[^,\n]*),?\s*$`)
)

// EmailResult is the outcome of one email generation.
type EmailResult struct {
	Success       bool                 `json:"success"`
	OriginalRequest string             `json:"original_request"`
	EmailContent  string               `json:"email_content,omitempty"`
	Components    *core.EmailComponents `json:"email_components,omitempty"`
	QualityScore  float64              `json:"quality_score"`
	// Emails always go through the user before sending.
	RequiresApproval bool            `json:"requires_approval"`
	WordCount        int             `json:"word_count,omitempty"`
	FromCache        bool            `json:"from_cache"`
	ErrorKind        core.ErrorKind  `json:"error,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	Meta             core.ProcessingMeta `json:"processing_metadata"`
}

// EmailGenerator drafts workplace emails from natural-language requests.
// Unlike comments there is no rule-based fallback: a failed generation is
// surfaced as an error so the user can write the email themselves.
type EmailGenerator struct {
	logger           *zap.Logger
	manager          *Manager
	cache            core.ResultCache
	validator        *validator.Validator
	maxInputLength   int
	qualityThreshold float64
	cacheTTL         time.Duration
}

func NewEmailGenerator(
	logger *zap.Logger,
	manager *Manager,
	resultCache core.ResultCache,
	v *validator.Validator,
	maxInputLength int,
	qualityThreshold float64,
	cacheTTL time.Duration,
) *EmailGenerator {
	if maxInputLength <= 0 {
		maxInputLength = 5000
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &EmailGenerator{
		logger:           logger,
		manager:          manager,
		cache:            resultCache,
		validator:        v,
		maxInputLength:   maxInputLength,
		qualityThreshold: qualityThreshold,
		cacheTTL:         cacheTTL,
	}
}

// Generate drafts an email for the request. The recipient name from the user
// context participates in the cache key so that "email my manager" drafts for
// different managers never collide.
func (g *EmailGenerator) Generate(ctx context.Context, request string, userCtx *core.UserContext) *EmailResult {
	if strings.TrimSpace(request) == "" {
		return &EmailResult{
			Success:      false,
			ErrorKind:    core.ErrKindEmptyInput,
			ErrorMessage: "email request cannot be empty",
		}
	}

	if len(request) > g.maxInputLength {
		g.logger.Warn("email request too long, truncating", zap.Int("length", len(request)))
		request = request[:g.maxInputLength]
	}

	recipient := ""
	systemPrompt := prompts.EmailGenerator
	if userCtx != nil {
		recipient = userCtx.ManagerName
		systemPrompt = prompts.EmailPromptWithContext(userCtx.UserName, userCtx.ManagerName, userCtx.Department)
	}

	key := cache.Key(cache.PurposeEmail, request, recipient)
	if value, ok := g.cache.Get(key); ok {
		if cached, ok := cache.As[EmailResult](value); ok {
			g.logger.Info("using cached email draft")
			out := *cached
			out.FromCache = true
			out.Meta.FromCache = true
			return &out
		}
	}

	start := time.Now()
	llmResult := g.manager.Generate(ctx, &core.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserMessage:  "Email request: " + request,
		Tier:         core.TierPrimary,
		Temperature:  0.3,
	})

	if !llmResult.Success {
		g.logger.Warn("email generation failed", zap.String("error", string(llmResult.ErrorKind)))
		return &EmailResult{
			Success:         false,
			OriginalRequest: request,
			ErrorKind:       llmResult.ErrorKind,
			ErrorMessage:    llmResult.ErrorMessage,
		}
	}

	content := strings.TrimSpace(llmResult.Content)
	if content == "" {
		return &EmailResult{
			Success:         false,
			OriginalRequest: request,
			ErrorKind:       core.ErrKindGenerationFailed,
			ErrorMessage:    "empty response",
		}
	}

	result := &EmailResult{
		Success:          true,
		OriginalRequest:  request,
		EmailContent:     content,
		Components:       parseEmailComponents(content),
		QualityScore:     assessEmailQuality(content),
		RequiresApproval: true,
		WordCount:        len(strings.Fields(content)),
		Meta: core.ProcessingMeta{
			ModelUsed:      llmResult.ModelUsed,
			TokensUsed:     llmResult.Usage.TotalTokens,
			ProcessingTime: time.Since(start),
		},
	}

	// Low-quality drafts and drafts carrying sensitive information are never
	// cached, so a later identical request gets a fresh attempt.
	validation := g.validator.Validate(content, core.RouteLLMEmail)
	if result.QualityScore >= g.qualityThreshold && !validation.HasSensitiveInfo {
		g.cache.Set(key, result, g.cacheTTL)
		g.logger.Debug("cached email draft", zap.Float64("quality_score", result.QualityScore))
	}

	g.logger.Info("generated email draft",
		zap.Int("word_count", result.WordCount),
		zap.Float64("quality_score", result.QualityScore))
	return result
}

// parseEmailComponents pulls the subject line, greeting and closing out of a
// generated email. Missing parts are left empty rather than invented.
func parseEmailComponents(content string) *core.EmailComponents {
	components := &core.EmailComponents{}
	if m := subjectLineRe.FindStringSubmatch(content); m != nil {
		components.Subject = strings.TrimSpace(m[1])
	}
	if m := greetingRe.FindStringSubmatch(content); m != nil {
		components.Greeting = strings.TrimSpace(m[1])
	}
	if m := closingRe.FindStringSubmatch(content); m != nil {
		components.Closing = strings.TrimSpace(m[1])
	}
	return components
}

// assessEmailQuality scores structure: an email with subject, greeting and
// closing in a sensible length band scores highest.
func assessEmailQuality(content string) float64 {
	score := 0.4

	components := parseEmailComponents(content)
	if components.Subject != "" {
		score += 0.2
	}
	if components.Greeting != "" {
		score += 0.2
	}
	if components.Closing != "" {
		score += 0.1
	}

	wordCount := len(strings.Fields(content))
	if wordCount >= 10 && wordCount <= 300 {
		score += 0.1
	}

	if score > 1 {
		return 1
	}
	return score
}
