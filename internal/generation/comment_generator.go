package generation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/prompts"
	"github.com/taskpilot/llm-router/internal/validator"
)

// Quality vocabulary for generated comments. Distinct from the validator's
// lists: here "done" counts as casual because the whole point of rephrasing
// is to move past it.
var (
	qualityProfessionalWords = []string{
		"completed", "implemented", "resolved", "pending",
		"reviewing", "investigating", "deployment", "testing",
	}
	qualityCasualWords = []string{
		"done", "finished", "gonna", "wanna", "kinda",
		"yeah", "nope", "cool", "awesome",
	}
	preservableTechTerms = map[string]bool{
		"api": true, "bug": true, "feature": true, "database": true,
		"frontend": true, "backend": true, "staging": true,
		"production": true, "test": true, "deployment": true,
	}
)

// CommentResult is the outcome of one comment rephrasing.
type CommentResult struct {
	Success             bool               `json:"success"`
	OriginalUpdate      string             `json:"original_update"`
	ProfessionalComment string             `json:"professional_comment,omitempty"`
	QualityScore        float64            `json:"quality_score"`
	RequiresApproval    bool               `json:"requires_approval"`
	WordCount           int                `json:"word_count,omitempty"`
	FallbackUsed        bool               `json:"fallback_used,omitempty"`
	FromCache           bool               `json:"from_cache"`
	ErrorKind           core.ErrorKind     `json:"error,omitempty"`
	ErrorMessage        string             `json:"error_message,omitempty"`
	FallbackComment     string             `json:"fallback_comment,omitempty"`
	Meta                core.ProcessingMeta `json:"processing_metadata"`
}

// CommentGenerator turns casual task updates into professional tracker
// comments, with caching, quality assessment and a rule-based fallback when
// the generation service is unavailable.
type CommentGenerator struct {
	logger                *zap.Logger
	manager               *Manager
	cache                 core.ResultCache
	validator             *validator.Validator
	maxInputLength        int
	qualityThreshold      float64
	autoApprovalThreshold float64
	cacheTTL              time.Duration
}

func NewCommentGenerator(
	logger *zap.Logger,
	manager *Manager,
	resultCache core.ResultCache,
	v *validator.Validator,
	maxInputLength int,
	qualityThreshold float64,
	autoApprovalThreshold float64,
	cacheTTL time.Duration,
) *CommentGenerator {
	if maxInputLength <= 0 {
		maxInputLength = 5000
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &CommentGenerator{
		logger:                logger,
		manager:               manager,
		cache:                 resultCache,
		validator:             v,
		maxInputLength:        maxInputLength,
		qualityThreshold:      qualityThreshold,
		autoApprovalThreshold: autoApprovalThreshold,
		cacheTTL:              cacheTTL,
	}
}

// Generate rephrases the update. High-quality results are cached; a result
// below the quality threshold is returned but not cached, so a later
// identical request gets a fresh attempt.
func (g *CommentGenerator) Generate(ctx context.Context, userUpdate string, userCtx *core.UserContext) *CommentResult {
	if strings.TrimSpace(userUpdate) == "" {
		return &CommentResult{
			Success:      false,
			ErrorKind:    core.ErrKindEmptyInput,
			ErrorMessage: "user update cannot be empty",
		}
	}

	if len(userUpdate) > g.maxInputLength {
		g.logger.Warn("comment input too long, truncating", zap.Int("length", len(userUpdate)))
		userUpdate = userUpdate[:g.maxInputLength]
	}

	key := cache.Key(cache.PurposeComment, userUpdate)
	if value, ok := g.cache.Get(key); ok {
		if cached, ok := cache.As[CommentResult](value); ok {
			g.logger.Info("using cached comment rephrasing")
			out := *cached
			out.FromCache = true
			out.Meta.FromCache = true
			return &out
		}
	}

	systemPrompt := prompts.CommentRephraser
	if userCtx != nil {
		systemPrompt = prompts.CommentPromptWithContext(userCtx.Role, userCtx.ProjectType, "")
	}

	start := time.Now()
	llmResult := g.manager.Generate(ctx, &core.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserMessage:  "User update: " + userUpdate,
		Tier:         core.TierPrimary,
		Temperature:  0.2,
	})

	if !llmResult.Success {
		return g.handleGenerationFailure(userUpdate, llmResult)
	}

	comment := strings.TrimSpace(llmResult.Content)
	if comment == "" {
		g.logger.Error("generation service returned empty content")
		return g.handleGenerationFailure(userUpdate, &core.GenerationResult{
			ErrorKind:         core.ErrKindGenerationFailed,
			ErrorMessage:      "empty response",
			FallbackAvailable: true,
		})
	}

	quality := assessCommentQuality(comment, userUpdate)
	result := &CommentResult{
		Success:             true,
		OriginalUpdate:      userUpdate,
		ProfessionalComment: comment,
		QualityScore:        quality,
		RequiresApproval:    quality < g.autoApprovalThreshold,
		WordCount:           len(strings.Fields(comment)),
		Meta: core.ProcessingMeta{
			ModelUsed:      llmResult.ModelUsed,
			TokensUsed:     llmResult.Usage.TotalTokens,
			ProcessingTime: time.Since(start),
		},
	}

	if quality >= g.qualityThreshold {
		g.cache.Set(key, result, g.cacheTTL)
		g.logger.Debug("cached comment", zap.Float64("quality_score", quality))
	}

	g.logger.Info("generated professional comment", zap.Float64("quality_score", quality))
	return result
}

func (g *CommentGenerator) handleGenerationFailure(userUpdate string, llmResult *core.GenerationResult) *CommentResult {
	if llmResult.FallbackAvailable {
		rephrased := simpleRephraseFallback(userUpdate)
		if g.validator.QuickValidate(rephrased) {
			g.logger.Info("using simple rephrase fallback", zap.String("reason", string(llmResult.ErrorKind)))
			return &CommentResult{
				Success:             true,
				OriginalUpdate:      userUpdate,
				ProfessionalComment: rephrased,
				QualityScore:        0.6,
				RequiresApproval:    true,
				FallbackUsed:        true,
				ErrorKind:           llmResult.ErrorKind,
				WordCount:           len(strings.Fields(rephrased)),
				Meta:                core.ProcessingMeta{FallbackUsed: true},
			}
		}
		g.logger.Warn("rule-based fallback failed screening, surfacing the error")
	}

	kind := llmResult.ErrorKind
	if kind == "" {
		kind = core.ErrKindGenerationFailed
	}
	return &CommentResult{
		Success:         false,
		OriginalUpdate:  userUpdate,
		ErrorKind:       kind,
		ErrorMessage:    llmResult.ErrorMessage,
		FallbackComment: "Task update: " + userUpdate,
	}
}

// assessCommentQuality scores a rephrased comment with cheap heuristics:
// length, register and whether technical terms from the original survived.
func assessCommentQuality(comment, original string) float64 {
	score := 1.0

	wordCount := len(strings.Fields(comment))
	if wordCount < 3 {
		score -= 0.4
	} else if wordCount > 100 {
		score -= 0.2
	}

	lower := strings.ToLower(comment)
	profCount := 0
	for _, word := range qualityProfessionalWords {
		if strings.Contains(lower, word) {
			profCount++
		}
	}
	casualCount := 0
	for _, word := range qualityCasualWords {
		if strings.Contains(lower, word) {
			casualCount++
		}
	}
	if profCount > casualCount {
		score += 0.1
	} else if casualCount > profCount {
		score -= 0.3
	}

	originalTech := techTermsIn(original)
	if len(originalTech) > 0 {
		generatedWords := wordSet(comment)
		preserved := 0
		for term := range originalTech {
			if generatedWords[term] {
				preserved++
			}
		}
		if float64(preserved)/float64(len(originalTech)) < 0.5 {
			score -= 0.2
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func techTermsIn(text string) map[string]bool {
	terms := make(map[string]bool)
	for word := range wordSet(text) {
		if preservableTechTerms[word] {
			terms[word] = true
		}
	}
	return terms
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = true
	}
	return set
}

// simpleRephraseFallback is the rule-based degradation used when the
// generation service cannot be reached: capitalize, punctuate and fix common
// contractions.
func simpleRephraseFallback(userUpdate string) string {
	cleaned := strings.TrimSpace(userUpdate)
	if cleaned == "" {
		return "Update:"
	}

	cleaned = strings.ToUpper(cleaned[:1]) + cleaned[1:]
	if last := cleaned[len(cleaned)-1]; last != '.' && last != '!' && last != '?' {
		cleaned += "."
	}

	replacements := [][2]string{
		{" i ", " I "},
		{" im ", " I'm "},
		{" ive ", " I've "},
		{" dont ", " don't "},
		{" cant ", " can't "},
		{" wont ", " won't "},
		{" didnt ", " didn't "},
	}
	for _, r := range replacements {
		cleaned = strings.ReplaceAll(cleaned, r[0], r[1])
	}

	return "Update: " + cleaned
}
