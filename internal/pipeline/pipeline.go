// Package pipeline composes classification, caching, generation and
// validation into the single request-processing flow. It is the only layer
// that converts component outcomes into the caller-facing result shape; no
// error from below it ever propagates past Process.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/classifier"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/generation"
	"github.com/taskpilot/llm-router/internal/metrics"
	"github.com/taskpilot/llm-router/internal/validator"
)

// Plain-language messages returned on degraded paths. The caller shows these
// to the user verbatim, so they never mention internals.
const (
	msgEmptyInput        = "Please enter a request and try again."
	msgServiceTrouble    = "I'm having trouble processing your request right now. Please try again in a moment."
	msgBudgetReached     = "The assistant has reached its daily usage limit. Please try again tomorrow or proceed manually."
	msgClarification     = "I'm not sure what you'd like to do. Could you rephrase your request?"
)

// Options carries the tunables the pipeline consumes.
type Options struct {
	ConfidenceThreshold float64
	RouteTTL            time.Duration
}

// Pipeline is the per-request orchestrator. It is safe for concurrent use;
// all shared state lives in the injected collaborators.
type Pipeline struct {
	logger     *zap.Logger
	classifier *classifier.Classifier
	validator  *validator.Validator
	comments   *generation.CommentGenerator
	emails     *generation.EmailGenerator
	intents    *generation.IntentResolver
	cache      core.ResultCache
	collector  *metrics.Collector
	opts       Options
}

func New(
	logger *zap.Logger,
	intentClassifier *classifier.Classifier,
	responseValidator *validator.Validator,
	comments *generation.CommentGenerator,
	emails *generation.EmailGenerator,
	intents *generation.IntentResolver,
	resultCache core.ResultCache,
	collector *metrics.Collector,
	opts Options,
) *Pipeline {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 0.8
	}
	if opts.RouteTTL <= 0 {
		opts.RouteTTL = time.Hour
	}
	return &Pipeline{
		logger:     logger,
		classifier: intentClassifier,
		validator:  responseValidator,
		comments:   comments,
		emails:     emails,
		intents:    intents,
		cache:      resultCache,
		collector:  collector,
		opts:       opts,
	}
}

// Process runs one request through the full flow. It always returns a
// well-formed result; panics anywhere below are converted into a uniform
// fallback response.
func (p *Pipeline) Process(ctx context.Context, userInput string, userCtx *core.UserContext) (result *core.PipelineResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during request processing", zap.Any("panic", r))
			result = &core.PipelineResult{
				Success:         false,
				OriginalInput:   userInput,
				BackendAction:   core.ActionShowErrorMessage,
				ErrorKind:       core.ErrKindPipelineError,
				ErrorMessage:    "internal error",
				FallbackMessage: msgServiceTrouble,
			}
		}
		result.Meta.ProcessingTime = time.Since(start)
		p.collector.RecordExecution(result.Route, result.RequiresLLM, result.FromCache, result.Success, time.Since(start))
	}()

	if strings.TrimSpace(userInput) == "" {
		return &core.PipelineResult{
			Success:         false,
			OriginalInput:   userInput,
			BackendAction:   core.ActionShowErrorMessage,
			ErrorKind:       core.ErrKindEmptyInput,
			ErrorMessage:    "user input cannot be empty",
			FallbackMessage: msgEmptyInput,
		}
	}

	classification := p.classifier.Classify(userInput)
	p.collector.RecordClassification(classification.Route, classification.Confidence)
	p.logger.Info("classified request",
		zap.String("route", string(classification.Route)),
		zap.Float64("confidence", classification.Confidence),
		zap.String("pattern", classification.MatchedPattern))

	routeKey := cache.Key(cache.PurposeRoute, userInput)
	if classification.Confidence >= p.opts.ConfidenceThreshold {
		if value, ok := p.cache.Get(routeKey); ok {
			if cached, ok := cache.As[core.PipelineResult](value); ok {
				p.logger.Info("serving cached routing decision")
				out := *cached
				out.FromCache = true
				out.Meta.FromCache = true
				return &out
			}
		}
	}

	entities := p.classifier.ExtractEntities(userInput)

	result = p.dispatch(ctx, userInput, userCtx, classification)
	result.OriginalInput = userInput
	result.Route = classification.Route
	result.Confidence = classification.Confidence
	result.RequiresLLM = classification.Route.RequiresLLM()
	if len(entities) > 0 {
		result.Entities = entities
	}

	// Only deterministic backend decisions are cached here; generated
	// content is cached by the generators under their own namespaces, gated
	// on quality.
	if result.Success && !result.RequiresLLM && classification.Confidence >= p.opts.ConfidenceThreshold {
		p.cache.Set(routeKey, result, p.opts.RouteTTL)
	}

	return result
}

func (p *Pipeline) dispatch(ctx context.Context, userInput string, userCtx *core.UserContext, classification core.Classification) *core.PipelineResult {
	switch classification.Route {
	case core.RouteBackendCompletion:
		return &core.PipelineResult{
			Success:       true,
			BackendAction: core.ActionMarkTaskComplete,
		}
	case core.RouteBackendProductivity:
		return &core.PipelineResult{
			Success:       true,
			BackendAction: core.ActionCalculateProductivity,
		}
	case core.RouteLLMRephrasing:
		return p.processComment(ctx, userInput, userCtx)
	case core.RouteLLMEmail:
		return p.processEmail(ctx, userInput, userCtx)
	default:
		return p.processAmbiguous(ctx, userInput, userCtx)
	}
}

func (p *Pipeline) processComment(ctx context.Context, userInput string, userCtx *core.UserContext) *core.PipelineResult {
	generated := p.comments.Generate(ctx, userInput, userCtx)
	if !generated.Success {
		return &core.PipelineResult{
			Success:          false,
			GeneratedContent: generated.FallbackComment,
			BackendAction:    core.ActionShowErrorMessage,
			ErrorKind:        generated.ErrorKind,
			ErrorMessage:     generated.ErrorMessage,
			FallbackMessage:  p.messageForKind(generated.ErrorKind),
		}
	}

	validation := p.validator.Validate(generated.ProfessionalComment, core.RouteLLMRephrasing)
	result := &core.PipelineResult{
		Success:              true,
		GeneratedContent:     generated.ProfessionalComment,
		QualityScore:         generated.QualityScore,
		Validation:           validation,
		RequiresUserApproval: generated.RequiresApproval,
		BackendAction:        core.ActionShowCommentApproval,
		FromCache:            generated.FromCache,
		Meta:                 generated.Meta,
	}
	if !validation.ApprovedForAutoSend {
		result.RequiresUserApproval = true
		result.ApprovalReason = validation.Flags
	}
	return result
}

func (p *Pipeline) processEmail(ctx context.Context, userInput string, userCtx *core.UserContext) *core.PipelineResult {
	generated := p.emails.Generate(ctx, userInput, userCtx)
	if !generated.Success {
		return &core.PipelineResult{
			Success:         false,
			BackendAction:   core.ActionShowErrorMessage,
			ErrorKind:       generated.ErrorKind,
			ErrorMessage:    generated.ErrorMessage,
			FallbackMessage: p.messageForKind(generated.ErrorKind),
		}
	}

	validation := p.validator.Validate(generated.EmailContent, core.RouteLLMEmail)
	result := &core.PipelineResult{
		Success:              true,
		GeneratedContent:     generated.EmailContent,
		EmailComponents:      generated.Components,
		QualityScore:         generated.QualityScore,
		Validation:           validation,
		RequiresUserApproval: true,
		BackendAction:        core.ActionShowEmailApproval,
		FromCache:            generated.FromCache,
		Meta:                 generated.Meta,
	}
	if !validation.ApprovedForAutoSend {
		result.ApprovalReason = validation.Flags
	}
	return result
}

// processAmbiguous asks the fast model what the user meant, then re-routes.
// An unclear or unavailable resolution turns into a clarification request
// rather than an error; asking the user is a normal outcome here.
func (p *Pipeline) processAmbiguous(ctx context.Context, userInput string, userCtx *core.UserContext) *core.PipelineResult {
	resolution, ok := p.intents.Resolve(ctx, userInput)
	if !ok {
		return &core.PipelineResult{
			Success:          true,
			GeneratedContent: msgClarification,
			BackendAction:    core.ActionShowClarification,
		}
	}

	switch resolution.Route() {
	case core.RouteBackendCompletion:
		return &core.PipelineResult{
			Success:       true,
			BackendAction: core.ActionMarkTaskComplete,
		}
	case core.RouteBackendProductivity:
		return &core.PipelineResult{
			Success:       true,
			BackendAction: core.ActionCalculateProductivity,
		}
	case core.RouteLLMRephrasing:
		return p.processComment(ctx, userInput, userCtx)
	case core.RouteLLMEmail:
		return p.processEmail(ctx, userInput, userCtx)
	}

	message := resolution.UserFriendlyResponse
	if message == "" {
		message = msgClarification
	}
	return &core.PipelineResult{
		Success:          true,
		GeneratedContent: message,
		BackendAction:    core.ActionShowClarification,
	}
}

func (p *Pipeline) messageForKind(kind core.ErrorKind) string {
	switch kind {
	case core.ErrKindCostLimitReached:
		return msgBudgetReached
	case core.ErrKindEmptyInput:
		return msgEmptyInput
	}
	return msgServiceTrouble
}
