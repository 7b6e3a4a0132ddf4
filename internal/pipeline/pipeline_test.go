package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/classifier"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/generation"
	"github.com/taskpilot/llm-router/internal/metrics"
	"github.com/taskpilot/llm-router/internal/resilience"
	"github.com/taskpilot/llm-router/internal/validator"
)

// scriptedClient replays scripted generation results in order.
type scriptedClient struct {
	results  []*core.GenerationResult
	requests []*core.GenerationRequest
	panics   bool
}

func (s *scriptedClient) Generate(_ context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	if s.panics {
		panic("scripted panic")
	}
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx], nil
}

func generated(content string) *core.GenerationResult {
	return &core.GenerationResult{
		Success:   true,
		Content:   content,
		ModelUsed: "gpt-4o",
		Usage:     core.TokenUsage{PromptTokens: 80, CompletionTokens: 40, TotalTokens: 120},
	}
}

func newTestPipeline(t *testing.T, client core.GenerationClient) *Pipeline {
	t.Helper()
	return newTestPipelineWithBudget(t, client, 100)
}

func newTestPipelineWithBudget(t *testing.T, client core.GenerationClient, maxDaily float64) *Pipeline {
	t.Helper()
	logger := zap.NewNop()

	governor := resilience.NewGovernor(
		logger,
		resilience.NewBreakerRegistry(resilience.BreakerConfig{}),
		resilience.NewCostLedger(logger, resilience.DefaultPricing(), maxDaily, maxDaily*0.8),
		resilience.NewAlertManager(logger, resilience.AlertConfig{}),
	)
	collector := metrics.NewCollector(logger, 1000)
	manager := generation.NewManager(logger, client, governor, collector, 5*time.Second)

	contentCache := cache.NewMemoryCache(logger, 100)
	routeCache := cache.NewMemoryCache(logger, 100)
	v := validator.New(logger, 0.8, nil)

	return New(
		logger,
		classifier.New(logger, 5000, 50),
		v,
		generation.NewCommentGenerator(logger, manager, contentCache, v, 5000, 0.7, 0.85, time.Hour),
		generation.NewEmailGenerator(logger, manager, contentCache, v, 5000, 0.7, time.Hour),
		generation.NewIntentResolver(logger, manager),
		routeCache,
		collector,
		Options{ConfidenceThreshold: 0.8, RouteTTL: time.Hour},
	)
}

func TestProcessCompletionShortcut(t *testing.T) {
	client := &scriptedClient{}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(), "done", &core.UserContext{UserID: "u1"})

	require.True(t, result.Success)
	assert.Equal(t, core.RouteBackendCompletion, result.Route)
	assert.False(t, result.RequiresLLM)
	assert.Equal(t, core.ActionMarkTaskComplete, result.BackendAction)
	assert.GreaterOrEqual(t, result.Confidence, 0.9)
	assert.Empty(t, client.requests)
}

func TestProcessProductivityShortcut(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})

	result := p.Process(context.Background(), "how productive was i this week", &core.UserContext{UserID: "u1"})

	require.True(t, result.Success)
	assert.Equal(t, core.RouteBackendProductivity, result.Route)
	assert.Equal(t, core.ActionCalculateProductivity, result.BackendAction)
}

func TestProcessRephrasingEndToEnd(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{
		generated("Resolved login defect; validated on staging; ready for production deployment."),
	}}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(),
		"I fixed the login bug and tested it on staging, ready for production",
		&core.UserContext{UserID: "u1"})

	require.True(t, result.Success)
	assert.Equal(t, core.RouteLLMRephrasing, result.Route)
	assert.True(t, result.RequiresLLM)
	assert.Equal(t, "Resolved login defect; validated on staging; ready for production deployment.", result.GeneratedContent)
	require.NotNil(t, result.Validation)
	// "Resolved" reads as a completion marker, which vetoes auto-send and
	// forces user approval.
	assert.True(t, result.Validation.HasCompletionMarkers)
	assert.False(t, result.Validation.ApprovedForAutoSend)
	assert.True(t, result.RequiresUserApproval)
	assert.NotEmpty(t, result.ApprovalReason)
	assert.Equal(t, core.ActionShowCommentApproval, result.BackendAction)
}

func TestProcessEmptyInput(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})

	result := p.Process(context.Background(), "   ", &core.UserContext{UserID: "u1"})

	assert.False(t, result.Success)
	assert.Equal(t, core.ErrKindEmptyInput, result.ErrorKind)
	assert.Equal(t, core.ActionShowErrorMessage, result.BackendAction)
	assert.NotEmpty(t, result.FallbackMessage)
}

func TestProcessCachesBackendDecisions(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})

	first := p.Process(context.Background(), "done", &core.UserContext{UserID: "u1"})
	require.True(t, first.Success)
	assert.False(t, first.FromCache)

	second := p.Process(context.Background(), "done", &core.UserContext{UserID: "u1"})
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, core.ActionMarkTaskComplete, second.BackendAction)
}

func TestProcessEmailRoute(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{generated(
		"Subject: Sick Leave Request\n\nDear [Manager Name],\n\nI am unwell and will be out tomorrow.\n\nBest regards,\n[Your Name]",
	)}}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(), "write an email to my manager about sick leave", &core.UserContext{UserID: "u1", ManagerName: "Sarah"})

	require.True(t, result.Success)
	assert.Equal(t, core.RouteLLMEmail, result.Route)
	assert.True(t, result.RequiresUserApproval)
	assert.Equal(t, core.ActionShowEmailApproval, result.BackendAction)
	require.NotNil(t, result.EmailComponents)
	assert.Equal(t, "Sick Leave Request", result.EmailComponents.Subject)
}

func TestProcessAmbiguousResolvedToCompletion(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{generated(
		`{"intent": "task_completion", "confidence": 0.9}`,
	)}}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(), "wrap it up", &core.UserContext{UserID: "u1"})

	require.True(t, result.Success)
	assert.Equal(t, core.RouteLLMClassification, result.Route)
	assert.Equal(t, core.ActionMarkTaskComplete, result.BackendAction)
}

func TestProcessAmbiguousUnclear(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{generated(
		`{"intent": "unclear", "confidence": 0.4, "user_friendly_response": "Could you tell me which task you mean?"}`,
	)}}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(), "hmm that thing", &core.UserContext{UserID: "u1"})

	require.True(t, result.Success)
	assert.Equal(t, core.ActionShowClarification, result.BackendAction)
	assert.Equal(t, "Could you tell me which task you mean?", result.GeneratedContent)
}

func TestProcessBudgetExhaustionSurfacesCostError(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{
		generated("Resolved login defect; validated on staging; ready for production deployment."),
	}}
	// Tight enough that the first priced call exhausts the day's budget.
	p := newTestPipelineWithBudget(t, client, 0.0005)

	first := p.Process(context.Background(),
		"I fixed the login bug and tested it on staging, ready for production",
		&core.UserContext{UserID: "u1"})
	require.True(t, first.Success)

	second := p.Process(context.Background(),
		"fixed the checkout bug and tested the fix on staging today",
		&core.UserContext{UserID: "u1"})

	// The budget gate must be reported as such, never papered over by the
	// rule-based fallback.
	assert.False(t, second.Success)
	assert.Equal(t, core.ErrKindCostLimitReached, second.ErrorKind)
	assert.Equal(t, msgBudgetReached, second.FallbackMessage)
	assert.Len(t, client.requests, 1)
}

func TestProcessGenerationFailureIsDegradedNotFatal(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{{
		Success:           false,
		ErrorKind:         core.ErrKindTimeout,
		ErrorMessage:      "deadline exceeded",
		FallbackAvailable: true,
	}}}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(),
		"fixed the checkout bug and tested the fix on staging today",
		&core.UserContext{UserID: "u1"})

	// Rule-based fallback text still counts as success, pending approval.
	require.True(t, result.Success)
	assert.Equal(t, core.RouteLLMRephrasing, result.Route)
	assert.True(t, result.RequiresUserApproval)
	assert.NotEmpty(t, result.GeneratedContent)
}

func TestProcessPanicRecovery(t *testing.T) {
	client := &scriptedClient{panics: true}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(),
		"fixed the checkout bug and tested the fix on staging today",
		&core.UserContext{UserID: "u1"})

	assert.False(t, result.Success)
	assert.Equal(t, core.ErrKindPipelineError, result.ErrorKind)
	assert.Equal(t, msgServiceTrouble, result.FallbackMessage)
}

func TestProcessEntitiesExtracted(t *testing.T) {
	client := &scriptedClient{results: []*core.GenerationResult{generated(
		"Resolved defect in task 123. Deployment to staging completed.",
	)}}
	p := newTestPipeline(t, client)

	result := p.Process(context.Background(),
		"fixed the bug in task #123 and deployed the fix to staging",
		&core.UserContext{UserID: "u1"})

	require.True(t, result.Success)
	require.Contains(t, result.Entities, "task_ids")
	assert.Contains(t, result.Entities["task_ids"], "123")
}
