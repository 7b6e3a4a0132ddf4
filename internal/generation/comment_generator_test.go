package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/validator"
)

func newTestCommentGenerator(client core.GenerationClient) (*CommentGenerator, core.ResultCache) {
	logger := zap.NewNop()
	resultCache := cache.NewMemoryCache(logger, 100)
	manager := newTestManager(client, 100)
	v := validator.New(logger, 0.8, nil)
	return NewCommentGenerator(logger, manager, resultCache, v, 5000, 0.7, 0.85, time.Hour), resultCache
}

func TestCommentGeneratorRephrases(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{
		okResult("Resolved the login defect. Testing completed on the staging environment."),
	}}
	g, _ := newTestCommentGenerator(client)

	result := g.Generate(context.Background(), "fixed login bug, tested on staging", nil)

	require.True(t, result.Success)
	assert.Equal(t, "Resolved the login defect. Testing completed on the staging environment.", result.ProfessionalComment)
	assert.False(t, result.FromCache)
	assert.Greater(t, result.QualityScore, 0.7)
}

func TestCommentGeneratorRejectsEmptyInput(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{okResult("x")}}
	g, _ := newTestCommentGenerator(client)

	result := g.Generate(context.Background(), "   ", nil)

	assert.False(t, result.Success)
	assert.Equal(t, core.ErrKindEmptyInput, result.ErrorKind)
	assert.Empty(t, client.requests)
}

func TestCommentGeneratorCachesHighQualityResults(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{
		okResult("Resolved the login defect. Testing completed on the staging environment."),
	}}
	g, _ := newTestCommentGenerator(client)

	first := g.Generate(context.Background(), "fixed login bug, tested on staging", nil)
	require.True(t, first.Success)

	second := g.Generate(context.Background(), "Fixed login bug, tested on staging  ", nil)
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.ProfessionalComment, second.ProfessionalComment)
	assert.Len(t, client.requests, 1)
}

func TestCommentGeneratorSkipsCacheBelowQualityThreshold(t *testing.T) {
	// Two casual words against zero professional ones drags the score to 0.7,
	// right at the threshold boundary only if no other penalty applies; "ok"
	// alone is under three words and loses another 0.4.
	client := &stubClient{results: []*core.GenerationResult{okResult("ok")}}
	g, resultCache := newTestCommentGenerator(client)

	result := g.Generate(context.Background(), "some update text here", nil)
	require.True(t, result.Success)
	assert.Less(t, result.QualityScore, 0.7)
	assert.True(t, result.RequiresApproval)

	_, found := resultCache.Get(cache.Key(cache.PurposeComment, "some update text here"))
	assert.False(t, found)
}

func TestCommentGeneratorContextualPrompt(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{
		okResult("Implemented the reporting endpoint."),
	}}
	g, _ := newTestCommentGenerator(client)

	g.Generate(context.Background(), "built the reporting api", &core.UserContext{
		Role:        "backend engineer",
		ProjectType: "analytics",
	})

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].SystemPrompt, "User role: backend engineer")
	assert.Contains(t, client.requests[0].SystemPrompt, "Project: analytics")
}

func TestCommentGeneratorFallbackWhenServiceDown(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{{
		Success:           false,
		ErrorKind:         core.ErrKindTimeout,
		ErrorMessage:      "deadline exceeded",
		FallbackAvailable: true,
	}}}
	g, _ := newTestCommentGenerator(client)

	result := g.Generate(context.Background(), "im done with the api work", nil)

	require.True(t, result.Success)
	assert.True(t, result.FallbackUsed)
	assert.True(t, result.RequiresApproval)
	assert.Equal(t, 0.6, result.QualityScore)
	assert.Equal(t, "Update: Im done with the api work.", result.ProfessionalComment)
}

func TestCommentGeneratorErrorWhenNoFallback(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{{
		Success:      false,
		ErrorKind:    core.ErrKindAuthentication,
		ErrorMessage: "invalid api key",
	}}}
	g, _ := newTestCommentGenerator(client)

	result := g.Generate(context.Background(), "fixed the bug", nil)

	assert.False(t, result.Success)
	assert.Equal(t, core.ErrKindAuthentication, result.ErrorKind)
	assert.Equal(t, "Task update: fixed the bug", result.FallbackComment)
}

func TestCommentGeneratorBudgetBlockIsNotMasked(t *testing.T) {
	logger := zap.NewNop()
	client := &stubClient{results: []*core.GenerationResult{okResult("x")}}
	manager := newTestManager(client, 0)
	v := validator.New(logger, 0.8, nil)
	g := NewCommentGenerator(logger, manager, cache.NewMemoryCache(logger, 100), v, 5000, 0.7, 0.85, time.Hour)

	result := g.Generate(context.Background(), "fixed the bug", nil)

	// An exhausted budget must surface as a typed error, not turn into a
	// rule-based rephrasing that looks like a success.
	assert.False(t, result.Success)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, core.ErrKindCostLimitReached, result.ErrorKind)
	assert.Empty(t, client.requests)
}

func TestAssessCommentQuality(t *testing.T) {
	tests := []struct {
		name     string
		comment  string
		original string
		min, max float64
	}{
		{
			name:     "professional with preserved terms",
			comment:  "Resolved the API bug. Deployment to staging completed.",
			original: "fixed api bug, deployed to staging",
			min:      1.0, max: 1.0,
		},
		{
			name:     "too short",
			comment:  "Done.",
			original: "done",
			min:      0.0, max: 0.4,
		},
		{
			name:     "casual register",
			comment:  "yeah gonna be awesome",
			original: "will do it",
			min:      0.6, max: 0.7,
		},
		{
			name:     "dropped technical terms",
			comment:  "Work is proceeding as planned.",
			original: "api database backend frontend all updated",
			min:      0.7, max: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := assessCommentQuality(tt.comment, tt.original)
			assert.GreaterOrEqual(t, score, tt.min)
			assert.LessOrEqual(t, score, tt.max)
		})
	}
}

func TestSimpleRephraseFallback(t *testing.T) {
	assert.Equal(t, "Update: Fixed the thing.", simpleRephraseFallback("fixed the thing"))
	assert.Equal(t, "Update: Shipped!", simpleRephraseFallback("shipped!"))
	assert.Equal(t, "Update: I can't repro, I don't see it.", simpleRephraseFallback("i cant repro, i dont see it"))
}
