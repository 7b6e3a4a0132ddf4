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

const sampleEmail = `Subject: Sick Leave Request - [Date]

Dear Sarah,

I am unable to work tomorrow due to illness. I will monitor emails and address urgent matters remotely if possible.

Thank you for understanding.

Best regards,
Alex`

func newTestEmailGenerator(client core.GenerationClient) *EmailGenerator {
	logger := zap.NewNop()
	manager := newTestManager(client, 100)
	v := validator.New(logger, 0.8, nil)
	return NewEmailGenerator(logger, manager, cache.NewMemoryCache(logger, 100), v, 5000, 0.7, time.Hour)
}

func TestEmailGeneratorDraftsEmail(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{okResult(sampleEmail)}}
	g := newTestEmailGenerator(client)

	result := g.Generate(context.Background(), "sick leave tomorrow", &core.UserContext{
		UserName:    "Alex",
		ManagerName: "Sarah",
		Department:  "Engineering",
	})

	require.True(t, result.Success)
	assert.True(t, result.RequiresApproval)
	require.NotNil(t, result.Components)
	assert.Equal(t, "Sick Leave Request - [Date]", result.Components.Subject)
	assert.Equal(t, "Dear Sarah", result.Components.Greeting)
	assert.Equal(t, "Best regards", result.Components.Closing)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].SystemPrompt, "From: Alex")
	assert.Contains(t, client.requests[0].SystemPrompt, "To: Sarah")
}

func TestEmailGeneratorAlwaysRequiresApproval(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{okResult(sampleEmail)}}
	g := newTestEmailGenerator(client)

	result := g.Generate(context.Background(), "sick leave tomorrow", nil)

	require.True(t, result.Success)
	assert.True(t, result.RequiresApproval)
	assert.Equal(t, 1.0, result.QualityScore)
}

func TestEmailGeneratorRejectsEmptyRequest(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{okResult(sampleEmail)}}
	g := newTestEmailGenerator(client)

	result := g.Generate(context.Background(), "", nil)

	assert.False(t, result.Success)
	assert.Equal(t, core.ErrKindEmptyInput, result.ErrorKind)
	assert.Empty(t, client.requests)
}

func TestEmailGeneratorCacheKeyedByRecipient(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{okResult(sampleEmail)}}
	g := newTestEmailGenerator(client)

	g.Generate(context.Background(), "status update email", &core.UserContext{ManagerName: "Sarah"})
	g.Generate(context.Background(), "status update email", &core.UserContext{ManagerName: "Pat"})

	// Different managers must not share a draft.
	assert.Len(t, client.requests, 2)

	cached := g.Generate(context.Background(), "status update email", &core.UserContext{ManagerName: "Sarah"})
	assert.True(t, cached.FromCache)
	assert.Len(t, client.requests, 2)
}

func TestEmailGeneratorSkipsCachingLowQualityDraft(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{okResult("too short")}}
	g := newTestEmailGenerator(client)

	first := g.Generate(context.Background(), "vacation request", nil)
	require.True(t, first.Success)
	assert.Less(t, first.QualityScore, 0.7)

	// A poor draft must not be cached, so the repeat gets a fresh attempt.
	second := g.Generate(context.Background(), "vacation request", nil)
	assert.False(t, second.FromCache)
	assert.Len(t, client.requests, 2)
}

func TestEmailGeneratorSkipsCachingSensitiveDraft(t *testing.T) {
	leaky := `Subject: Payroll Update

Dear Sarah,

Your records list SSN 123-45-6789. Please confirm the details by Friday.

Best regards,
Alex`
	client := &stubClient{results: []*core.GenerationResult{okResult(leaky)}}
	g := newTestEmailGenerator(client)

	first := g.Generate(context.Background(), "payroll confirmation email", nil)
	require.True(t, first.Success)

	second := g.Generate(context.Background(), "payroll confirmation email", nil)
	assert.False(t, second.FromCache)
	assert.Len(t, client.requests, 2)
}

func TestEmailGeneratorSurfacesFailure(t *testing.T) {
	client := &stubClient{results: []*core.GenerationResult{{
		Success:      false,
		ErrorKind:    core.ErrKindAPIError,
		ErrorMessage: "service unavailable",
	}}}
	g := newTestEmailGenerator(client)

	result := g.Generate(context.Background(), "vacation request", nil)

	assert.False(t, result.Success)
	assert.Equal(t, core.ErrKindAPIError, result.ErrorKind)
	assert.Empty(t, result.EmailContent)
}

func TestParseEmailComponentsPartial(t *testing.T) {
	components := parseEmailComponents("Hi team,\n\nQuick note about the deploy.\n\nThanks")
	assert.Empty(t, components.Subject)
	assert.Equal(t, "Hi team", components.Greeting)
	assert.Empty(t, components.Closing)
}

func TestAssessEmailQuality(t *testing.T) {
	assert.Equal(t, 1.0, assessEmailQuality(sampleEmail))
	assert.InDelta(t, 0.4, assessEmailQuality("too short"), 0.01)
}
