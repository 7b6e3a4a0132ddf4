package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

func newTestClassifier() *Classifier {
	return New(zap.NewNop(), 5000, 50)
}

func TestClassifyCompletionPhrases(t *testing.T) {
	c := newTestClassifier()

	inputs := []string{
		"done",
		"task is done",
		"mark as complete",
		"finished",
		"I completed the report",
	}
	for _, input := range inputs {
		result := c.Classify(input)
		assert.Equal(t, core.RouteBackendCompletion, result.Route, "input: %q", input)
		assert.Equal(t, 0.95, result.Confidence, "input: %q", input)
		assert.Equal(t, "completion", result.MatchedPattern)
	}
}

func TestClassifyProductivityQueries(t *testing.T) {
	c := newTestClassifier()

	inputs := []string{
		"how productive was I",
		"my productivity this week",
		"show me my productivity score",
		"what's my completion rate",
	}
	for _, input := range inputs {
		result := c.Classify(input)
		assert.Equal(t, core.RouteBackendProductivity, result.Route, "input: %q", input)
		assert.Equal(t, 0.90, result.Confidence, "input: %q", input)
	}
}

func TestClassifyEmailRequests(t *testing.T) {
	c := newTestClassifier()

	inputs := []string{
		"write an email to the team",
		"send email about the delay",
		"compose an email for the client",
		"sick leave request",
	}
	for _, input := range inputs {
		result := c.Classify(input)
		assert.Equal(t, core.RouteLLMEmail, result.Route, "input: %q", input)
		assert.Equal(t, 0.85, result.Confidence, "input: %q", input)
	}
}

func TestClassifyComplexUpdate(t *testing.T) {
	c := newTestClassifier()

	result := c.Classify("I fixed the login bug and tested it on staging, ready for production")

	assert.Equal(t, core.RouteLLMRephrasing, result.Route)
	assert.Equal(t, 0.80, result.Confidence)
	assert.True(t, strings.HasPrefix(result.MatchedPattern, "complex_indicators_"))
}

func TestClassifyLongInputWithoutIndicators(t *testing.T) {
	c := newTestClassifier()

	result := c.Classify(strings.Repeat("status update for the team meeting notes ", 3))

	assert.Equal(t, core.RouteLLMRephrasing, result.Route)
	assert.Equal(t, 0.80, result.Confidence)
}

func TestClassifyEarlierTierWins(t *testing.T) {
	c := newTestClassifier()

	// Contains both a completion phrase and complex indicators; the
	// completion tier runs first.
	result := c.Classify("task is done, tested on staging after fixing the bug")

	assert.Equal(t, core.RouteBackendCompletion, result.Route)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestClassifyAmbiguousInput(t *testing.T) {
	c := newTestClassifier()

	result := c.Classify("hello there")

	assert.Equal(t, core.RouteLLMClassification, result.Route)
	assert.Equal(t, 0.60, result.Confidence)
	assert.Equal(t, "ambiguous", result.MatchedPattern)
}

func TestClassifyEmptyInput(t *testing.T) {
	c := newTestClassifier()

	for _, input := range []string{"", "   ", "\n\t"} {
		result := c.Classify(input)
		assert.Equal(t, core.RouteLLMClassification, result.Route)
		assert.Zero(t, result.Confidence)
		assert.Equal(t, "empty_input", result.MatchedPattern)
	}
}

func TestClassifyOversizedInputTruncated(t *testing.T) {
	c := New(zap.NewNop(), 100, 50)

	// A completion phrase past the cap must not influence the decision.
	input := strings.Repeat("x", 100) + " task is done"
	result := c.Classify(input)

	assert.Equal(t, core.RouteLLMRephrasing, result.Route)
}

func TestExtractEntities(t *testing.T) {
	c := newTestClassifier()

	entities := c.ExtractEntities("Finished task #123 and JIRA-456, deployment to staging")

	assert.Equal(t, []string{"123", "456"}, entities["task_ids"])
	assert.Contains(t, entities["status_keywords"], "finished")
	assert.Contains(t, entities["technical_terms"], "staging")
	assert.Contains(t, entities["technical_terms"], "deployment")
}

func TestExtractEntitiesDeduplicatesTaskIDs(t *testing.T) {
	c := newTestClassifier()

	entities := c.ExtractEntities("task 123 is blocked, see task #123")

	assert.Equal(t, []string{"123"}, entities["task_ids"])
}

func TestExtractEntitiesEmptyInput(t *testing.T) {
	c := newTestClassifier()

	entities := c.ExtractEntities("")

	require.NotNil(t, entities)
	assert.Empty(t, entities)
}
