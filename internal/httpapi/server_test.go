package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"github.com/taskpilot/llm-router/internal/pipeline"
	"github.com/taskpilot/llm-router/internal/resilience"
	"github.com/taskpilot/llm-router/internal/utils"
	"github.com/taskpilot/llm-router/internal/validator"
)

type staticClient struct {
	result *core.GenerationResult
}

func (s *staticClient) Generate(context.Context, *core.GenerationRequest) (*core.GenerationResult, error) {
	return s.result, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()

	client := &staticClient{result: &core.GenerationResult{
		Success:   true,
		Content:   "Resolved the reported issue. Testing completed on staging.",
		ModelUsed: "gpt-4o",
		Usage:     core.TokenUsage{PromptTokens: 50, CompletionTokens: 20, TotalTokens: 70},
	}}

	governor := resilience.NewGovernor(
		logger,
		resilience.NewBreakerRegistry(resilience.BreakerConfig{}),
		resilience.NewCostLedger(logger, resilience.DefaultPricing(), 100, 80),
		resilience.NewAlertManager(logger, resilience.AlertConfig{}),
	)
	collector := metrics.NewCollector(logger, 1000)
	manager := generation.NewManager(logger, client, governor, collector, 5*time.Second)
	resultCache := cache.NewMemoryCache(logger, 100)
	v := validator.New(logger, 0.8, nil)

	p := pipeline.New(
		logger,
		classifier.New(logger, 5000, 50),
		v,
		generation.NewCommentGenerator(logger, manager, resultCache, v, 5000, 0.7, 0.85, time.Hour),
		generation.NewEmailGenerator(logger, manager, resultCache, v, 5000, 0.7, time.Hour),
		generation.NewIntentResolver(logger, manager),
		cache.NewMemoryCache(logger, 100),
		collector,
		pipeline.Options{ConfidenceThreshold: 0.8, RouteTTL: time.Hour},
	)

	return NewServer(logger, p, collector, governor, resultCache,
		utils.NewTextProcessor(logger), "127.0.0.1:0", time.Second, time.Second)
}

func postProcess(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestProcessEndpointBackendShortcut(t *testing.T) {
	s := newTestServer(t)

	rec := postProcess(t, s, `{"user_input": "done", "user_context": {"user_id": "u1"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result core.PipelineResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, core.RouteBackendCompletion, result.Route)
	assert.Equal(t, core.ActionMarkTaskComplete, result.BackendAction)
}

func TestProcessEndpointRephrasing(t *testing.T) {
	s := newTestServer(t)

	rec := postProcess(t, s, `{"user_input": "fixed the login bug and tested it on staging", "user_context": {"user_id": "u1", "role": "developer"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result core.PipelineResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, core.RouteLLMRephrasing, result.Route)
	assert.Equal(t, "Resolved the reported issue. Testing completed on staging.", result.GeneratedContent)
}

func TestProcessEndpointRejectsMissingInput(t *testing.T) {
	s := newTestServer(t)

	rec := postProcess(t, s, `{"user_context": {"user_id": "u1"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessEndpointRejectsMissingUserID(t *testing.T) {
	s := newTestServer(t)

	rec := postProcess(t, s, `{"user_input": "done", "user_context": {}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessEndpointRejectsBadJSON(t *testing.T) {
	s := newTestServer(t)

	rec := postProcess(t, s, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessEndpointRejectsGet(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/process", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	postProcess(t, s, `{"user_input": "done", "user_context": {"user_id": "u1"}}`)
	postProcess(t, s, `{"user_input": "fixed the login bug and tested it on staging", "user_context": {"user_id": "u1"}}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Metrics.TotalExecutions)
	assert.Equal(t, 1, stats.Metrics.BackendShortcuts)
	assert.Contains(t, stats.Breakers, resilience.ComponentLLMAPI)
	assert.Equal(t, 100.0, stats.Budget.MaxDailyUSD)
	assert.Greater(t, stats.Budget.SpentUSD, 0.0)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
