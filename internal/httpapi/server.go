// Package httpapi exposes the routing pipeline over HTTP. It owns the
// inbound request contract: input length bounds and the required user
// context fields are enforced here, before anything reaches the pipeline.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/metrics"
	"github.com/taskpilot/llm-router/internal/pipeline"
	"github.com/taskpilot/llm-router/internal/resilience"
	"github.com/taskpilot/llm-router/internal/utils"
)

const (
	maxInputChars = 5000
	maxBodyBytes  = 64 * 1024
)

// processRequest is the inbound JSON contract for POST /v1/process.
type processRequest struct {
	UserInput   string             `json:"user_input"`
	UserContext processUserContext `json:"user_context"`
}

type processUserContext struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	ManagerName string `json:"manager_name,omitempty"`
	Department  string `json:"department,omitempty"`
	Role        string `json:"role,omitempty"`
	ProjectType string `json:"project_type,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statsResponse aggregates the operational state of the router.
type statsResponse struct {
	Metrics  metrics.Summary                       `json:"metrics"`
	Breakers map[string]resilience.BreakerMetrics  `json:"circuit_breakers"`
	Budget   resilience.LedgerSnapshot             `json:"budget"`
	Cache    core.CacheStats                       `json:"cache"`
}

// Server serves the routing pipeline over HTTP.
type Server struct {
	logger    *zap.Logger
	pipeline  *pipeline.Pipeline
	collector *metrics.Collector
	governor  *resilience.Governor
	cache     core.ResultCache
	text      *utils.TextProcessor
	srv       *http.Server
}

func NewServer(
	logger *zap.Logger,
	p *pipeline.Pipeline,
	collector *metrics.Collector,
	governor *resilience.Governor,
	resultCache core.ResultCache,
	text *utils.TextProcessor,
	listenAddr string,
	readTimeout, writeTimeout time.Duration,
) *Server {
	s := &Server{
		logger:    logger,
		pipeline:  p,
		collector: collector,
		governor:  governor,
		cache:     resultCache,
		text:      text,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/process", s.handleProcess)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called; a graceful shutdown is reported as a nil error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the routing mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req processRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := s.text.SanitizeUTF8(req.UserInput)
	if strings.TrimSpace(input) == "" {
		s.writeError(w, http.StatusBadRequest, "user_input is required")
		return
	}
	if len(input) > maxInputChars {
		input = s.text.TruncateText(input, maxInputChars)
	}
	if req.UserContext.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_context.user_id is required")
		return
	}

	userCtx := &core.UserContext{
		UserID:      req.UserContext.UserID,
		UserName:    req.UserContext.UserName,
		ManagerName: req.UserContext.ManagerName,
		Department:  req.UserContext.Department,
		Role:        req.UserContext.Role,
		ProjectType: req.UserContext.ProjectType,
		SessionID:   req.UserContext.SessionID,
	}

	result := s.pipeline.Process(r.Context(), input, userCtx)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{
		Metrics:  s.collector.Summary(),
		Breakers: s.governor.BreakerMetrics(),
		Budget:   s.governor.LedgerSnapshot(),
		Cache:    s.cache.Stats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
