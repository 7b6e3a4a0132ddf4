package core

import (
	"time"
)

// RouteType is the closed set of categories a request can be routed to.
type RouteType string

const (
	// RouteBackendCompletion covers simple "done" statements handled by the backend.
	RouteBackendCompletion RouteType = "backend_completion"
	// RouteBackendProductivity covers stats queries computed by the backend.
	RouteBackendProductivity RouteType = "backend_productivity"
	// RouteLLMRephrasing covers complex task updates that need rewording.
	RouteLLMRephrasing RouteType = "llm_rephrasing"
	// RouteLLMEmail covers email generation requests.
	RouteLLMEmail RouteType = "llm_email"
	// RouteLLMClassification covers ambiguous requests needing LLM intent help.
	RouteLLMClassification RouteType = "llm_classification"
)

// RequiresLLM reports whether the route needs an external generation call.
func (r RouteType) RequiresLLM() bool {
	switch r {
	case RouteLLMRephrasing, RouteLLMEmail, RouteLLMClassification:
		return true
	}
	return false
}

// Classification is the outcome of intent classification for one request.
type Classification struct {
	Route          RouteType
	Confidence     float64
	MatchedPattern string
	Entities       map[string][]string
}

// UserContext carries caller-supplied user information through the pipeline.
type UserContext struct {
	UserID      string
	UserName    string
	ManagerName string
	Department  string
	Role        string
	ProjectType string
	SessionID   string
}

// ModelTier selects which configured model a generation call should use.
type ModelTier string

const (
	TierPrimary        ModelTier = "primary"
	TierFast           ModelTier = "fast"
	TierClassification ModelTier = "classification"
)

// TokenUsage reports token consumption for one generation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationRequest is the input to the external generation service.
type GenerationRequest struct {
	SystemPrompt string
	UserMessage  string
	Tier         ModelTier
	Temperature  float32
	MaxTokens    int
}

// GenerationResult is the typed outcome of one generation call. Success is the
// discriminator: on failure ErrorKind carries the failure class and
// FallbackAvailable tells the caller whether a rule-based degraded output
// may be substituted.
type GenerationResult struct {
	Success           bool
	Content           string
	ModelUsed         string
	Usage             TokenUsage
	ErrorKind         ErrorKind
	ErrorMessage      string
	FallbackAvailable bool
	RetryAfter        time.Duration
}

// ErrorKind classifies failures surfaced by components. Components return
// kinds instead of raising across boundaries; the pipeline maps them to the
// caller-facing shape.
type ErrorKind string

const (
	ErrKindNone             ErrorKind = ""
	ErrKindEmptyInput       ErrorKind = "empty_input"
	ErrKindInvalidInput     ErrorKind = "invalid_input"
	ErrKindRateLimit        ErrorKind = "rate_limit"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindAuthentication   ErrorKind = "authentication_error"
	ErrKindAPIError         ErrorKind = "api_error"
	ErrKindCircuitOpen      ErrorKind = "circuit_breaker_open"
	ErrKindCostLimitReached ErrorKind = "cost_limit_reached"
	ErrKindGenerationFailed ErrorKind = "generation_failed"
	ErrKindPipelineError    ErrorKind = "pipeline_error"
	ErrKindUnexpected       ErrorKind = "unexpected_error"
)

// Validation is the heuristic quality assessment of generated text.
type Validation struct {
	OverallScore          float64  `json:"overall_score"`
	ProfessionalToneScore float64  `json:"professional_tone_score"`
	LengthAppropriate     bool     `json:"length_appropriate"`
	HasSensitiveInfo      bool     `json:"has_sensitive_info"`
	HasCompletionMarkers  bool     `json:"has_completion_markers,omitempty"`
	Flags                 []string `json:"flags,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
	ApprovedForAutoSend   bool     `json:"approved_for_auto_send"`
}

// BackendAction names the deterministic action the backend should perform.
type BackendAction string

const (
	ActionMarkTaskComplete      BackendAction = "mark_task_complete"
	ActionCalculateProductivity BackendAction = "calculate_productivity_stats"
	ActionShowCommentApproval   BackendAction = "show_comment_for_approval"
	ActionShowEmailApproval     BackendAction = "show_email_for_approval"
	ActionShowClarification     BackendAction = "show_clarification_request"
	ActionShowErrorMessage      BackendAction = "show_error_message"
	ActionRequestClarification  BackendAction = "request_clarification"
)

// EmailComponents holds the parts parsed out of a generated email.
type EmailComponents struct {
	Subject  string `json:"subject,omitempty"`
	Greeting string `json:"greeting,omitempty"`
	Closing  string `json:"closing,omitempty"`
}

// ProcessingMeta carries generation metadata through to the caller.
type ProcessingMeta struct {
	ModelUsed      string        `json:"model_used,omitempty"`
	TokensUsed     int           `json:"tokens_used,omitempty"`
	FallbackUsed   bool          `json:"fallback_used,omitempty"`
	FromCache      bool          `json:"from_cache,omitempty"`
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
}

// PipelineResult is the single response shape returned to the caller. It is
// always well formed: Success plus either a backend action or an error kind
// with a plain-language fallback message.
type PipelineResult struct {
	Success              bool                `json:"success"`
	Route                RouteType           `json:"route_type"`
	Confidence           float64             `json:"confidence"`
	RequiresLLM          bool                `json:"requires_llm"`
	OriginalInput        string              `json:"original_input"`
	GeneratedContent     string              `json:"generated_content,omitempty"`
	EmailComponents      *EmailComponents    `json:"email_components,omitempty"`
	RequiresUserApproval bool                `json:"requires_user_approval"`
	ApprovalReason       []string            `json:"approval_reason,omitempty"`
	QualityScore         float64             `json:"quality_score,omitempty"`
	Validation           *Validation         `json:"validation,omitempty"`
	BackendAction        BackendAction       `json:"backend_action"`
	Entities             map[string][]string `json:"extracted_entities,omitempty"`
	FromCache            bool                `json:"from_cache"`
	ErrorKind            ErrorKind           `json:"error,omitempty"`
	ErrorMessage         string              `json:"error_message,omitempty"`
	FallbackMessage      string              `json:"fallback_message,omitempty"`
	Meta                 ProcessingMeta      `json:"processing_metadata"`
}
