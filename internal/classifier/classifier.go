package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/taskpilot/llm-router/internal/core"
	"go.uber.org/zap"
)

// Confidence levels reported per pattern tier. Earlier tiers pre-empt later
// ones; a later rule never downgrades an earlier match.
const (
	completionConfidence   = 0.95
	productivityConfidence = 0.90
	emailConfidence        = 0.85
	complexConfidence      = 0.80
	ambiguousConfidence    = 0.60
)

var (
	completionRegex = regexp.MustCompile(`(?i)(\b(done|completed|finished|complete)\b)|(\btask\s+(is\s+)?(done|finished|complete))|(\bmark\s+as\s+(done|complete))|(\b(finish|close)\s+task)|(^\s*(done|finished|completed)\s*$)`)

	productivityRegex = regexp.MustCompile(`(?i)(how\s+productive\s+was\s+i)|(my\s+productivity\s+(this\s+week|last\s+week))|(productivity\s+(score|stats|report))|(how\s+many\s+tasks\s+(completed|finished))|(completion\s+rate)|(weekly\s+(summary|report))`)

	emailRegex = regexp.MustCompile(`(?i)(write\s+(an?\s+)?email)|(send\s+(an?\s+)?email)|(compose\s+(an?\s+)?email)|(email\s+(my\s+)?manager)|(sick\s+leave\s+(request|email))|((pto|vacation)\s+(request|email))`)

	complexRegex = regexp.MustCompile(`(?i)(\b(tested|testing|fixed|fixing|implemented|working on)\b)|(\b(waiting for|blocked by|pending)\b)|(\b(staging|production|deployment)\b)|(\b(issue|bug|problem|error)\b)|(\b(review|approval|qa|quality)\b)`)

	taskIDRegex = regexp.MustCompile(`(?i)(?:task\s*#?\s*|[a-z]+-?)(\d+)\b`)
)

// Status keywords and technical terms recognized by entity extraction.
var (
	statusKeywords = []string{
		"done", "completed", "finished", "pending", "blocked",
		"testing", "in progress", "resolved",
	}
	technicalTerms = []string{
		"api", "bug", "feature", "database", "frontend", "backend",
		"deployment", "staging", "production",
	}
)

// Classifier routes user requests by ordered pattern matching. Simple
// requests hit backend shortcuts, complex ones go to the LLM. Classification
// is deterministic and side-effect-free.
type Classifier struct {
	logger                 *zap.Logger
	maxInputLength         int
	complexLengthThreshold int
}

// New creates a new intent classifier
func New(logger *zap.Logger, maxInputLength, complexLengthThreshold int) *Classifier {
	if maxInputLength <= 0 {
		maxInputLength = 5000
	}
	if complexLengthThreshold <= 0 {
		complexLengthThreshold = 50
	}
	return &Classifier{
		logger:                 logger,
		maxInputLength:         maxInputLength,
		complexLengthThreshold: complexLengthThreshold,
	}
}

// Classify determines the routing decision for a user request
func (c *Classifier) Classify(userInput string) core.Classification {
	if strings.TrimSpace(userInput) == "" {
		c.logger.Warn("Empty input received for classification")
		return core.Classification{
			Route:          core.RouteLLMClassification,
			Confidence:     0.0,
			MatchedPattern: "empty_input",
		}
	}

	// Oversized input is truncated, never rejected
	if len(userInput) > c.maxInputLength {
		c.logger.Warn("Input too long, truncating", zap.Int("length", len(userInput)))
		userInput = userInput[:c.maxInputLength]
	}

	normalized := strings.TrimSpace(userInput)

	// Priority 1: simple completions (highest confidence)
	if completionRegex.MatchString(normalized) {
		c.logger.Debug("Matched completion pattern")
		return core.Classification{
			Route:          core.RouteBackendCompletion,
			Confidence:     completionConfidence,
			MatchedPattern: "completion",
		}
	}

	// Priority 2: productivity queries
	if productivityRegex.MatchString(normalized) {
		c.logger.Debug("Matched productivity pattern")
		return core.Classification{
			Route:          core.RouteBackendProductivity,
			Confidence:     productivityConfidence,
			MatchedPattern: "productivity",
		}
	}

	// Priority 3: email requests
	if emailRegex.MatchString(normalized) {
		c.logger.Debug("Matched email pattern")
		return core.Classification{
			Route:          core.RouteLLMEmail,
			Confidence:     emailConfidence,
			MatchedPattern: "email",
		}
	}

	// Priority 4: complex updates needing rephrasing
	complexMatches := len(complexRegex.FindAllString(normalized, -1))
	if complexMatches >= 2 || len(normalized) > c.complexLengthThreshold {
		c.logger.Debug("Complex update detected", zap.Int("indicators", complexMatches))
		return core.Classification{
			Route:          core.RouteLLMRephrasing,
			Confidence:     complexConfidence,
			MatchedPattern: "complex_indicators_" + strconv.Itoa(complexMatches),
		}
	}

	// Default: ambiguous, send to LLM for classification help
	c.logger.Debug("No clear pattern matched, defaulting to LLM classification")
	return core.Classification{
		Route:          core.RouteLLMClassification,
		Confidence:     ambiguousConfidence,
		MatchedPattern: "ambiguous",
	}
}

// ExtractEntities scans user input for task identifiers, status keywords,
// and technical terms. Absence of matches yields an empty map, never an error.
func (c *Classifier) ExtractEntities(userInput string) map[string][]string {
	entities := make(map[string][]string)
	if userInput == "" {
		return entities
	}

	// Task identifiers ("task #123", "JIRA-456", "BUG-789"), deduplicated
	matches := taskIDRegex.FindAllStringSubmatch(userInput, -1)
	if len(matches) > 0 {
		seen := make(map[string]bool)
		var ids []string
		for _, m := range matches {
			if !seen[m[1]] {
				seen[m[1]] = true
				ids = append(ids, m[1])
			}
		}
		entities["task_ids"] = ids
		c.logger.Debug("Extracted task IDs", zap.Strings("task_ids", ids))
	}

	lower := strings.ToLower(userInput)

	var keywords []string
	for _, kw := range statusKeywords {
		if strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) > 0 {
		entities["status_keywords"] = keywords
	}

	var terms []string
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			terms = append(terms, term)
		}
	}
	if len(terms) > 0 {
		entities["technical_terms"] = terms
	}

	return entities
}
