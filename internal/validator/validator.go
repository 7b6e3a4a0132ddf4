package validator

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

// Vocabulary used for the tone score. Hits are matched as substrings of the
// lowercased content, mirroring how reviewers skim for register.
var (
	professionalIndicators = []string{
		"completed", "implemented", "resolved", "pending", "reviewing",
		"investigating", "deployment", "testing", "development",
		"addressing", "coordinating", "optimizing", "analyzing",
	}

	unprofessionalIndicators = []string{
		"gonna", "wanna", "kinda", "sorta", "dunno", "yeah", "nope",
		"totally", "awesome", "cool", "sucks", "crap", "dude", "bro",
	}

	completionMarkers = []string{"completed", "finished", "done", "resolved", "closed"}
)

var (
	ssnPattern      = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern     = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	passwordPattern = regexp.MustCompile(`(?i)\bpassword[:\s]+\S+`)
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

const (
	baseToneScore        = 0.7
	maxProfessionalBonus = 0.3
	unprofessionalCost   = 0.2

	lengthPenalty    = 0.2
	sensitivePenalty = 0.5
	flagPenalty      = 0.1
)

// Validator scores generated text for professionalism, length and leaked
// sensitive information, and decides whether it may be sent without a human
// looking at it. It holds no mutable state and is safe for concurrent use.
type Validator struct {
	logger                *zap.Logger
	autoApprovalThreshold float64
	allowedEmailDomains   []string
}

func New(logger *zap.Logger, autoApprovalThreshold float64, allowedEmailDomains []string) *Validator {
	if autoApprovalThreshold <= 0 {
		autoApprovalThreshold = 0.8
	}
	if len(allowedEmailDomains) == 0 {
		allowedEmailDomains = []string{"company.com", "organization.org"}
	}
	domains := make([]string, len(allowedEmailDomains))
	for i, d := range allowedEmailDomains {
		domains[i] = strings.ToLower(d)
	}
	return &Validator{
		logger:                logger,
		autoApprovalThreshold: autoApprovalThreshold,
		allowedEmailDomains:   domains,
	}
}

// Validate scores content for the given route. Checks never abort processing;
// each problem appends a flag and a recommendation, and the auto-send gate is
// conjunctive: a high score cannot outweigh a single sensitive-information
// hit or any outstanding flag.
func (v *Validator) Validate(content string, route core.RouteType) *core.Validation {
	result := &core.Validation{
		ProfessionalToneScore: v.toneScore(content),
	}

	if issue, recommendation, ok := v.checkLength(content, route); ok {
		result.LengthAppropriate = true
	} else {
		result.Flags = append(result.Flags, issue)
		result.Recommendations = append(result.Recommendations, recommendation)
	}

	if findings := v.sensitiveFindings(content); len(findings) > 0 {
		result.HasSensitiveInfo = true
		result.Flags = append(result.Flags, findings...)
		result.Recommendations = append(result.Recommendations, "Remove sensitive information before sending")
	}

	if route == core.RouteLLMRephrasing {
		if markers := foundCompletionMarkers(content); len(markers) > 0 {
			result.HasCompletionMarkers = true
			result.Flags = append(result.Flags, "Contains completion markers: "+strings.Join(markers, ", "))
			result.Recommendations = append(result.Recommendations, "Verify task is actually complete before marking as done")
		}
	}

	result.OverallScore = v.overallScore(result)
	result.ApprovedForAutoSend = result.OverallScore >= v.autoApprovalThreshold &&
		!result.HasSensitiveInfo &&
		len(result.Flags) == 0

	v.logger.Debug("response validated",
		zap.Float64("overall_score", result.OverallScore),
		zap.Bool("auto_approved", result.ApprovedForAutoSend),
		zap.Strings("flags", result.Flags))

	return result
}

// QuickValidate is a cheap pre-flight check used for fallback content that
// skips full scoring.
func (v *Validator) QuickValidate(content string) bool {
	if len(strings.TrimSpace(content)) < 3 {
		return false
	}
	lower := strings.ToLower(content)
	for _, word := range []string{"fuck", "shit", "damn", "crap"} {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return !ssnPattern.MatchString(content)
}

func (v *Validator) toneScore(content string) float64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(content)

	profCount := 0
	for _, word := range professionalIndicators {
		if strings.Contains(lower, word) {
			profCount++
		}
	}
	unprofCount := 0
	for _, word := range unprofessionalIndicators {
		if strings.Contains(lower, word) {
			unprofCount++
		}
	}

	profBonus := float64(profCount) / float64(len(words)) * 2
	if profBonus > maxProfessionalBonus {
		profBonus = maxProfessionalBonus
	}

	return clamp01(baseToneScore + profBonus - float64(unprofCount)*unprofessionalCost)
}

func (v *Validator) checkLength(content string, route core.RouteType) (issue, recommendation string, ok bool) {
	wordCount := len(strings.Fields(content))

	switch route {
	case core.RouteLLMRephrasing:
		if wordCount < 3 {
			return "Comment too short (less than 3 words)", "Add more detail about the task update", false
		}
		if wordCount > 100 {
			return "Comment too long (over 100 words)", "Make comment more concise", false
		}
	case core.RouteLLMEmail:
		if wordCount < 10 {
			return "Email too short (less than 10 words)", "Add more context and proper email structure", false
		}
		if wordCount > 300 {
			return "Email too long (over 300 words)", "Make email more concise for better readability", false
		}
	}
	return "", "", true
}

func (v *Validator) sensitiveFindings(content string) []string {
	var findings []string

	if ssnPattern.MatchString(content) {
		findings = append(findings, "Potential SSN detected")
	}
	if cardPattern.MatchString(content) {
		findings = append(findings, "Potential credit card number detected")
	}
	if passwordPattern.MatchString(content) {
		findings = append(findings, "Password information detected")
	}
	if v.hasPersonalEmail(content) {
		findings = append(findings, "Personal email address detected")
	}

	return findings
}

func (v *Validator) hasPersonalEmail(content string) bool {
	for _, addr := range emailPattern.FindAllString(content, -1) {
		at := strings.LastIndex(addr, "@")
		domain := strings.ToLower(addr[at+1:])
		allowed := false
		for _, d := range v.allowedEmailDomains {
			if domain == d {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}
	return false
}

func (v *Validator) overallScore(result *core.Validation) float64 {
	score := result.ProfessionalToneScore
	if !result.LengthAppropriate {
		score -= lengthPenalty
	}
	if result.HasSensitiveInfo {
		score -= sensitivePenalty
	}
	score -= float64(len(result.Flags)) * flagPenalty
	return clamp01(score)
}

func foundCompletionMarkers(content string) []string {
	lower := strings.ToLower(content)
	var markers []string
	for _, word := range completionMarkers {
		if strings.Contains(lower, word) {
			markers = append(markers, word)
		}
	}
	return markers
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
