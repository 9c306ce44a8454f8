// Package compliance assesses a bank policy document against extracted
// regulatory requirements.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/compligest/internal/extract"
)

const systemPrompt = "You are a banking compliance expert. Assess policy compliance accurately and provide actionable recommendations."

// Compliance status values, ordered from best to worst.
const (
	StatusFullyCompliant       = "fully_compliant"
	StatusSatisfactory         = "satisfactory"
	StatusMajorGaps            = "major_gaps"
	StatusNonCompliant         = "non_compliant"
	StatusMissingRequirement   = "missing_requirement"
	StatusManualReviewRequired = "manual_review_required"
	StatusSkipped              = "skipped"
	StatusError                = "error"
)

var knownStatuses = []string{
	StatusFullyCompliant,
	StatusSatisfactory,
	StatusMajorGaps,
	StatusNonCompliant,
	StatusMissingRequirement,
}

// Result is the compliance assessment for a single requirement.
type Result struct {
	RequirementID    string `json:"id"`
	Requirement      string `json:"requirement"`
	Reference        string `json:"reference"`
	Status           string `json:"compliance_status"`
	Assessment       string `json:"assessment"`
	Recommendations  string `json:"recommendations"`
	PolicyReferences string `json:"policy_references"`
}

// Summary aggregates per-requirement results into status counts.
type Summary struct {
	TotalChecked int            `json:"total_checked"`
	ByStatus     map[string]int `json:"by_status"`
	Results      []Result       `json:"results"`
}

// Checker runs compliance assessments through a text-generation backend.
type Checker struct {
	gen extract.Generator
	log *slog.Logger
}

func New(gen extract.Generator, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{gen: gen, log: log}
}

// CheckAll assesses every requirement against the policy. A failure on one
// requirement produces an error result rather than aborting the run.
func (c *Checker) CheckAll(ctx context.Context, policy string, reqs []extract.Requirement) Summary {
	summary := Summary{
		ByStatus: make(map[string]int),
		Results:  make([]Result, 0, len(reqs)),
	}
	for _, req := range reqs {
		res := c.CheckRequirement(ctx, policy, req)
		summary.Results = append(summary.Results, res)
		summary.ByStatus[res.Status]++
	}
	summary.TotalChecked = len(summary.Results)
	c.log.Info("compliance check complete", "total", summary.TotalChecked, "by_status", summary.ByStatus)
	return summary
}

// CheckRequirement assesses one requirement against the policy text.
func (c *Checker) CheckRequirement(ctx context.Context, policy string, req extract.Requirement) Result {
	res := Result{
		RequirementID: req.ID,
		Requirement:   req.Text,
		Reference:     req.Reference,
	}

	if strings.TrimSpace(req.Text) == "" {
		res.Status = StatusSkipped
		res.Assessment = "Skipped empty or invalid requirement"
		return res
	}

	prompt := buildPrompt(policy, req)
	response, err := c.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		c.log.Error("compliance check failed", "requirement_id", req.ID, "error", err)
		res.Status = StatusError
		res.Assessment = fmt.Sprintf("Error during compliance check: %v", err)
		res.Recommendations = "Manual review required due to processing error"
		return res
	}

	res.Status = extractClassification(response)
	res.Assessment = response
	res.Recommendations = extractSection(response, "recommendation", "No specific recommendations provided.")
	res.PolicyReferences = extractSection(response, "policy reference", "No specific policy references identified.")
	return res
}

func buildPrompt(policy string, req extract.Requirement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assess the compliance of the bank policy against the following regulatory requirement:\n\n")
	fmt.Fprintf(&b, "Requirement ID: %s\n", req.ID)
	fmt.Fprintf(&b, "Requirement: %s\n", req.Text)
	fmt.Fprintf(&b, "Reference: %s\n", req.Reference)
	fmt.Fprintf(&b, "Keywords: %s\n\n", strings.Join(req.Keywords, ", "))
	fmt.Fprintf(&b, "Bank Policy (full text):\n%s\n\n", policy)
	b.WriteString(`Classify the compliance level as one of:
1. fully_compliant - Requirement is fully addressed
2. satisfactory - Requirement is adequately addressed with minor gaps
3. major_gaps - Requirement is partially addressed but has significant gaps
4. non_compliant - Requirement is addressed but not adequately
5. missing_requirement - Requirement is not addressed at all

Provide your assessment in the following format:
Classification: [your classification]
Reasoning: [detailed explanation]
Recommendations: [specific recommendations if not fully compliant]
Policy References: [relevant sections of bank policy that relate to this requirement]
`)
	return b.String()
}

// extractClassification matches the first known status mentioned in the
// response, with underscores or spaces. Unrecognized responses fall back
// to manual review.
func extractClassification(response string) string {
	lower := strings.ToLower(response)
	for _, status := range knownStatuses {
		if strings.Contains(lower, status) || strings.Contains(lower, strings.ReplaceAll(status, "_", " ")) {
			return status
		}
	}
	return StatusManualReviewRequired
}

// extractSection gathers the lines following a labeled section header,
// stopping at the next known header.
func extractSection(response, label, fallback string) string {
	var parts []string
	capture := false
	for _, line := range strings.Split(response, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, label) {
			capture = true
			if rest := afterColon(line); rest != "" {
				parts = append(parts, rest)
			}
			continue
		}
		if !capture {
			continue
		}
		if strings.Contains(lower, "classification:") || strings.Contains(lower, "reasoning:") ||
			strings.Contains(lower, "recommendations:") || strings.Contains(lower, "policy references:") {
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, " ")
}

func afterColon(line string) string {
	if _, rest, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
