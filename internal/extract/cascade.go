package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for repairing and mining model output.
var (
	codeFencePat     = regexp.MustCompile("```(?:json)?\\s*|\\s*```")
	trailingCommaPat = regexp.MustCompile(`,(\s*[}\]])`)
	brokenStringPat  = regexp.MustCompile(`(["'])\s*\n\s*(["'])`)
	scopedObjectPat  = regexp.MustCompile(`(?s)\{[^{}]*"requirement"[^{}]*\}`)
)

// Sentence-level trigger patterns for tier-3 extraction. The standard set
// requires an institution-referring subject; the aggressive set drops that
// requirement and widens the trigger vocabulary for corrupted input.
var standardRequirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)((?:Banks|Institutions|Entities)[^.]*(?:must|shall|required)[^.]*\.)`),
	regexp.MustCompile(`(?is)((?:The|A|An)[^.]*(?:requirement|obligation)[^.]*\.)`),
	regexp.MustCompile(`(?is)([^.]*(?:compliance with|adherence to)[^.]*\.)`),
}

var aggressiveRequirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)([^.]*(?:must|shall|required to|obligated to|mandatory)[^.]*\.)`),
	regexp.MustCompile(`(?is)([^.]*(?:prohibited|forbidden|not permitted|shall not|must not)[^.]*\.)`),
	regexp.MustCompile(`(?is)([^.]*(?:minimum|maximum|at least|no more than)[^.]*\.)`),
	regexp.MustCompile(`(?is)([^.]*(?:within \d+|by [A-Za-z]+ \d+|before [A-Za-z]+)[^.]*\.)`),
}

// Candidate spans outside these bounds are discarded by tier 3.
const (
	minSpanLength = 20
	maxSpanLength = 500
)

// summaryPreviewLength bounds the content preview on tier-4 records.
const summaryPreviewLength = 300

// parseCascade turns raw generation output into validated requirements,
// trying tiers 1-3 in order and stopping at the first that produces
// something usable. May return an empty slice; the caller applies the
// tier-4 summary fallback once retries are exhausted.
func parseCascade(response, chunkID string) []Requirement {
	if reqs := parseStructured(response, chunkID); len(reqs) > 0 {
		return reqs
	}
	if reqs := parseScopedObjects(response, chunkID); len(reqs) > 0 {
		return reqs
	}
	return patternFallback(response, chunkID, false)
}

// parseStructured is tier 1: repair the response into a JSON object and
// accept it only if it carries a "requirements" list.
func parseStructured(response, chunkID string) []Requirement {
	cleaned := repairJSON(response)
	if cleaned == "" {
		return nil
	}

	var parsed struct {
		ChunkID      string        `json:"chunk_id"`
		Requirements []Requirement `json:"requirements"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil
	}

	out := make([]Requirement, 0, len(parsed.Requirements))
	for i := range parsed.Requirements {
		req := parsed.Requirements[i]
		if finalize(&req, chunkID, MethodModel, len(out)+1) {
			out = append(out, req)
		}
	}
	return out
}

// repairJSON strips code fences, truncates to the outermost braces, and
// fixes the trailing commas and broken strings models commonly emit.
func repairJSON(response string) string {
	cleaned := codeFencePat.ReplaceAllString(strings.TrimSpace(response), "")

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first < 0 || last <= first {
		return ""
	}
	cleaned = cleaned[first : last+1]

	cleaned = trailingCommaPat.ReplaceAllString(cleaned, "$1")
	cleaned = brokenStringPat.ReplaceAllString(cleaned, "$1 $2")
	return cleaned
}

// parseScopedObjects is tier 2: mine the raw text for non-nested
// brace-delimited fragments containing a "requirement" key and parse each
// independently, keeping the ones that survive.
func parseScopedObjects(response, chunkID string) []Requirement {
	var out []Requirement
	for _, match := range scopedObjectPat.FindAllString(response, -1) {
		var req Requirement
		if err := json.Unmarshal([]byte(match), &req); err != nil {
			continue
		}
		if req.ID == "" {
			req.ID = fmt.Sprintf("%s_ALT%03d", chunkID, len(out)+1)
		}
		if finalize(&req, chunkID, MethodAlternative, len(out)+1) {
			out = append(out, req)
		}
	}
	return out
}

// patternFallback is tier 3: scan for sentences carrying obligation
// triggers and build records from the surviving spans. The standard pass
// escalates to the aggressive pass on an empty result; corrupted content
// enters directly at the aggressive pass.
func patternFallback(text, chunkID string, aggressive bool) []Requirement {
	patterns := standardRequirementPatterns
	if aggressive {
		patterns = aggressiveRequirementPatterns
	}

	var out []Requirement
	seen := make(map[string]bool)
	for _, pat := range patterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			span := strings.TrimSpace(m[1])
			if len(span) <= minSpanLength || len(span) >= maxSpanLength || seen[span] {
				continue
			}
			seen[span] = true

			req := Requirement{
				ID:       fmt.Sprintf("%s_FALLBACK%03d", chunkID, len(out)+1),
				Text:     span,
				Category: classifyCategory(span),
				Priority: inferPriority(span),
				Keywords: extractKeywords(span),
				Type:     classifyType(span),
			}
			if finalize(&req, chunkID, MethodPatternFallback, len(out)+1) {
				out = append(out, req)
			}
		}
	}

	if len(out) == 0 && !aggressive {
		return patternFallback(text, chunkID, true)
	}
	return out
}

// summaryFallback is tier 4: a single review-required record carrying a
// truncated preview, so the chunk stays visible in the audit trail.
func summaryFallback(text, chunkID string) Requirement {
	preview := strings.TrimSpace(text)
	if len(preview) > summaryPreviewLength {
		preview = preview[:summaryPreviewLength] + "..."
	}
	req := Requirement{
		ID:       chunkID + "_SUMMARY001",
		Text:     "Manual review required - potential regulatory content: " + preview,
		Category: "review_required",
		Priority: "low",
		Keywords: []string{"manual_review"},
	}
	finalize(&req, chunkID, MethodSummaryFallback, 1)
	return req
}
