package extract

import (
	"regexp"
	"strings"
)

// categoryTable maps requirement categories to their trigger keywords.
// Scanned in order; the first category with a matching keyword wins.
var categoryTable = []struct {
	name     string
	keywords []string
}{
	{"capital_adequacy", []string{"capital", "tier 1", "tier 2", "capital ratio", "adequacy", "buffer"}},
	{"risk_management", []string{"risk", "risk management", "risk assessment", "risk control", "exposure"}},
	{"reporting", []string{"report", "reporting", "disclosure", "submit", "filing", "notification"}},
	{"liquidity", []string{"liquidity", "liquid assets", "funding", "cash", "liquidity ratio"}},
	{"governance", []string{"governance", "board", "management", "oversight", "supervision"}},
	{"operational", []string{"operational", "procedures", "controls", "processes", "systems"}},
	{"credit_risk", []string{"credit risk", "lending", "loan", "default", "credit assessment"}},
	{"market_risk", []string{"market risk", "trading", "market exposure", "position"}},
	{"compliance", []string{"compliance", "regulatory", "regulation", "authorized", "license"}},
}

// Keyword vocabularies collected from requirement text, scanned in this
// fixed order so output is deterministic.
var (
	actionKeywords  = []string{"assess", "monitor", "report", "maintain", "establish", "ensure", "implement", "comply"}
	financialTerms  = []string{"capital", "risk", "liquidity", "exposure", "ratio", "threshold", "limit", "buffer"}
	entityTerms     = []string{"bank", "institution", "entity", "firm", "organization"}
	temporalPattern = regexp.MustCompile(`\b(annual|quarterly|monthly|daily|immediate|within \d+)\b`)
)

var strongObligationWords = []string{"must", "shall", "mandatory", "required"}

// classifyCategory assigns a category from the fixed keyword table,
// defaulting to "general" when nothing matches.
func classifyCategory(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.name
			}
		}
	}
	return "general"
}

// inferPriority marks requirements carrying strong obligation words high.
func inferPriority(text string) string {
	lower := strings.ToLower(text)
	for _, w := range strongObligationWords {
		if strings.Contains(lower, w) {
			return "high"
		}
	}
	return "medium"
}

// extractKeywords collects up to maxKeywords relevant terms from the
// action, financial, entity, and temporal vocabularies.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var keywords []string
	seen := make(map[string]bool)

	add := func(kw string) {
		if kw != "" && !seen[kw] && len(keywords) < maxKeywords {
			seen[kw] = true
			keywords = append(keywords, kw)
		}
	}

	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			add(kw)
		}
	}
	for _, kw := range financialTerms {
		if strings.Contains(lower, kw) {
			add(kw)
		}
	}
	for _, kw := range entityTerms {
		if strings.Contains(lower, kw) {
			add(kw)
		}
	}
	for _, m := range temporalPattern.FindAllString(lower, -1) {
		add(m)
	}

	return keywords
}

// classifyType infers the requirement modality from its trigger words.
func classifyType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, regulatoryKeywords["prohibitive"]):
		return "prohibitive"
	case containsAny(lower, regulatoryKeywords["mandatory"]):
		return "mandatory"
	case containsAny(lower, regulatoryKeywords["quantitative"]):
		return "quantitative"
	case containsAny(lower, regulatoryKeywords["conditional"]):
		return "conditional"
	default:
		return "procedural"
	}
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
