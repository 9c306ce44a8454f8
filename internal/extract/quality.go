package extract

import (
	"regexp"
	"strings"
)

// regulatoryKeywords groups obligation-signal vocabularies by modality.
// Counts across all groups feed the quality score and prompt adaptation.
var regulatoryKeywords = map[string][]string{
	"mandatory":    {"must", "shall", "required", "mandatory", "obligated", "necessary"},
	"prohibitive":  {"prohibited", "forbidden", "not permitted", "shall not", "must not"},
	"conditional":  {"should", "may", "could", "recommended", "advisable"},
	"temporal":     {"immediately", "within", "by", "before", "after", "during"},
	"quantitative": {"minimum", "maximum", "at least", "no more than", "exceeds", "below"},
}

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	specialCharPat = regexp.MustCompile(`[^\w\s.,!?;:-]`)
)

// keywordPatterns holds a word-boundary matcher per regulatory keyword,
// compiled once at package init.
var keywordPatterns = compileKeywordPatterns()

func compileKeywordPatterns() []*regexp.Regexp {
	var pats []*regexp.Regexp
	for _, words := range regulatoryKeywords {
		for _, w := range words {
			pats = append(pats, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
		}
	}
	return pats
}

// wordsNeedingSplit is the word count above which a chunk is re-segmented
// before extraction.
const wordsNeedingSplit = 2500

// QualityAssessment is a heuristic reading of one chunk's text, used to
// route it to the cheapest extraction strategy that will still succeed.
// It lives only for the duration of a single extraction call.
type QualityAssessment struct {
	WordCount            int
	RegulatoryIndicators int
	CoherentSentences    int
	QualityScore         float64
	NeedsSplitting       bool
	LikelyCorrupted      bool
}

// AssessQuality scores content on a 0-100 scale. The weights are a fixed
// behavioral contract, not tunables.
func AssessQuality(content string) QualityAssessment {
	words := strings.Fields(content)
	wordCount := len(words)

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLength := float64(totalLen) / float64(max(wordCount, 1))

	indicators := 0
	for _, pat := range keywordPatterns {
		indicators += len(pat.FindAllStringIndex(content, -1))
	}

	coherent := 0
	for _, s := range sentenceSplit.Split(content, -1) {
		if len(strings.Fields(s)) > 3 {
			coherent++
		}
	}

	specialRatio := float64(len(specialCharPat.FindAllStringIndex(content, -1))) / float64(max(len(content), 1))

	lengthBonus := 20.0
	if wordCount > 50 && wordCount < 1000 {
		lengthBonus = 50.0
	}
	wordLenBonus := 10.0
	if avgWordLength > 3 {
		wordLenBonus = 20.0
	}

	score := float64(indicators)*10 + float64(coherent)*5 + lengthBonus + wordLenBonus - specialRatio*100
	if score > 100 {
		score = 100
	}

	return QualityAssessment{
		WordCount:            wordCount,
		RegulatoryIndicators: indicators,
		CoherentSentences:    coherent,
		QualityScore:         score,
		NeedsSplitting:       wordCount > wordsNeedingSplit,
		LikelyCorrupted:      specialRatio > 0.3 || score < 20,
	}
}
