package extract

import (
	"regexp"
	"strings"
)

// Noise patterns stripped before quality assessment and extraction.
// These target artifacts of upstream PDF/OCR text extraction.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(page \d+|pg\. \d+)\b`),            // page-number markers
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),      // bare dates
	regexp.MustCompile(`(?m)^\s*[\d.\-()]+\s*$`),                 // standalone numeral/bullet lines
	regexp.MustCompile(`(?i)\b(figure|table|chart|appendix)\s+\d+\b`), // figure/table cross-references
	regexp.MustCompile(`\s{3,}`),                                 // whitespace runs
	regexp.MustCompile(`_{3,}`),                                  // underscore runs
}

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	lowerUpperJoin   = regexp.MustCompile(`([a-z])([A-Z])`)
	digitLetterJoin  = regexp.MustCompile(`(\d)([A-Za-z])`)
	letterDigitJoin  = regexp.MustCompile(`([A-Za-z])(\d)`)
	periodBeforeCaps = regexp.MustCompile(`\.([A-Z])`)
)

// Preprocess normalizes noisy document text before extraction. It is
// deterministic and side-effect-free; empty input is returned unchanged.
func Preprocess(content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}

	for _, pat := range noisePatterns {
		content = pat.ReplaceAllString(content, " ")
	}

	content = whitespaceRun.ReplaceAllString(content, " ")

	// Undo word joins left behind by upstream extraction.
	content = lowerUpperJoin.ReplaceAllString(content, "$1 $2")
	content = digitLetterJoin.ReplaceAllString(content, "$1 $2")
	content = letterDigitJoin.ReplaceAllString(content, "$1 $2")

	// Restore the space after sentence-terminating periods.
	content = periodBeforeCaps.ReplaceAllString(content, ". $1")

	return strings.TrimSpace(content)
}
