package extract

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// Extraction methods identify which cascade tier produced a record.
const (
	MethodModel           = "model"
	MethodAlternative     = "alternative_parse"
	MethodPatternFallback = "pattern_fallback"
	MethodSummaryFallback = "summary_fallback"
	MethodError           = "error"
)

// minRequirementLength is the shortest requirement text accepted after
// trimming. Shorter candidates are dropped, not padded.
const minRequirementLength = 10

// maxKeywords caps the keyword list on any record.
const maxKeywords = 10

// Requirement is one structured compliance obligation extracted from a chunk.
type Requirement struct {
	ID               string   `json:"id"`
	Text             string   `json:"requirement"`
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	Reference        string   `json:"reference"`
	Keywords         []string `json:"keywords"`
	Type             string   `json:"requirement_type"`
	Deadline         string   `json:"deadline,omitempty"`
	AppliesTo        string   `json:"applies_to,omitempty"`
	SourceChunkID    string   `json:"chunk_id"`
	ParentChunkID    string   `json:"parent_chunk_id,omitempty"`
	SubChunkIndex    int      `json:"sub_chunk_index,omitempty"`
	ExtractionMethod string   `json:"extraction_method"`
	Fingerprint      string   `json:"content_fingerprint"`
	Error            string   `json:"error,omitempty"`
}

var fingerprintSpace = regexp.MustCompile(`\s+`)

// FingerprintText returns an 8-hex-char digest of the normalized
// requirement text. Records with equal fingerprints denote the same
// underlying obligation regardless of which tier produced them.
func FingerprintText(text string) string {
	norm := fingerprintSpace.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	sum := sha256.Sum256([]byte(norm))
	return fmt.Sprintf("%x", sum[:4])
}

// finalize fills missing optional fields with their defaults, computes the
// fingerprint, and tags the record with its extraction method. Returns
// false when the requirement text is too short to keep.
func finalize(req *Requirement, chunkID, method string, seq int) bool {
	req.Text = strings.TrimSpace(req.Text)
	if len(req.Text) < minRequirementLength {
		return false
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("%s_REQ%03d", chunkID, seq)
	}
	if req.Category == "" {
		req.Category = "general"
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if req.Reference == "" {
		req.Reference = "Chunk " + chunkID
	}
	if req.Type == "" {
		req.Type = "mandatory"
	}
	if req.Keywords == nil {
		req.Keywords = []string{}
	}
	if len(req.Keywords) > maxKeywords {
		req.Keywords = req.Keywords[:maxKeywords]
	}
	req.SourceChunkID = chunkID
	req.ExtractionMethod = method
	req.Fingerprint = FingerprintText(req.Text)
	return true
}

// Dedupe drops records whose fingerprint was already seen, preserving
// order. The first occurrence of each obligation wins.
func Dedupe(reqs []Requirement) []Requirement {
	seen := make(map[string]bool, len(reqs))
	out := reqs[:0:0]
	for _, r := range reqs {
		if r.Fingerprint != "" && seen[r.Fingerprint] {
			continue
		}
		seen[r.Fingerprint] = true
		out = append(out, r)
	}
	return out
}
