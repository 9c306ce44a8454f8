// Package segmenter splits regulatory text into bounded, boundary-aware
// chunks for downstream requirement extraction.
package segmenter

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// charsPerToken is the approximate average characters per token.
const charsPerToken = 4

// minContentLength is the shortest input worth chunking.
const minContentLength = 10

// softBoundaryWindow is how far back from the hard window edge we look
// for a sentence or paragraph terminator before cutting.
const softBoundaryWindow = 200

// DocType tags the kind of document a chunk came from.
type DocType string

const (
	DocTypePolicy     DocType = "policy"
	DocTypeRegulatory DocType = "regulatory"
)

// Chunk is a bounded slice of a source document.
type Chunk struct {
	// ID is the chunk identifier. Top-level chunks get sequential 1-based
	// decimal ids; recursively split chunks get "<parent>_SUB<n>" ids so
	// lineage is recoverable from the id alone.
	ID string `json:"chunk_id"`

	// Content is the chunk text. Never empty or whitespace-only.
	Content string `json:"content"`

	// DocType is the caller-supplied document kind.
	DocType DocType `json:"doc_type"`

	// CharCount is len(Content).
	CharCount int `json:"char_count"`

	// EstimatedTokens is the rough token count (chars/4).
	EstimatedTokens int `json:"estimated_tokens"`
}

// Config controls segmentation behavior.
type Config struct {
	MaxChunkSize int // Maximum chunk size in characters.
	Overlap      int // Characters of shared context between consecutive chunks.
}

// DefaultConfig returns sensible defaults for top-level segmentation.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize: 30000,
		Overlap:      200,
	}
}

// SubChunkConfig returns the configuration used when re-segmenting an
// oversized chunk inside the extractor.
func SubChunkConfig() Config {
	return Config{
		MaxChunkSize: 3000,
		Overlap:      200,
	}
}

// Segmenter splits documents into chunks.
type Segmenter struct {
	cfg Config
	log *slog.Logger
}

// New creates a Segmenter. Non-positive config values fall back to defaults.
func New(cfg Config, log *slog.Logger) *Segmenter {
	def := DefaultConfig()
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = def.MaxChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = def.Overlap
	}
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{cfg: cfg, log: log}
}

// sectionMarkers are structural boundaries tried in priority order. Each
// marker is re-applied across every fragment the previous markers produced.
var sectionMarkers = []string{
	"\n\n\n",
	"\nSection ",
	"\nArticle ",
	"\nChapter ",
	"\n### ",
	"\n## ",
	"\n# ",
}

// terminators are soft cut points searched in the trailing window of each
// size-bounded split, in priority order.
var terminators = []string{". ", ".\n", "!\n", "?\n", "\n\n"}

// Chunk splits content into an ordered sequence of bounded chunks.
// Returns an empty sequence for empty or sub-minimal input; never fails
// for any other input.
func (s *Segmenter) Chunk(content string, docType DocType) []Chunk {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < minContentLength {
		s.log.Warn("content empty or too short to chunk", "chars", len(trimmed))
		return nil
	}

	sections := splitStructural(trimmed)

	var pieces []string
	for _, sec := range sections {
		if len(sec) <= s.cfg.MaxChunkSize {
			pieces = append(pieces, sec)
			continue
		}
		pieces = append(pieces, s.splitLargeSection(sec)...)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		text := strings.TrimSpace(piece)
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:              strconv.Itoa(len(chunks) + 1),
			Content:         text,
			DocType:         docType,
			CharCount:       len(text),
			EstimatedTokens: len(text) / charsPerToken,
		})
	}

	s.log.Debug("chunked document", "chars", len(trimmed), "chunks", len(chunks))
	return chunks
}

// splitStructural splits content on section markers, reattaching the marker
// text to the front of every part except the first so each section keeps
// its heading. Empty fragments are dropped.
func splitStructural(content string) []string {
	sections := []string{content}

	for _, marker := range sectionMarkers {
		label := strings.TrimLeft(marker, "\n")
		var next []string
		for _, sec := range sections {
			if !strings.Contains(sec, marker) {
				next = append(next, sec)
				continue
			}
			for i, part := range strings.Split(sec, marker) {
				if i > 0 {
					part = label + part
				}
				if strings.TrimSpace(part) != "" {
					next = append(next, part)
				}
			}
		}
		sections = next
	}

	return sections
}

// splitLargeSection walks a section in windows of MaxChunkSize characters,
// preferring to cut just after a sentence or paragraph terminator found in
// the trailing softBoundaryWindow. Consecutive chunks share Overlap
// characters of context; the final chunk is emitted verbatim.
func (s *Segmenter) splitLargeSection(section string) []string {
	var chunks []string
	start := 0

	for start < len(section) {
		end := start + s.cfg.MaxChunkSize
		if end >= len(section) {
			chunks = append(chunks, section[start:])
			break
		}

		window := section[start:end]
		cut := end
		for _, term := range terminators {
			idx := strings.LastIndex(window, term)
			if idx >= 0 && idx >= len(window)-softBoundaryWindow {
				cut = start + idx + len(term)
				break
			}
		}
		// Never cut in the middle of a multi-byte rune at the hard edge.
		for cut > start && cut < len(section) && !utf8.RuneStart(section[cut]) {
			cut--
		}

		chunks = append(chunks, section[start:cut])

		next := cut - s.cfg.Overlap
		if next <= start {
			// Overlap would stall the walk; advance without it.
			next = cut
		}
		for next > 0 && next < len(section) && !utf8.RuneStart(section[next]) {
			next--
		}
		start = next
	}

	return chunks
}
