package segmenter

import (
	"strings"
	"testing"
)

func newTest(cfg Config) *Segmenter {
	return New(cfg, nil)
}

func TestChunkEmptyInput(t *testing.T) {
	s := newTest(DefaultConfig())
	if got := s.Chunk("", DocTypeRegulatory); got != nil {
		t.Errorf("expected nil for empty input, got %d chunks", len(got))
	}
	if got := s.Chunk("     ", DocTypeRegulatory); got != nil {
		t.Errorf("expected nil for whitespace input, got %d chunks", len(got))
	}
	if got := s.Chunk("too short", DocTypeRegulatory); got != nil {
		t.Errorf("expected nil for sub-minimal input, got %d chunks", len(got))
	}
}

func TestChunkSingleSmallDocument(t *testing.T) {
	s := newTest(DefaultConfig())
	content := "Banks must maintain adequate capital at all times."
	chunks := s.Chunk(content, DocTypeRegulatory)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.ID != "1" {
		t.Errorf("expected id \"1\", got %q", c.ID)
	}
	if c.Content != content {
		t.Errorf("expected content preserved verbatim, got %q", c.Content)
	}
	if c.CharCount != len(content) {
		t.Errorf("expected char count %d, got %d", len(content), c.CharCount)
	}
	if c.EstimatedTokens != len(content)/4 {
		t.Errorf("expected %d estimated tokens, got %d", len(content)/4, c.EstimatedTokens)
	}
	if c.DocType != DocTypeRegulatory {
		t.Errorf("expected doc type %q, got %q", DocTypeRegulatory, c.DocType)
	}
}

func TestChunkSequentialIDs(t *testing.T) {
	s := newTest(DefaultConfig())
	content := "Section 1. Capital requirements apply to all banks.\nSection 2. Liquidity requirements apply as well.\nSection 3. Governance requirements complete the set."
	chunks := s.Chunk(content, DocTypeRegulatory)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		want := string(rune('1' + i))
		if c.ID != want {
			t.Errorf("chunk %d: expected id %q, got %q", i, want, c.ID)
		}
	}
}

func TestSplitStructuralMarkerReattachment(t *testing.T) {
	content := "Preamble text here.\nSection 1: Capital.\nSection 2: Liquidity."
	sections := splitStructural(content)

	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %q", len(sections), sections)
	}
	if sections[0] != "Preamble text here." {
		t.Errorf("first section should keep no marker, got %q", sections[0])
	}
	if !strings.HasPrefix(sections[1], "Section ") {
		t.Errorf("expected marker reattached, got %q", sections[1])
	}
	if !strings.HasPrefix(sections[2], "Section ") {
		t.Errorf("expected marker reattached, got %q", sections[2])
	}
}

func TestSplitStructuralHeadingMarkers(t *testing.T) {
	content := "Intro paragraph.\n## Scope\nApplies to all institutions.\n## Reporting\nQuarterly submissions required."
	sections := splitStructural(content)

	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %q", len(sections), sections)
	}
	if !strings.HasPrefix(sections[1], "## Scope") {
		t.Errorf("expected heading kept with its section, got %q", sections[1])
	}
	if !strings.HasPrefix(sections[2], "## Reporting") {
		t.Errorf("expected heading kept with its section, got %q", sections[2])
	}
}

func TestSplitStructuralParagraphGap(t *testing.T) {
	content := "First block of text.\n\n\nSecond block of text."
	sections := splitStructural(content)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %q", len(sections), sections)
	}
}

func TestSplitLargeSectionBoundsAndOverlap(t *testing.T) {
	s := newTest(Config{MaxChunkSize: 500, Overlap: 50})
	sentence := "The institution shall monitor its exposures on a continuous basis. "
	section := strings.Repeat(sentence, 40) // ~2680 chars

	parts := s.splitLargeSection(section)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}

	for i, p := range parts {
		if len(p) > 500 {
			t.Errorf("part %d exceeds max size: %d chars", i, len(p))
		}
	}

	// Every part except the last should end just after a sentence terminator.
	for i := 0; i < len(parts)-1; i++ {
		if !strings.HasSuffix(parts[i], ". ") {
			t.Errorf("part %d should cut after a terminator, got tail %q", i, parts[i][len(parts[i])-10:])
		}
	}

	// Consecutive parts share exactly Overlap characters of context.
	pos := 0
	for i := 0; i < len(parts)-1; i++ {
		pos += len(parts[i])
		next := pos - 50
		if section[next:next+len(parts[i+1])] != parts[i+1] {
			t.Fatalf("part %d does not start at expected overlap offset", i+1)
		}
		pos = next
	}

	// Reconstruction: dropping each part's leading overlap restores the input.
	var rebuilt strings.Builder
	rebuilt.WriteString(parts[0])
	for _, p := range parts[1:] {
		rebuilt.WriteString(p[50:])
	}
	if rebuilt.String() != section {
		t.Error("reconstructed section does not match input")
	}
}

func TestSplitLargeSectionFinalChunkVerbatim(t *testing.T) {
	s := newTest(Config{MaxChunkSize: 100, Overlap: 10})
	section := strings.Repeat("Word word word word. ", 12) // 252 chars

	parts := s.splitLargeSection(section)
	last := parts[len(parts)-1]
	if !strings.HasSuffix(section, last) {
		t.Error("final part should be the verbatim remainder of the section")
	}
}

func TestSplitLargeSectionNoTerminator(t *testing.T) {
	// No terminator anywhere: cuts fall at the hard window edge.
	s := newTest(Config{MaxChunkSize: 100, Overlap: 0})
	section := strings.Repeat("x", 350)

	parts := s.splitLargeSection(section)
	if len(parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(parts))
	}
	for i := 0; i < 3; i++ {
		if len(parts[i]) != 100 {
			t.Errorf("part %d: expected 100 chars, got %d", i, len(parts[i]))
		}
	}
	if len(parts[3]) != 50 {
		t.Errorf("final part: expected 50 chars, got %d", len(parts[3]))
	}
}

func TestSplitLargeSectionStallGuard(t *testing.T) {
	// Overlap larger than the advance must not loop forever.
	s := newTest(Config{MaxChunkSize: 20, Overlap: 30})
	section := strings.Repeat("abcde", 20) // 100 chars

	parts := s.splitLargeSection(section)
	if len(parts) == 0 {
		t.Fatal("expected parts")
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	if total < len(section) {
		t.Errorf("parts cover %d of %d chars", total, len(section))
	}
}

func TestSplitLargeSectionMultiByteSafety(t *testing.T) {
	s := newTest(Config{MaxChunkSize: 100, Overlap: 10})
	section := strings.Repeat("Die Bank prüft die Eigenkapitalausstattung täglich und meldet Abweichungen unverzüglich ", 10)

	for _, p := range s.splitLargeSection(section) {
		for _, r := range p {
			if r == '�' {
				t.Fatal("part contains invalid UTF-8 from a mid-rune cut")
			}
		}
	}
}

func TestChunkLargeDocumentEndToEnd(t *testing.T) {
	s := newTest(Config{MaxChunkSize: 1000, Overlap: 100})
	sentence := "Institutions must report material risk exposures to the supervisory authority without undue delay. "
	content := strings.Repeat(sentence, 60) // ~6000 chars, no structural markers

	chunks := s.Chunk(content, DocTypeRegulatory)
	if len(chunks) < 6 {
		t.Fatalf("expected at least 6 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.CharCount > 1000 {
			t.Errorf("chunk %d exceeds max size: %d", i, c.CharCount)
		}
		if strings.TrimSpace(c.Content) == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if c.CharCount != len(c.Content) {
			t.Errorf("chunk %d char count mismatch", i)
		}
	}
}
