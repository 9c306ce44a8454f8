// Package extract turns document chunks into validated compliance
// requirement records via a generation call with a tiered parsing cascade.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/compligest/internal/segmenter"
)

// Generator is the external text-generation capability. It may block or
// fail transiently; the extractor treats failures as retryable up to its
// attempt budget.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Config controls extraction behavior.
type Config struct {
	// MaxAttempts is the generation attempt budget per chunk.
	MaxAttempts int

	// SubChunk configures re-segmentation of oversized chunks.
	SubChunk segmenter.Config

	// MaxRecursionDepth caps oversized-chunk recursion. Below the cap the
	// extractor falls back to pattern extraction instead of recursing.
	MaxRecursionDepth int
}

// DefaultConfig returns the standard extraction settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       2,
		SubChunk:          segmenter.SubChunkConfig(),
		MaxRecursionDepth: 3,
	}
}

// errorPreviewLength bounds the content preview on error sentinel records.
const errorPreviewLength = 200

// Extractor extracts requirement records from chunks.
type Extractor struct {
	gen Generator
	seg *segmenter.Segmenter
	cfg Config
	log *slog.Logger
}

// New creates an Extractor around the given generation capability.
func New(gen Generator, cfg Config, log *slog.Logger) *Extractor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.MaxRecursionDepth <= 0 {
		cfg.MaxRecursionDepth = 3
	}
	if cfg.SubChunk.MaxChunkSize <= 0 {
		cfg.SubChunk = segmenter.SubChunkConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		gen: gen,
		seg: segmenter.New(cfg.SubChunk, log),
		cfg: cfg,
		log: log,
	}
}

// Extract converts one chunk into an ordered list of requirement records.
// It never fails: empty content yields an empty list, and any internal
// failure yields a single error sentinel record, so every non-empty chunk
// stays attributable in the output.
func (e *Extractor) Extract(ctx context.Context, chunk segmenter.Chunk) []Requirement {
	return e.extract(ctx, chunk, 0)
}

func (e *Extractor) extract(ctx context.Context, chunk segmenter.Chunk, depth int) []Requirement {
	if strings.TrimSpace(chunk.Content) == "" {
		e.log.Warn("empty content in chunk", "chunk_id", chunk.ID)
		return nil
	}

	processed := Preprocess(chunk.Content)
	qa := AssessQuality(processed)
	e.log.Debug("assessed chunk quality",
		"chunk_id", chunk.ID,
		"words", qa.WordCount,
		"indicators", qa.RegulatoryIndicators,
		"score", qa.QualityScore,
		"corrupted", qa.LikelyCorrupted,
		"needs_splitting", qa.NeedsSplitting,
	)

	// Corrupted content would only confuse the model; mine it directly.
	if qa.LikelyCorrupted {
		e.log.Warn("likely corrupted content, using aggressive fallback", "chunk_id", chunk.ID)
		return e.patternExtract(processed, chunk.ID, true)
	}

	if qa.NeedsSplitting {
		if depth >= e.cfg.MaxRecursionDepth {
			e.log.Warn("recursion depth cap reached, using pattern fallback", "chunk_id", chunk.ID, "depth", depth)
			return e.patternExtract(processed, chunk.ID, true)
		}
		return e.extractOversized(ctx, processed, chunk, depth)
	}

	prompt := BuildExtractionPrompt(processed, chunk.ID, qa)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		response, err := e.gen.Generate(ctx, SystemPrompt, prompt)
		if err != nil {
			lastErr = err
			e.log.Warn("generation attempt failed", "chunk_id", chunk.ID, "attempt", attempt, "error", err)
			continue
		}

		reqs := parseCascade(response, chunk.ID)
		if len(reqs) > 0 {
			e.log.Info("extracted requirements", "chunk_id", chunk.ID, "count", len(reqs), "method", reqs[0].ExtractionMethod)
			return reqs
		}
		if attempt == e.cfg.MaxAttempts {
			// Nothing parseable after the full budget: keep the chunk
			// visible in the audit trail.
			return []Requirement{summaryFallback(response, chunk.ID)}
		}
	}

	// Generation never produced a response. Mine the chunk content itself
	// before admitting defeat with an error sentinel.
	if reqs := patternFallback(processed, chunk.ID, false); len(reqs) > 0 {
		e.log.Info("generation failed, pattern fallback recovered requirements", "chunk_id", chunk.ID, "count", len(reqs))
		return reqs
	}
	e.log.Error("extraction failed for chunk", "chunk_id", chunk.ID, "error", lastErr)
	return []Requirement{errorSentinel(chunk, lastErr)}
}

// extractOversized re-segments the chunk at sub-chunk size and recurses on
// each piece in order, tagging results with their parent lineage.
func (e *Extractor) extractOversized(ctx context.Context, content string, chunk segmenter.Chunk, depth int) []Requirement {
	sub := e.seg.Chunk(content, chunk.DocType)
	if len(sub) <= 1 {
		// Content refuses to shrink; do not recurse forever.
		return e.patternExtract(content, chunk.ID, true)
	}
	e.log.Info("re-segmenting oversized chunk", "chunk_id", chunk.ID, "sub_chunks", len(sub), "depth", depth)

	var all []Requirement
	for i, sc := range sub {
		sc.ID = fmt.Sprintf("%s_SUB%d", chunk.ID, i+1)
		reqs := e.extract(ctx, sc, depth+1)
		for j := range reqs {
			reqs[j].ParentChunkID = chunk.ID
			reqs[j].SubChunkIndex = i + 1
		}
		all = append(all, reqs...)
	}
	return all
}

// patternExtract runs tier-3 extraction over content, backstopped by the
// tier-4 summary record so the result is never empty.
func (e *Extractor) patternExtract(content, chunkID string, aggressive bool) []Requirement {
	if reqs := patternFallback(content, chunkID, aggressive); len(reqs) > 0 {
		return reqs
	}
	return []Requirement{summaryFallback(content, chunkID)}
}

// errorSentinel builds the single record returned when a chunk cannot be
// processed at all. It flags the chunk for human review and carries the
// failure message plus a content preview.
func errorSentinel(chunk segmenter.Chunk, err error) Requirement {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	preview := chunk.Content
	if len(preview) > errorPreviewLength {
		preview = preview[:errorPreviewLength] + "..."
	}

	req := Requirement{
		ID:       chunk.ID + "_ERROR001",
		Text:     fmt.Sprintf("EXTRACTION ERROR - Manual review required: %s. Content preview: %s", msg, preview),
		Category: "error",
		Priority: "high",
		Keywords: []string{"manual_review", "extraction_error", "system_failure"},
		Error:    msg,
	}
	finalize(&req, chunk.ID, MethodError, 1)
	return req
}
