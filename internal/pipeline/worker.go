package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/compligest/internal/compliance"
	"github.com/dgallion1/compligest/internal/extract"
	"github.com/dgallion1/compligest/internal/parser"
	"github.com/dgallion1/compligest/internal/segmenter"
)

// Worker processes a single analysis job.
type Worker struct {
	extractor *extract.Extractor
	checker   *compliance.Checker
	seg       *segmenter.Segmenter
	log       *slog.Logger
}

func NewWorker(ex *extract.Extractor, checker *compliance.Checker, seg *segmenter.Segmenter, log *slog.Logger) *Worker {
	return &Worker{
		extractor: ex,
		checker:   checker,
		seg:       seg,
		log:       log,
	}
}

// Process runs the full analysis pipeline for a job. Per-chunk extraction
// failures degrade to fallback records; only parse failures or empty input
// fail the job outright.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing document")
	text, err := w.parseFile(job.Filename, job.FileData())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.ContentHash = ContentHashHex([]byte(text))

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting document")
	seg := w.seg
	if job.ChunkSize > 0 {
		seg = segmenter.New(segmenter.Config{
			MaxChunkSize: job.ChunkSize,
			Overlap:      job.ChunkOverlap,
		}, w.log)
	}
	chunks := seg.Chunk(text, job.DocType)
	job.SetTotalChunks(len(chunks))
	log.Info("segmented document", "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "segmenting")
		return
	}

	// Phase 3: Extract requirements chunk by chunk, in document order.
	job.SetStatus(StatusExtracting, "extracting requirements")
	var all []extract.Requirement
	hadErrors := false
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			job.AddError(ctx.Err().Error())
			job.SetStatus(StatusFailed, "extracting")
			return
		}
		reqs := w.extractor.Extract(ctx, chunk)
		job.IncrChunksProcessed()
		for _, r := range reqs {
			if r.ExtractionMethod == extract.MethodError {
				job.AddError(fmt.Sprintf("chunk %s: %s", chunk.ID, r.Error))
				hadErrors = true
			}
		}
		all = append(all, reqs...)
	}

	deduped := extract.Dedupe(all)
	job.AddRequirements(len(deduped), len(all)-len(deduped))
	log.Info("extraction complete", "requirements", len(deduped), "duplicates_removed", len(all)-len(deduped))

	report := &Report{
		JobID:        job.ID,
		Filename:     job.Filename,
		DocType:      job.DocType,
		TotalChunks:  len(chunks),
		Requirements: deduped,
		GeneratedAt:  time.Now(),
	}

	// Phase 4: Compliance check against the bank policy, when provided.
	if policy := job.PolicyData(); len(policy) > 0 && w.checker != nil {
		job.SetStatus(StatusChecking, "checking policy compliance")
		policyText, perr := w.parseFile(job.PolicyFilename, policy)
		if perr != nil {
			log.Error("policy parse failed", "error", perr)
			job.AddError(fmt.Sprintf("policy parse: %s", perr))
			hadErrors = true
		} else {
			summary := w.checker.CheckAll(ctx, policyText, deduped)
			report.Compliance = &summary
			job.SetComplianceChecked(summary.TotalChecked)
		}
	}

	job.SetReport(report)
	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

func (w *Worker) parseFile(filename string, data []byte) (string, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return "", err
	}
	return p.Parse(bytes.NewReader(data), filename)
}
