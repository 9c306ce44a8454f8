package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/compligest/internal/compliance"
	"github.com/dgallion1/compligest/internal/extract"
	"github.com/dgallion1/compligest/internal/segmenter"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (g *stubGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	g.calls++
	return g.response, g.err
}

const extractionResponse = `{"requirements": [{"requirement": "Banks must maintain a minimum capital adequacy ratio of 8 percent at all times."}]}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(exGen, chkGen extract.Generator) *Worker {
	log := discardLogger()
	ex := extract.New(exGen, extract.DefaultConfig(), log)
	var checker *compliance.Checker
	if chkGen != nil {
		checker = compliance.New(chkGen, log)
	}
	seg := segmenter.New(segmenter.DefaultConfig(), log)
	return NewWorker(ex, checker, seg, log)
}

func TestWorkerProcessCompletes(t *testing.T) {
	exGen := &stubGenerator{response: extractionResponse}
	w := newTestWorker(exGen, nil)

	job := NewJob("regulation.txt", "", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte("Banks must maintain a minimum capital adequacy ratio of 8 percent at all times."))

	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected status %s, got %s (errors: %v)", StatusCompleted, job.Status, job.Progress.Errors)
	}
	if len(job.ContentHash) != 64 {
		t.Errorf("expected sha-256 content hash, got %q", job.ContentHash)
	}
	if job.Progress.TotalChunks != 1 || job.Progress.ChunksProcessed != 1 {
		t.Errorf("unexpected chunk progress: %+v", job.Progress)
	}
	if job.Progress.RequirementsExtracted != 1 {
		t.Errorf("expected 1 requirement extracted, got %d", job.Progress.RequirementsExtracted)
	}

	report := job.Report()
	if report == nil {
		t.Fatal("expected report on completed job")
	}
	if report.JobID != job.ID || len(report.Requirements) != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Compliance != nil {
		t.Error("expected no compliance summary without a policy document")
	}
}

func TestWorkerProcessWithPolicy(t *testing.T) {
	exGen := &stubGenerator{response: extractionResponse}
	chkGen := &stubGenerator{response: "Classification: satisfactory\nReasoning: The policy covers this adequately.\nRecommendations: Document the review cycle."}
	w := newTestWorker(exGen, chkGen)

	job := NewJob("regulation.txt", "policy.txt", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte("Banks must maintain a minimum capital adequacy ratio of 8 percent at all times."))
	job.SetPolicyData([]byte("Our institution maintains capital ratios above 8 percent, reviewed quarterly."))

	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected status %s, got %s (errors: %v)", StatusCompleted, job.Status, job.Progress.Errors)
	}
	report := job.Report()
	if report == nil || report.Compliance == nil {
		t.Fatal("expected compliance summary on report")
	}
	if report.Compliance.TotalChecked != 1 {
		t.Errorf("expected 1 requirement checked, got %d", report.Compliance.TotalChecked)
	}
	if report.Compliance.ByStatus[compliance.StatusSatisfactory] != 1 {
		t.Errorf("unexpected status counts: %v", report.Compliance.ByStatus)
	}
	if job.Progress.ComplianceChecked != 1 {
		t.Errorf("expected compliance progress recorded, got %d", job.Progress.ComplianceChecked)
	}
	if chkGen.calls != 1 {
		t.Errorf("expected 1 compliance generation call, got %d", chkGen.calls)
	}
}

func TestWorkerProcessUnsupportedFile(t *testing.T) {
	exGen := &stubGenerator{response: extractionResponse}
	w := newTestWorker(exGen, nil)

	job := NewJob("scan.xyz", "", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte("irrelevant"))

	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %s, got %s", StatusFailed, job.Status)
	}
	if len(job.Progress.Errors) == 0 || !strings.HasPrefix(job.Progress.Errors[0], "parse:") {
		t.Errorf("expected parse error recorded, got %v", job.Progress.Errors)
	}
	if job.Report() != nil {
		t.Error("expected no report on failed job")
	}
	if exGen.calls != 0 {
		t.Errorf("expected no extraction calls, got %d", exGen.calls)
	}
}

func TestWorkerProcessPartialOnExtractionFailure(t *testing.T) {
	exGen := &stubGenerator{err: errors.New("backend unavailable")}
	w := newTestWorker(exGen, nil)

	// No obligation language anywhere, so the pattern fallback cannot
	// recover and the chunk degrades to an error sentinel.
	job := NewJob("regulation.txt", "", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte("The committee met on Tuesday to discuss the agenda for the annual planning cycle."))

	w.Process(context.Background(), job)

	if job.Status != StatusPartial {
		t.Fatalf("expected status %s, got %s", StatusPartial, job.Status)
	}
	if len(job.Progress.Errors) == 0 {
		t.Error("expected chunk error recorded")
	}
	report := job.Report()
	if report == nil {
		t.Fatal("expected report even on partial job")
	}
	if len(report.Requirements) != 1 || report.Requirements[0].ExtractionMethod != extract.MethodError {
		t.Errorf("expected single error sentinel in report, got %+v", report.Requirements)
	}
}

func TestWorkerProcessDeduplicatesAcrossChunks(t *testing.T) {
	exGen := &stubGenerator{response: extractionResponse}
	w := newTestWorker(exGen, nil)

	content := "Section 1 Banks must maintain adequate capital reserves.\nSection 2 Banks must also report liquidity metrics."
	job := NewJob("regulation.txt", "", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte(content))

	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected status %s, got %s (errors: %v)", StatusCompleted, job.Status, job.Progress.Errors)
	}
	if job.Progress.TotalChunks != 2 || job.Progress.ChunksProcessed != 2 {
		t.Errorf("unexpected chunk progress: %+v", job.Progress)
	}
	if job.Progress.RequirementsExtracted != 1 || job.Progress.DuplicatesRemoved != 1 {
		t.Errorf("expected duplicate collapsed: %+v", job.Progress)
	}
	if report := job.Report(); report == nil || len(report.Requirements) != 1 {
		t.Errorf("expected deduplicated report")
	}
}

func TestWorkerProcessChunkSizeOverride(t *testing.T) {
	exGen := &stubGenerator{response: extractionResponse}
	w := newTestWorker(exGen, nil)

	content := strings.Repeat("Banks must maintain capital reserves. ", 20)
	job := NewJob("regulation.txt", "", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte(content))
	job.ChunkSize = 200
	job.ChunkOverlap = 20

	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected status %s, got %s (errors: %v)", StatusCompleted, job.Status, job.Progress.Errors)
	}
	if job.Progress.TotalChunks < 2 {
		t.Errorf("expected override to produce multiple chunks, got %d", job.Progress.TotalChunks)
	}
}

func TestWorkerProcessCancelledContext(t *testing.T) {
	exGen := &stubGenerator{response: extractionResponse}
	w := newTestWorker(exGen, nil)

	job := NewJob("regulation.txt", "", segmenter.DocTypeRegulatory)
	job.SetFileData([]byte("Banks must maintain a minimum capital adequacy ratio of 8 percent at all times."))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Process(ctx, job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %s on cancelled context, got %s", StatusFailed, job.Status)
	}
	if exGen.calls != 0 {
		t.Errorf("expected no extraction calls after cancellation, got %d", exGen.calls)
	}
}
