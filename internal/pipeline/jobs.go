package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/compligest/internal/compliance"
	"github.com/dgallion1/compligest/internal/extract"
	"github.com/dgallion1/compligest/internal/segmenter"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusSegmenting JobStatus = "segmenting"
	StatusExtracting JobStatus = "extracting"
	StatusChecking   JobStatus = "checking"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Job tracks the state of a single document analysis.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Filename       string `json:"filename"`
	PolicyFilename string `json:"policy_filename,omitempty"`

	DocType segmenter.DocType `json:"doc_type"`

	// Per-job segmentation overrides. Zero means the service defaults.
	ChunkSize    int `json:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData   []byte
	policyData []byte
	report     *Report
	errors     []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks           int      `json:"total_chunks"`
	ChunksProcessed       int      `json:"chunks_processed"`
	RequirementsExtracted int      `json:"requirements_extracted"`
	DuplicatesRemoved     int      `json:"duplicates_removed"`
	ComplianceChecked     int      `json:"compliance_checked"`
	Errors                []string `json:"errors"`
}

// Report is the final output of a completed analysis.
type Report struct {
	JobID        string                `json:"job_id"`
	Filename     string                `json:"filename"`
	DocType      segmenter.DocType     `json:"doc_type"`
	TotalChunks  int                   `json:"total_chunks"`
	Requirements []extract.Requirement `json:"requirements"`
	Compliance   *compliance.Summary   `json:"compliance,omitempty"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(filename, policyFilename string, docType segmenter.DocType) *Job {
	now := time.Now()
	return &Job{
		ID:             uuid.NewString(),
		Status:         StatusQueued,
		Phase:          "queued",
		Filename:       filename,
		PolicyFilename: policyFilename,
		DocType:        docType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrChunksProcessed atomically increments chunks processed.
func (j *Job) IncrChunksProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksProcessed++
	j.UpdatedAt = time.Now()
}

// AddRequirements records extracted requirement counts.
func (j *Job) AddRequirements(extracted, duplicatesRemoved int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RequirementsExtracted += extracted
	j.Progress.DuplicatesRemoved += duplicatesRemoved
	j.UpdatedAt = time.Now()
}

// SetComplianceChecked records the number of requirements assessed.
func (j *Job) SetComplianceChecked(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ComplianceChecked = n
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw regulatory document bytes.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw regulatory document bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetPolicyData sets the raw bank policy bytes.
func (j *Job) SetPolicyData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.policyData = data
}

// PolicyData returns the raw bank policy bytes.
func (j *Job) PolicyData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.policyData
}

// SetReport attaches the final report.
func (j *Job) SetReport(r *Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = r
	j.UpdatedAt = time.Now()
}

// Report returns the final report, or nil if the job has not produced one.
func (j *Job) Report() *Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID             string            `json:"job_id"`
	Status         JobStatus         `json:"status"`
	Phase          string            `json:"phase"`
	Filename       string            `json:"filename"`
	PolicyFilename string            `json:"policy_filename,omitempty"`
	DocType        segmenter.DocType `json:"doc_type"`
	Progress       Progress          `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:             j.ID,
		Status:         j.Status,
		Phase:          j.Phase,
		Filename:       j.Filename,
		PolicyFilename: j.PolicyFilename,
		DocType:        j.DocType,
		Progress: Progress{
			TotalChunks:           j.Progress.TotalChunks,
			ChunksProcessed:       j.Progress.ChunksProcessed,
			RequirementsExtracted: j.Progress.RequirementsExtracted,
			DuplicatesRemoved:     j.Progress.DuplicatesRemoved,
			ComplianceChecked:     j.Progress.ComplianceChecked,
			Errors:                errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
