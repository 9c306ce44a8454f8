package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/compligest/internal/parser"
	"github.com/dgallion1/compligest/internal/pipeline"
	"github.com/dgallion1/compligest/internal/segmenter"
)

// handleAnalyze accepts a regulatory document (form field "regulatory")
// and an optional bank policy (form field "policy") and queues an
// analysis job.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size: two documents plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*2+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	regData, regName, err := s.readUpload(r, "regulatory")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var policyData []byte
	var policyName string
	if _, ok := r.MultipartForm.File["policy"]; ok {
		policyData, policyName, err = s.readUpload(r, "policy")
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(regName, policyName, docTypeFromForm(r))
	job.SetFileData(regData)
	if len(policyData) > 0 {
		job.SetPolicyData(policyData)
	}
	if err := applyChunkOverrides(r, job); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/analyze/%s/status", job.ID),
	})
}

// handleBatchAnalyze queues one job per uploaded regulatory document
// (form field "files"). Files that cannot be accepted are reported
// per-entry without failing the batch.
func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	docType := docTypeFromForm(r)

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		data, err := readFileHeader(fh, s.cfg.MaxUploadBytes)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job := pipeline.NewJob(filename, "", docType)
		job.SetFileData(data)

		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   job.Status,
			"poll_url": fmt.Sprintf("/api/analyze/%s/status", job.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleAnalyzeReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	report := job.Report()
	if report == nil {
		snap := job.Snapshot()
		jsonError(w, fmt.Sprintf("report not ready (status %s)", snap.Status), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// readUpload reads one named upload, enforcing extension and size limits.
func (s *Server) readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%s file is required: %w", field, err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return nil, "", fmt.Errorf("unsupported file type for %s: %s", field, filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s file", field)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, "", fmt.Errorf("%s file exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)
	}
	return data, filename, nil
}

func readFileHeader(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil || int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file too large or read error")
	}
	return data, nil
}

// applyChunkOverrides reads the optional chunk_size and chunk_overlap form
// fields onto the job. Absent fields leave the service defaults in place.
func applyChunkOverrides(r *http.Request, job *pipeline.Job) error {
	size, err := formInt(r, "chunk_size")
	if err != nil {
		return err
	}
	overlap, err := formInt(r, "chunk_overlap")
	if err != nil {
		return err
	}
	if size == 0 && overlap == 0 {
		return nil
	}
	if size <= 0 {
		return fmt.Errorf("chunk_overlap requires chunk_size")
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("chunk_overlap must be non-negative and smaller than chunk_size")
	}
	job.ChunkSize = size
	job.ChunkOverlap = overlap
	return nil
}

func formInt(r *http.Request, field string) (int, error) {
	v := r.FormValue(field)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", field, v)
	}
	return n, nil
}

func docTypeFromForm(r *http.Request) segmenter.DocType {
	if r.FormValue("doc_type") == string(segmenter.DocTypePolicy) {
		return segmenter.DocTypePolicy
	}
	return segmenter.DocTypeRegulatory
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
