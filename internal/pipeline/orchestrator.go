package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/compligest/internal/compliance"
	"github.com/dgallion1/compligest/internal/config"
	"github.com/dgallion1/compligest/internal/extract"
	"github.com/dgallion1/compligest/internal/segmenter"
)

// Orchestrator manages the document analysis pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	extractor *extract.Extractor
	checker   *compliance.Checker
	log       *slog.Logger
	cfg       config.Config
	segCfg    segmenter.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Start must be called before jobs
// are processed.
func NewOrchestrator(cfg config.Config, ex *extract.Extractor, checker *compliance.Checker, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(time.Duration(cfg.JobTTL)),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		extractor: ex,
		checker:   checker,
		log:       log,
		cfg:       cfg,
		segCfg: segmenter.Config{
			MaxChunkSize: cfg.ChunkSize,
			Overlap:      cfg.ChunkOverlap,
		},
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.extractor, o.checker, segmenter.New(o.segCfg, o.log), o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
