package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/pathstore"
	"github.com/dgallion1/docsplit/internal/store"
)

// Orchestrator manages the document split pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	store *store.BoltStore
	ps    *pathstore.Client
	stats *SplitStats
	log   *slog.Logger
	cfg   config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. st and ps may be nil to skip
// persistence or the downstream push.
func NewOrchestrator(cfg config.Config, st *store.BoltStore, ps *pathstore.Client, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		store: st,
		ps:    ps,
		stats: NewSplitStats(time.Hour),
		log:   log,
		cfg:   cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.ps, o.stats, o.log, o.cfg.MaxConcurrentPush)
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
	job.Options = job.Options.WithDefaults(o.cfg)
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Split loads and splits a document synchronously, persisting the result
// when persist is set and a store is configured.
func (o *Orchestrator) Split(filename string, data []byte, opts SplitOptions, persist bool) (*Result, error) {
	docID := uuid.NewString()
	log := o.log.With("doc_id", docID, "filename", filename)

	res, err := SplitDocument(docID, filename, data, opts.WithDefaults(o.cfg), log)
	if err != nil {
		return nil, err
	}
	o.stats.Record(res.Duration, len(res.Nodes))

	if persist && o.store != nil {
		if err := o.store.SaveDocument(res.Document(time.Now()), res.Nodes); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrPersist, docID, err)
		}
	}
	return res, nil
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the rolling split latency tracker.
func (o *Orchestrator) Stats() *SplitStats {
	return o.stats
}

// Store returns the node store, or nil when persistence is disabled.
func (o *Orchestrator) Store() *store.BoltStore {
	return o.store
}

// PathstoreClient returns the pathstore client for direct use by API handlers.
func (o *Orchestrator) PathstoreClient() *pathstore.Client {
	return o.ps
}
