package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docsplit/internal/pathstore"
	"github.com/dgallion1/docsplit/internal/store"
)

// Worker processes a single document job.
type Worker struct {
	store     *store.BoltStore
	pathstore *pathstore.Client
	stats     *SplitStats
	log       *slog.Logger

	maxConcurrentPush int
	backoff           func(int) time.Duration
}

func NewWorker(st *store.BoltStore, ps *pathstore.Client, stats *SplitStats, log *slog.Logger, maxPush int) *Worker {
	return &Worker{
		store:             st,
		pathstore:         ps,
		stats:             stats,
		log:               log,
		maxConcurrentPush: maxPush,
		backoff:           Backoff,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)

	// Phase 1+2: Load and split
	job.SetStatus(StatusLoading, "loading")
	data := job.FileData()
	job.SetStatus(StatusSplitting, "splitting")
	res, err := SplitDocument(job.DocID, job.Filename, data, job.Options, log)
	job.releaseFileData()
	if err != nil {
		log.Error("split failed", "error", err)
		job.AddError(fmt.Sprintf("split: %s", err))
		job.SetStatus(StatusFailed, "splitting")
		return
	}
	if w.stats != nil {
		w.stats.Record(res.Duration, len(res.Nodes))
	}
	job.SetSplit(res.Paragraphs, len(res.Nodes), res.ContentHash)
	log.Info("split document", "mode", res.Mode, "paragraphs", res.Paragraphs, "nodes", len(res.Nodes))

	// Phase 3: Persist locally
	if w.store != nil {
		job.SetStatus(StatusStoring, "storing")
		if err := w.store.SaveDocument(res.Document(job.CreatedAt), res.Nodes); err != nil {
			log.Error("store failed", "error", err)
			job.AddError(fmt.Sprintf("store: %s", err))
			job.SetStatus(StatusFailed, "storing")
			return
		}
		job.SetStored(len(res.Nodes))
	}

	// Phase 4: Push to the downstream index
	if w.pathstore == nil || len(res.Nodes) == 0 {
		job.SetStatus(StatusCompleted, "done")
		return
	}
	job.SetStatus(StatusPushing, "pushing")
	push, err := w.pathstore.PushNodes(ctx, job.DocID, res.Nodes, pathstore.PushOptions{
		Source:      "docsplit:" + job.DocID,
		Concurrency: w.maxConcurrentPush,
		MaxRetries:  MaxRetries,
		Backoff:     w.backoff,
		Log:         log,
	})
	job.AddPushed(push.Pushed)
	for _, e := range push.Errors {
		job.AddError(e)
	}
	if err != nil {
		log.Error("push aborted", "error", err)
		job.AddError(err.Error())
	}
	log.Info("push complete", "pushed", push.Pushed, "linked", push.Linked, "errors", len(push.Errors))

	switch {
	case push.Pushed == 0:
		job.SetStatus(StatusFailed, "pushing")
	case err != nil || len(push.Errors) > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}
