// Package worker drives the verification pipeline: it polls the record
// store for pending documents and pushes each one through the orchestrator.
package worker

import (
	"context"
	"errors"
	"time"

	"precheck/internal/logging"
	"precheck/internal/repository"
	"precheck/internal/service"
)

const (
	defaultInterval = 10 * time.Second
	defaultBatch    = 10
)

// Worker periodically picks up pending documents and verifies them.
type Worker struct {
	svc      service.DocumentService
	repo     repository.DocumentRepository
	interval time.Duration
	batch    int
	log      logging.Logger
}

// New constructs a Worker. Zero interval and batch fall back to defaults.
func New(svc service.DocumentService, repo repository.DocumentRepository, interval time.Duration, batch int, log logging.Logger) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batch <= 0 {
		batch = defaultBatch
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Worker{
		svc:      svc,
		repo:     repo,
		interval: interval,
		batch:    batch,
		log:      log,
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (w *Worker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		w.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// tick processes one batch of pending documents sequentially. Documents that
// exhaust their retry budget are left in a terminal ERROR state by the
// orchestrator and will not be picked up again.
func (w *Worker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ids, err := w.repo.PendingIDs(ctx, w.batch)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error(ctx, "failed to list pending documents", "error", err)
		}
		return
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.svc.VerifyWithRetry(ctx, id); err != nil {
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, service.ErrVerificationFailed):
				w.log.Warn(ctx, "document failed verification", "document_id", id)
			case errors.Is(err, service.ErrNotFound):
				// Deleted between the poll and the verify attempt.
			default:
				w.log.Error(ctx, "verification error", "document_id", id, "error", err)
			}
		}
	}
}
