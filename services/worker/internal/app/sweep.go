package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"studylab/pkg/domain"
	"studylab/pkg/store"
)

const staleProcessingMessage = "processing timed out"

// SweepStuckDocuments fails documents that have sat in processing
// longer than maxAge. Workers can die mid-job after the queue gives up
// redelivering; without the sweep those documents would stay in
// processing forever and clients would poll them indefinitely.
func (a *App) SweepStuckDocuments(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	ids, err := a.store.ListStuckProcessing(cutoff)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, id := range ids {
		if err := a.store.SetDocumentStatus(id, domain.StatusFailed, staleProcessingMessage); err != nil {
			// A worker may finish the document between listing and
			// failing it. That race resolves in the document's favor.
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			slog.Warn("sweep could not fail stuck document", "documentId", id, "err", err)
			continue
		}
		failed++
		slog.Info("stuck document failed by sweep", "documentId", id)
	}
	return failed, nil
}

// RunSweeper periodically sweeps stuck documents until ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.SweepStuckDocuments(maxAge); err != nil {
				slog.Warn("sweep failed", "err", err)
			}
		}
	}
}
