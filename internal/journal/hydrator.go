// ABOUTME: Background preview hydration reading entry bodies with bounded concurrency.
// ABOUTME: Results commit in one batch by id; entries changed or removed meanwhile are left alone.
package journal

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/freewrite/internal/models"
	"github.com/2389-research/freewrite/internal/storage"
)

type previewJob struct {
	id       uuid.UUID
	filename string
	rev      uint64
}

// startHydrationLocked snapshots the current entries and hydrates them in a goroutine.
func (ix *Index) startHydrationLocked() {
	if len(ix.entries) == 0 {
		return
	}
	jobs := make([]previewJob, len(ix.entries))
	for i, e := range ix.entries {
		jobs[i] = previewJob{id: e.ID, filename: e.Filename(), rev: ix.revs[e.ID]}
	}

	if ix.pending == 0 {
		ix.idle = make(chan struct{})
	}
	ix.pending++
	go ix.hydrate(jobs)
}

func (ix *Index) hydrate(jobs []previewJob) {
	previews := make([]string, len(jobs))

	var g errgroup.Group
	g.SetLimit(ix.workers)
	for i, job := range jobs {
		g.Go(func() error {
			previews[i] = ix.readPreview(job.filename)
			return nil
		})
	}
	_ = g.Wait()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	defer ix.passDoneLocked()

	committed := 0
	for i, job := range jobs {
		if ix.revs[job.id] != job.rev {
			continue
		}
		idx := ix.indexOfLocked(job.id)
		if idx < 0 {
			continue
		}
		ix.entries[idx].PreviewText = previews[i]
		committed++
	}
	ix.logger.Debug("hydrated previews", "jobs", len(jobs), "committed", committed)
}

func (ix *Index) passDoneLocked() {
	ix.pending--
	if ix.pending == 0 {
		close(ix.idle)
	}
}

func (ix *Index) readPreview(name string) string {
	body, err := ix.store.ReadBody(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PreviewMissing
		}
		ix.logger.Warn("cannot read entry for preview", "name", name, "err", err)
		return models.PreviewError
	}
	return models.Preview(body)
}

// WaitForPreviews blocks until every hydration pass running at the time of
// the call, and any started before they finish, has committed, or ctx is done.
func (ix *Index) WaitForPreviews(ctx context.Context) error {
	ix.mu.Lock()
	if ix.pending == 0 {
		ix.mu.Unlock()
		return nil
	}
	idle := ix.idle
	ix.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
