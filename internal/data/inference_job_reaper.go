package data

import (
	"context"
	"fmt"
	"time"

	"github.com/target/inferq/internal/data/pgxutil"
	"github.com/target/inferq/internal/domain/model"
)

// Advisory lock namespace for reaper operations.
var (
	advisoryLockReaperFailQueued = pgxutil.AdvisoryKey{Major: 1000, Minor: 1}
	advisoryLockReaperDelete     = pgxutil.AdvisoryKey{Major: 1000, Minor: 2}
)

const staleQueuedReason = "job timed out in queued status"

// FailStaleQueuedJobs marks queued jobs older than maxAge as failed.
// Processes up to batchSize jobs per call. Returns 0 when another reaper holds the lock.
func (r *InferenceJobRepo) FailStaleQueuedJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	now := r.timeProvider.Now().UTC()
	cutoff := now.Add(-maxAge)

	n, err := pgxutil.LockedExec(ctx, r.DB, advisoryLockReaperFailQueued, `
		UPDATE inference_jobs
		SET status = 'failed',
		    last_error = $4,
		    completed_at = $1,
		    updated_at = $1
		WHERE id IN (
			SELECT id FROM inference_jobs
			WHERE status = 'queued'
			  AND created_at < $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
	`, now, cutoff, batchSize, staleQueuedReason)
	if err != nil {
		return 0, fmt.Errorf("fail stale queued jobs: %w", err)
	}
	return n, nil
}

// DeleteOldJobs deletes terminal jobs with the given status older than MaxAge.
// Processes up to BatchSize jobs per call. Messages are left in place.
func (r *InferenceJobRepo) DeleteOldJobs(ctx context.Context, params model.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("only terminal jobs can be deleted, got status %q", params.Status)
	}
	if params.BatchSize <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", params.BatchSize)
	}
	cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()

	n, err := pgxutil.LockedExec(ctx, r.DB, advisoryLockReaperDelete, `
		DELETE FROM inference_jobs
		WHERE id IN (
			SELECT id FROM inference_jobs
			WHERE status = $1
			  AND COALESCE(completed_at, updated_at) < $2
			ORDER BY COALESCE(completed_at, updated_at)
			LIMIT $3
		)
	`, string(params.Status), cutoff, params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	return n, nil
}
