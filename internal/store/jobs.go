package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/plateful/ladle/internal/errors"
)

const importJobColumns = `id, user_id, source_kind, content_ref, status, recipe_id,
	error_message, confidence, metadata_snapshot, created_at, updated_at`

func scanImportJob(row pgx.Row) (*ImportJob, error) {
	var j ImportJob
	err := row.Scan(&j.ID, &j.UserID, &j.SourceKind, &j.ContentRef, &j.Status,
		&j.RecipeID, &j.ErrorMessage, &j.Confidence, &j.MetadataSnapshot,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateImportJob inserts a new pending job row.
func (s *Store) CreateImportJob(ctx context.Context, id, userID uuid.UUID, sourceKind, contentRef string) (*ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO import_jobs (id, user_id, source_kind, content_ref, status)
		 VALUES ($1, $2, $3, $4, 'pending')
		 RETURNING `+importJobColumns,
		id, userID, sourceKind, contentRef)

	job, err := scanImportJob(row)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to create import job", "JOB_CREATE_FAILED", err)
	}
	return job, nil
}

// GetImportJob fetches one job scoped to its owner.
func (s *Store) GetImportJob(ctx context.Context, id, userID uuid.UUID) (*ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+importJobColumns+` FROM import_jobs WHERE id = $1 AND user_id = $2`,
		id, userID)

	job, err := scanImportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("import job not found", "JOB_NOT_FOUND", "Check the job identifier.")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to fetch import job", "JOB_FETCH_FAILED", err)
	}
	return job, nil
}

// GetImportJobByID fetches a job without an ownership filter, for the worker.
func (s *Store) GetImportJobByID(ctx context.Context, id uuid.UUID) (*ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+importJobColumns+` FROM import_jobs WHERE id = $1`, id)

	job, err := scanImportJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("import job not found", "JOB_NOT_FOUND", "")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to fetch import job", "JOB_FETCH_FAILED", err)
	}
	return job, nil
}

// ListImportJobsByUser returns the user's most recent jobs.
func (s *Store) ListImportJobsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+importJobColumns+` FROM import_jobs
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list import jobs", "JOB_LIST_FAILED", err)
	}
	defer rows.Close()

	var jobs []*ImportJob
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan import job", "JOB_LIST_FAILED", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkJobProcessing moves a pending job to processing. Returns false when the
// job is not pending anymore, which makes redelivered tasks a no-op.
func (s *Store) MarkJobProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs SET status = 'processing', updated_at = now()
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, apperrors.NewPersistenceError("failed to mark job processing", "JOB_UPDATE_FAILED", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteJob writes the terminal completed state in a single UPDATE. The
// status predicate guards the terminal-once invariant: a job already
// completed or failed is never rewritten.
func (s *Store) CompleteJob(ctx context.Context, id, recipeID uuid.UUID, confidence float64, snapshot any) error {
	var snapshotJSON []byte
	if snapshot != nil {
		var err error
		snapshotJSON, err = json.Marshal(snapshot)
		if err != nil {
			snapshotJSON = nil
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs
		 SET status = 'completed', recipe_id = $2, confidence = $3,
		     metadata_snapshot = $4, error_message = NULL, updated_at = now()
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id, recipeID, confidence, snapshotJSON)
	if err != nil {
		return apperrors.NewPersistenceError("failed to complete job", "JOB_UPDATE_FAILED", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s already in a terminal state", id)
	}
	return nil
}

// FailJob writes the terminal failed state, with the same terminal-once
// guard as CompleteJob. Confidence is recorded when the extraction got far
// enough to produce one.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errorMessage string, confidence *float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs
		 SET status = 'failed', error_message = $2, confidence = $3, updated_at = now()
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id, errorMessage, confidence)
	if err != nil {
		return apperrors.NewPersistenceError("failed to fail job", "JOB_UPDATE_FAILED", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s already in a terminal state", id)
	}
	return nil
}

// SweepStaleJobs fails processing jobs whose last update is older than the
// timeout. Covers worker crashes that left jobs stuck mid-flight.
func (s *Store) SweepStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs
		 SET status = 'failed', error_message = 'import timed out', updated_at = now()
		 WHERE status = 'processing' AND updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to sweep stale jobs", "JOB_SWEEP_FAILED", err)
	}
	return tag.RowsAffected(), nil
}
