package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/morphcv/cvgen/internal/types"
)

const jobColumns = `id, uuid, user_id, title, template_name, user_tier,
	profile_json, job_description, status, mode,
	COALESCE(task_id, ''), COALESCE(error_message, ''), COALESCE(latex_source, ''),
	COALESCE(pdf_path, ''), COALESCE(preview_path, ''), COALESCE(pdf_size, 0),
	COALESCE(elapsed_seconds, 0), created_at, updated_at, last_downloaded`

func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	err := row.Scan(&j.ID, &j.UUID, &j.UserID, &j.Title, &j.TemplateName, &j.UserTier,
		&j.ProfileJSON, &j.JobDescription, &j.Status, &j.Mode,
		&j.TaskID, &j.ErrorMessage, &j.LatexSource,
		&j.PDFPath, &j.PreviewPath, &j.PDFSize,
		&j.ElapsedSecs, &j.CreatedAt, &j.UpdatedAt, &j.LastDownloaded)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a new job record in Pending status and returns it.
func (db *DB) CreateJob(ctx context.Context, userID int64, title, templateName string, tier types.UserTier, profileJSON, jobDescription string) (*types.Job, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO jobs (user_id, title, template_name, user_tier, profile_json, job_description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+jobColumns,
		userID, title, templateName, tier, profileJSON, jobDescription,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by its internal id. Returns nil when not found.
func (db *DB) GetJob(ctx context.Context, id int64) (*types.Job, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return job, nil
}

// GetJobByUUID retrieves a job by its public UUID, optionally scoped to an
// owner. Returns nil when not found.
func (db *DB) GetJobByUUID(ctx context.Context, jobUUID uuid.UUID, userID int64) (*types.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE uuid = $1`
	args := []any{jobUUID}
	if userID != 0 {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	job, err := scanJob(db.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobUUID, err)
	}
	return job, nil
}

// ClaimJob transitions a job from an expected prior status to Processing and
// stamps the queue task handle. The conditional WHERE guards against lost
// updates; false means the job was not in the expected status.
func (db *DB) ClaimJob(ctx context.Context, id int64, expected types.JobStatus, taskID string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, task_id = $2, error_message = NULL, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		types.StatusProcessing, taskID, id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim job %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// JobUpdate carries the optional fields of a status update. Nil fields are
// left untouched so the whole mutation stays a single atomic statement.
type JobUpdate struct {
	Status       types.JobStatus
	ErrorMessage *string
	LatexSource  *string
	PDFPath      *string
	PreviewPath  *string
	PDFSize      *int64
	ElapsedSecs  *float64
}

// UpdateJobStatus applies a status transition plus any accompanying result
// fields in one statement.
func (db *DB) UpdateJobStatus(ctx context.Context, id int64, upd JobUpdate) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs SET
			status          = $1,
			error_message   = COALESCE($2, error_message),
			latex_source    = COALESCE($3, latex_source),
			pdf_path        = COALESCE($4, pdf_path),
			preview_path    = COALESCE($5, preview_path),
			pdf_size        = COALESCE($6, pdf_size),
			elapsed_seconds = COALESCE($7, elapsed_seconds),
			updated_at      = NOW()
		 WHERE id = $8`,
		upd.Status, upd.ErrorMessage, upd.LatexSource, upd.PDFPath,
		upd.PreviewPath, upd.PDFSize, upd.ElapsedSecs, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %d", id)
	}
	return nil
}

// SetTaskID stamps the queue task handle on a job at submission time so
// status lookups can cross-reference the dispatcher before a worker claims
// the job.
func (db *DB) SetTaskID(ctx context.Context, id int64, taskID string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE jobs SET task_id = $1, updated_at = NOW() WHERE id = $2`, taskID, id)
	if err != nil {
		return fmt.Errorf("failed to set task id on job %d: %w", id, err)
	}
	return nil
}

// ResetForEdit puts a terminal job back into Pending with new edit
// instructions so the same record can run another processing cycle.
func (db *DB) ResetForEdit(ctx context.Context, id int64, instructions string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, mode = 'edit', job_description = $2, error_message = NULL, updated_at = NOW()
		 WHERE id = $3`,
		types.StatusPending, instructions, id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset job %d for edit: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %d", id)
	}
	return nil
}

// MarkDownloaded bumps the last_downloaded timestamp.
func (db *DB) MarkDownloaded(ctx context.Context, id int64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE jobs SET last_downloaded = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark job %d downloaded: %w", id, err)
	}
	return nil
}

// DeleteJob removes a job record. Download tokens cascade.
func (db *DB) DeleteJob(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %d", id)
	}
	return nil
}

// ListPendingJobs returns jobs still waiting for a worker, oldest first.
// A restarted worker uses this to requeue work that was pending when the
// previous process exited.
func (db *DB) ListPendingJobs(ctx context.Context, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		types.StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ListJobUUIDs returns the UUIDs of all job records. Used by the orphan scan.
func (db *DB) ListJobUUIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx, `SELECT uuid FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list job uuids: %w", err)
	}
	defer rows.Close()

	var uuids []uuid.UUID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan job uuid: %w", err)
		}
		uuids = append(uuids, u)
	}
	return uuids, rows.Err()
}

// ListUserJobs retrieves a user's jobs, newest first.
func (db *DB) ListUserJobs(ctx context.Context, userID int64, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
