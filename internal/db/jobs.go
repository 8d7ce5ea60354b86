package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/ui-builder/internal/job"
)

// JobSummary is a row of the jobs listing.
type JobSummary struct {
	ID          uuid.UUID  `json:"id"`
	Prompt      string     `json:"prompt"`
	Status      string     `json:"status"`
	FailedStage string     `json:"failed_stage,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SaveJob upserts a job snapshot with its stages and artifacts. Snapshots
// older than the stored version are ignored.
func (db *DB) SaveJob(ctx context.Context, j *job.Job) error {
	id, err := uuid.Parse(j.ID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", j.ID, err)
	}
	optionsJSON, err := json.Marshal(j.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO jobs (id, prompt, options, status, current_stage, failed_stage, failure_kind,
		                   error_message, version, created_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		     status = EXCLUDED.status,
		     current_stage = EXCLUDED.current_stage,
		     failed_stage = EXCLUDED.failed_stage,
		     failure_kind = EXCLUDED.failure_kind,
		     error_message = EXCLUDED.error_message,
		     version = EXCLUDED.version,
		     updated_at = EXCLUDED.updated_at,
		     completed_at = EXCLUDED.completed_at
		 WHERE jobs.version < EXCLUDED.version`,
		id, j.Prompt, optionsJSON, string(j.Status), nullString(string(j.CurrentStage)),
		nullString(string(j.FailedStage)), nullString(j.FailureKind), nullString(j.Error),
		j.Version, j.CreatedAt, j.UpdatedAt, j.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, st := range j.Stages {
		batch.Queue(
			`INSERT INTO job_stages (job_id, stage, position, status, attempts, error_kind, error_message,
			                         warning, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (job_id, stage) DO UPDATE SET
			     status = $4, attempts = $5, error_kind = $6, error_message = $7,
			     warning = $8, started_at = $9, finished_at = $10`,
			id, string(st.Name), i, string(st.Status), st.Attempts, nullString(st.ErrorKind),
			nullString(st.Error), nullString(st.Warning), st.StartedAt, st.FinishedAt,
		)
	}
	for stage, content := range j.Artifacts {
		batch.Queue(
			`INSERT INTO job_artifacts (job_id, stage, content)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (job_id, stage) DO UPDATE SET content = $3, created_at = NOW()`,
			id, string(stage), []byte(content),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save job stages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit job: %w", err)
	}
	return nil
}

// GetJob loads a job snapshot. It returns nil, nil when the job does not exist.
func (db *DB) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, nil
	}

	j := &job.Job{
		ID:          jobID,
		Artifacts:   map[job.StageName]json.RawMessage{},
		RetryCounts: map[job.StageName]int{},
	}
	var optionsJSON []byte
	var status string
	var currentStage, failedStage, failureKind, errMsg *string
	err = db.pool.QueryRow(ctx,
		`SELECT prompt, options, status, current_stage, failed_stage, failure_kind, error_message,
		        version, created_at, updated_at, completed_at
		 FROM jobs WHERE id = $1`,
		id,
	).Scan(&j.Prompt, &optionsJSON, &status, &currentStage, &failedStage, &failureKind, &errMsg,
		&j.Version, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if err := json.Unmarshal(optionsJSON, &j.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	j.Status = job.Status(status)
	j.CurrentStage = job.StageName(derefString(currentStage))
	j.FailedStage = job.StageName(derefString(failedStage))
	j.FailureKind = derefString(failureKind)
	j.Error = derefString(errMsg)

	rows, err := db.pool.Query(ctx,
		`SELECT stage, status, attempts, error_kind, error_message, warning, started_at, finished_at
		 FROM job_stages WHERE job_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st job.StageState
		var name, stStatus string
		var errKind, stErr, warning *string
		if err := rows.Scan(&name, &stStatus, &st.Attempts, &errKind, &stErr, &warning, &st.StartedAt, &st.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job stage: %w", err)
		}
		st.Name = job.StageName(name)
		st.Status = job.StageStatus(stStatus)
		st.ErrorKind = derefString(errKind)
		st.Error = derefString(stErr)
		st.Warning = derefString(warning)
		if st.Attempts > 1 {
			j.RetryCounts[st.Name] = st.Attempts - 1
		}
		j.Stages = append(j.Stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job stages: %w", err)
	}

	artifactRows, err := db.pool.Query(ctx,
		`SELECT stage, content FROM job_artifacts WHERE job_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job artifacts: %w", err)
	}
	defer artifactRows.Close()
	for artifactRows.Next() {
		var stage string
		var content []byte
		if err := artifactRows.Scan(&stage, &content); err != nil {
			return nil, fmt.Errorf("failed to scan job artifact: %w", err)
		}
		j.Artifacts[job.StageName(stage)] = json.RawMessage(content)
	}
	if err := artifactRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job artifacts: %w", err)
	}

	return j, nil
}

// ListJobs returns the most recent jobs.
func (db *DB) ListJobs(ctx context.Context, limit int) ([]JobSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, prompt, status, failed_stage, created_at, completed_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobSummary
	for rows.Next() {
		var s JobSummary
		var failedStage *string
		if err := rows.Scan(&s.ID, &s.Prompt, &s.Status, &failedStage, &s.CreatedAt, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		s.FailedStage = derefString(failedStage)
		jobs = append(jobs, s)
	}
	return jobs, rows.Err()
}
