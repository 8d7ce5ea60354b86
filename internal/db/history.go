package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/ui-builder/internal/types"
)

const historyColumns = `id, job_id, prompt, tags, category, status, result_summary,
	generation_seconds, created_at, soft_deleted`

// InsertHistory stores a history entry. Entries are immutable once written.
func (db *DB) InsertHistory(ctx context.Context, e *types.HistoryEntry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("invalid history id %q: %w", e.ID, err)
	}
	jobID, err := uuid.Parse(e.JobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", e.JobID, err)
	}
	summaryJSON, err := json.Marshal(e.ResultSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal result summary: %w", err)
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO prompt_history (`+historyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		 ON CONFLICT (id) DO NOTHING`,
		id, jobID, e.Prompt, tags, e.Category, e.Status, summaryJSON, e.GenerationSeconds, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// GetHistory retrieves an entry by ID, including soft-deleted ones.
// It returns nil, nil when the entry does not exist.
func (db *DB) GetHistory(ctx context.Context, entryID string) (*types.HistoryEntry, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return nil, nil
	}
	row := db.pool.QueryRow(ctx, `SELECT `+historyColumns+` FROM prompt_history WHERE id = $1`, id)
	e, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return e, nil
}

// ListHistory retrieves live entries with optional filters, newest first.
func (db *DB) ListHistory(ctx context.Context, filters types.HistoryFilter) ([]types.HistoryEntry, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + historyColumns + ` FROM prompt_history WHERE soft_deleted = FALSE`
	args := []any{}
	argNum := 1

	if filters.Search != "" {
		query += fmt.Sprintf(" AND prompt ILIKE $%d", argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, filters.Category)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	return db.queryHistory(ctx, query, args...)
}

// HistoryCandidates returns live entries sharing at least one tag, newest first.
func (db *DB) HistoryCandidates(ctx context.Context, tags []string, limit int) ([]types.HistoryEntry, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	return db.queryHistory(ctx,
		`SELECT `+historyColumns+` FROM prompt_history
		 WHERE soft_deleted = FALSE AND tags && $1
		 ORDER BY created_at DESC LIMIT $2`,
		tags, limit,
	)
}

// SoftDeleteHistory flags an entry as deleted. It reports whether a live
// entry was found.
func (db *DB) SoftDeleteHistory(ctx context.Context, entryID string) (bool, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return false, nil
	}
	result, err := db.pool.Exec(ctx,
		`UPDATE prompt_history SET soft_deleted = TRUE WHERE id = $1 AND soft_deleted = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete history entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// HistoryStats aggregates live entries created since the given time.
func (db *DB) HistoryStats(ctx context.Context, since time.Time, topTags int) (*types.HistoryStats, error) {
	stats := &types.HistoryStats{}
	var avg *float64
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        AVG(generation_seconds)
		 FROM prompt_history
		 WHERE soft_deleted = FALSE AND created_at >= $1`,
		since,
	).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute history stats: %w", err)
	}
	if avg != nil {
		stats.AvgGenerationSeconds = types.Round2(*avg)
	}
	if stats.Total > 0 {
		stats.SuccessRate = types.Round2(float64(stats.Succeeded) / float64(stats.Total))
	}

	rows, err := db.pool.Query(ctx,
		`SELECT tag, COUNT(*) AS n
		 FROM prompt_history, UNNEST(tags) AS tag
		 WHERE soft_deleted = FALSE AND created_at >= $1
		 GROUP BY tag ORDER BY n DESC, tag LIMIT $2`,
		since, topTags,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc types.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag count: %w", err)
		}
		stats.TopTags = append(stats.TopTags, tc)
	}
	return stats, rows.Err()
}

func (db *DB) queryHistory(ctx context.Context, query string, args ...any) ([]types.HistoryEntry, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanHistory(row pgx.Row) (*types.HistoryEntry, error) {
	var e types.HistoryEntry
	var id, jobID uuid.UUID
	var summaryJSON []byte
	if err := row.Scan(&id, &jobID, &e.Prompt, &e.Tags, &e.Category, &e.Status, &summaryJSON,
		&e.GenerationSeconds, &e.CreatedAt, &e.SoftDeleted); err != nil {
		return nil, err
	}
	e.ID = id.String()
	e.JobID = jobID.String()
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &e.ResultSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result summary: %w", err)
		}
	}
	return &e, nil
}
