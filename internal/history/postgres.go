package history

import (
	"context"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

// candidatePool bounds how many tag-overlapping rows are ranked per lookup.
const candidatePool = 500

// Backend is the subset of the database used by PostgresStore.
type Backend interface {
	InsertHistory(ctx context.Context, e *types.HistoryEntry) error
	GetHistory(ctx context.Context, id string) (*types.HistoryEntry, error)
	ListHistory(ctx context.Context, filter types.HistoryFilter) ([]types.HistoryEntry, error)
	HistoryCandidates(ctx context.Context, tags []string, limit int) ([]types.HistoryEntry, error)
	SoftDeleteHistory(ctx context.Context, id string) (bool, error)
	HistoryStats(ctx context.Context, since time.Time, topTags int) (*types.HistoryStats, error)
}

// PostgresStore is a Store backed by the prompt_history table. Candidate
// rows are narrowed by tag overlap in SQL and ranked in process.
type PostgresStore struct {
	db  Backend
	now func() time.Time
}

// NewPostgresStore wraps a database backend.
func NewPostgresStore(db Backend) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Append(ctx context.Context, e *types.HistoryEntry) error {
	if err := prepare(e, s.now()); err != nil {
		return err
	}
	if err := s.db.InsertHistory(ctx, e); err != nil {
		return apperr.Internal(err, "failed to append history entry")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*types.HistoryEntry, error) {
	e, err := s.db.GetHistory(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load history entry")
	}
	if e == nil || e.SoftDeleted {
		return nil, apperr.NotFound("history entry %s not found", id)
	}
	return e, nil
}

func (s *PostgresStore) FindSimilar(ctx context.Context, prompt string, limit int) ([]types.HistoryEntry, error) {
	tags := Tags(prompt)
	if len(tags) == 0 {
		return []types.HistoryEntry{}, nil
	}
	candidates, err := s.db.HistoryCandidates(ctx, tags, candidatePool)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load similar history")
	}
	return rank(candidates, tags, limit), nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id string) error {
	found, err := s.db.SoftDeleteHistory(ctx, id)
	if err != nil {
		return apperr.Internal(err, "failed to delete history entry")
	}
	if !found {
		return apperr.NotFound("history entry %s not found", id)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter types.HistoryFilter) ([]types.HistoryEntry, error) {
	entries, err := s.db.ListHistory(ctx, normalizeFilter(filter))
	if err != nil {
		return nil, apperr.Internal(err, "failed to list history")
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	return entries, nil
}

func (s *PostgresStore) Stats(ctx context.Context, days int) (*types.HistoryStats, error) {
	if days <= 0 {
		return nil, apperr.InvalidRequest("days must be positive")
	}
	stats, err := s.db.HistoryStats(ctx, s.now().Add(-time.Duration(days)*24*time.Hour), defaultTopTags)
	if err != nil {
		return nil, apperr.Internal(err, "failed to compute history stats")
	}
	stats.PeriodDays = days
	if stats.TopTags == nil {
		stats.TopTags = []types.TagCount{}
	}
	return stats, nil
}
