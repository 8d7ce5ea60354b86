package history

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	defaultTopTags   = 10
)

// Store persists history entries. Entries are never physically removed;
// SoftDelete hides them from every query.
type Store interface {
	Append(ctx context.Context, e *types.HistoryEntry) error
	Get(ctx context.Context, id string) (*types.HistoryEntry, error)
	FindSimilar(ctx context.Context, prompt string, limit int) ([]types.HistoryEntry, error)
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter types.HistoryFilter) ([]types.HistoryEntry, error)
	Stats(ctx context.Context, days int) (*types.HistoryStats, error)
}

// prepare fills derived fields before an entry is stored.
func prepare(e *types.HistoryEntry, now time.Time) error {
	if strings.TrimSpace(e.Prompt) == "" {
		return apperr.InvalidRequest("history entry prompt is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Tags == nil {
		e.Tags = Tags(e.Prompt)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ResultSummary.Artifacts == nil {
		e.ResultSummary.Artifacts = []string{}
	}
	e.SoftDeleted = false
	e.Similarity = 0
	return nil
}

func normalizeFilter(f types.HistoryFilter) types.HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []types.HistoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Append(_ context.Context, e *types.HistoryEntry) error {
	if err := prepare(e, s.now()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return nil
		}
	}
	cp := *e
	cp.Tags = append([]string(nil), e.Tags...)
	s.entries = append(s.entries, cp)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id && !e.SoftDeleted {
			cp := e
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("history entry %s not found", id)
}

func (s *MemoryStore) FindSimilar(_ context.Context, prompt string, limit int) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	candidates := append([]types.HistoryEntry(nil), s.entries...)
	s.mu.RUnlock()
	return rank(candidates, Tags(prompt), limit), nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id && !s.entries[i].SoftDeleted {
			s.entries[i].SoftDeleted = true
			return nil
		}
	}
	return apperr.NotFound("history entry %s not found", id)
}

func (s *MemoryStore) List(_ context.Context, filter types.HistoryFilter) ([]types.HistoryEntry, error) {
	f := normalizeFilter(filter)
	search := strings.ToLower(f.Search)

	s.mu.RLock()
	var matched []types.HistoryEntry
	for _, e := range s.entries {
		if e.SoftDeleted {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Prompt), search) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if f.Offset >= len(matched) {
		return []types.HistoryEntry{}, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) Stats(_ context.Context, days int) (*types.HistoryStats, error) {
	if days <= 0 {
		return nil, apperr.InvalidRequest("days must be positive")
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &types.HistoryStats{PeriodDays: days, TopTags: []types.TagCount{}}
	tagCounts := map[string]int{}
	var totalSeconds float64
	for _, e := range s.entries {
		if e.SoftDeleted || e.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		totalSeconds += e.GenerationSeconds
		switch e.Status {
		case StatusCompleted:
			stats.Succeeded++
		case StatusFailed:
			stats.Failed++
		}
		for _, t := range e.Tags {
			tagCounts[t]++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = types.Round2(float64(stats.Succeeded) / float64(stats.Total))
		stats.AvgGenerationSeconds = types.Round2(totalSeconds / float64(stats.Total))
	}
	stats.TopTags = topTags(tagCounts, defaultTopTags)
	return stats, nil
}

func topTags(counts map[string]int, n int) []types.TagCount {
	out := make([]types.TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, types.TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Entry statuses mirror the terminal job statuses that produce entries.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
