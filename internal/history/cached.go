package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonathan/ui-builder/internal/types"
)

// CachedStore memoizes FindSimilar results of the wrapped Store. Any write
// purges the cache. A lookup that overlapped a write is not cached.
type CachedStore struct {
	Store
	similar *lru.Cache[string, []types.HistoryEntry]

	mu         sync.Mutex
	generation uint64
}

// NewCachedStore wraps inner with an LRU of the given size.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, []types.HistoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	return &CachedStore{Store: inner, similar: cache}, nil
}

func (s *CachedStore) FindSimilar(ctx context.Context, prompt string, limit int) ([]types.HistoryEntry, error) {
	key := fmt.Sprintf("%d|%s", limit, strings.Join(Tags(prompt), " "))
	if hit, ok := s.similar.Get(key); ok {
		return cloneEntries(hit), nil
	}
	gen := s.currentGeneration()
	entries, err := s.Store.FindSimilar(ctx, prompt, limit)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.generation == gen {
		s.similar.Add(key, cloneEntries(entries))
	}
	s.mu.Unlock()
	return entries, nil
}

func (s *CachedStore) Append(ctx context.Context, e *types.HistoryEntry) error {
	defer s.invalidate()
	return s.Store.Append(ctx, e)
}

func (s *CachedStore) SoftDelete(ctx context.Context, id string) error {
	defer s.invalidate()
	return s.Store.SoftDelete(ctx, id)
}

func (s *CachedStore) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *CachedStore) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.similar.Purge()
}

// Len reports the number of cached lookups.
func (s *CachedStore) Len() int { return s.similar.Len() }

func cloneEntries(in []types.HistoryEntry) []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(in))
	for i, e := range in {
		e.Tags = append([]string(nil), e.Tags...)
		e.ResultSummary.Artifacts = append([]string(nil), e.ResultSummary.Artifacts...)
		out[i] = e
	}
	return out
}
