package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	entries       map[string]types.HistoryEntry
	candidateTags []string
	statsSince    time.Time
	err           error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{entries: map[string]types.HistoryEntry{}}
}

func (f *fakeBackend) InsertHistory(_ context.Context, e *types.HistoryEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries[e.ID] = *e
	return nil
}

func (f *fakeBackend) GetHistory(_ context.Context, id string) (*types.HistoryEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, f.err
	}
	return &e, f.err
}

func (f *fakeBackend) ListHistory(_ context.Context, filter types.HistoryFilter) ([]types.HistoryEntry, error) {
	if filter.Limit != defaultListLimit {
		return nil, errors.New("limit not normalized")
	}
	return nil, f.err
}

func (f *fakeBackend) HistoryCandidates(_ context.Context, tags []string, _ int) ([]types.HistoryEntry, error) {
	f.candidateTags = tags
	var out []types.HistoryEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, f.err
}

func (f *fakeBackend) SoftDeleteHistory(_ context.Context, id string) (bool, error) {
	e, ok := f.entries[id]
	if !ok || e.SoftDeleted {
		return false, f.err
	}
	e.SoftDeleted = true
	f.entries[id] = e
	return true, f.err
}

func (f *fakeBackend) HistoryStats(_ context.Context, since time.Time, _ int) (*types.HistoryStats, error) {
	f.statsSince = since
	return &types.HistoryStats{Total: 2, Succeeded: 1, Failed: 1, SuccessRate: 0.5}, f.err
}

func TestPostgresStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := NewPostgresStore(backend)
	s.now = func() time.Time { return t0 }

	e := &types.HistoryEntry{Prompt: "Pricing table landing page", JobID: "job-1", Status: StatusCompleted}
	require.NoError(t, s.Append(ctx, e))
	assert.Equal(t, t0, e.CreatedAt)
	assert.Equal(t, []string{"landing", "page", "pricing", "table"}, e.Tags)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)

	require.NoError(t, s.SoftDelete(ctx, e.ID))
	_, err = s.Get(ctx, e.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	err = s.SoftDelete(ctx, e.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPostgresStore_FindSimilar(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := NewPostgresStore(backend)
	require.NoError(t, s.Append(ctx, &types.HistoryEntry{Prompt: "pricing table", CreatedAt: t0}))
	require.NoError(t, s.Append(ctx, &types.HistoryEntry{Prompt: "pricing cards", CreatedAt: t0.Add(time.Hour)}))

	got, err := s.FindSimilar(ctx, "Pricing table!", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"pricing", "table"}, backend.candidateTags)
	require.Len(t, got, 2)
	assert.Equal(t, "pricing table", got[0].Prompt)

	backend.candidateTags = nil
	got, err = s.FindSimilar(ctx, "a b c", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Nil(t, backend.candidateTags)
}

func TestPostgresStore_ListAndStats(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := NewPostgresStore(backend)
	s.now = func() time.Time { return t0 }

	list, err := s.List(ctx, types.HistoryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list)

	stats, err := s.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.PeriodDays)
	assert.Equal(t, t0.Add(-7*24*time.Hour), backend.statsSince)
	assert.NotNil(t, stats.TopTags)
}

func TestPostgresStore_BackendErrorsAreInternal(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.err = errors.New("connection reset")
	s := NewPostgresStore(backend)

	err := s.Append(ctx, &types.HistoryEntry{Prompt: "pricing"})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorIs(t, err, backend.err)

	_, err = s.FindSimilar(ctx, "pricing table", 3)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
