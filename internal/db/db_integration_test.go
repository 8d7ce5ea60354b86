package db

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(db.Close)
	return db
}

func TestSaveAndGetJob_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	j := job.New(uuid.NewString(), "landing page with hero", job.Options{CoverageTarget: 0.8}, now)
	require.NoError(t, db.SaveJob(ctx, j))

	next := j.Clone()
	require.NoError(t, next.SetStatus(job.StatusInProgress, now))
	require.NoError(t, next.StartStage(job.StageAnalyze, now))
	require.NoError(t, next.CompleteStage(job.StageAnalyze, json.RawMessage(`{"ui_type":"landing_page"}`), now))
	next.Version = 2
	require.NoError(t, db.SaveJob(ctx, next))

	// A stale snapshot must not overwrite the newer one.
	require.NoError(t, db.SaveJob(ctx, j))

	got, err := db.GetJob(ctx, j.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.StatusInProgress, got.Status)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Stages, len(job.Sequence()))
	assert.Equal(t, job.StageSucceeded, got.Stages[0].Status)
	assert.JSONEq(t, `{"ui_type":"landing_page"}`, string(got.Artifacts[job.StageAnalyze]))
	assert.Equal(t, 0.8, got.Options.CoverageTarget)

	jobs, err := db.ListJobs(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, jobs)
}

func TestGetJob_NotFound_Integration(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetJob(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = db.GetJob(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHistory_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	marker := "zz" + uuid.NewString()[:8]

	entry := &types.HistoryEntry{
		ID:                uuid.NewString(),
		JobID:             uuid.NewString(),
		Prompt:            "dashboard with revenue charts " + marker,
		Tags:              []string{"charts", "dashboard", "revenue", marker},
		Category:          types.UITypeDashboard,
		Status:            "completed",
		ResultSummary:     types.ResultSummary{ComponentName: "RevenueDashboard", Artifacts: []string{"analyze"}},
		GenerationSeconds: 12.5,
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.InsertHistory(ctx, entry))

	got, err := db.GetHistory(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Tags, got.Tags)
	assert.Equal(t, "RevenueDashboard", got.ResultSummary.ComponentName)

	list, err := db.ListHistory(ctx, types.HistoryFilter{Search: marker})
	require.NoError(t, err)
	require.Len(t, list, 1)

	candidates, err := db.HistoryCandidates(ctx, []string{marker}, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	deleted, err := db.SoftDeleteHistory(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.SoftDeleteHistory(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	list, err = db.ListHistory(ctx, types.HistoryFilter{Search: marker})
	require.NoError(t, err)
	assert.Empty(t, list)

	stats, err := db.HistoryStats(ctx, time.Now().Add(-time.Hour), 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Total, 0)
}
