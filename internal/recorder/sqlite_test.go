package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySentinel/internal/logging"
	"StaySentinel/internal/model"
)

func openTest(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "nested", "test.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RunsNewestFirst(t *testing.T) {
	r := openTest(t)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordRun(&model.RunSummary{RunID: "a", Trigger: model.TriggerCLI, Owner: "u1", StartedAt: base}))
	require.NoError(t, r.RecordRun(&model.RunSummary{RunID: "b", Trigger: model.TriggerHTTP, Owner: "u1", StartedAt: base.Add(time.Hour)}))

	// Finishing run "a" updates the row in place.
	require.NoError(t, r.RecordRun(&model.RunSummary{
		RunID: "a", Trigger: model.TriggerCLI, Owner: "u1", StartedAt: base,
		FinishedAt: base.Add(10 * time.Minute), EntitiesPublished: 7, RemotePath: model.RemoteBulk,
	}))

	runs, err := r.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
	assert.Equal(t, model.TriggerHTTP, runs[0].Trigger)
	assert.True(t, runs[0].FinishedAt.IsZero())
	assert.Equal(t, "a", runs[1].RunID)
	assert.Equal(t, 7, runs[1].EntitiesPublished)
	assert.Equal(t, model.RemoteBulk, runs[1].RemotePath)
	assert.Equal(t, 10*time.Minute, runs[1].Duration())
}

func TestSQLiteRecorder_RecordSeriesIsIdempotent(t *testing.T) {
	r := openTest(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := []*model.ReconciledEntity{{
		Name:         "Hotel A",
		AveragePrice: 1000,
		Series: []model.ForecastPoint{
			{Date: day, Price: 1000, Provenance: model.ProvenanceReal},
			{Date: day.AddDate(0, 0, 1), Price: 1010, Provenance: model.ProvenancePredicted},
		},
	}}

	require.NoError(t, r.RecordSeries("run-1", "u1", batch))
	require.NoError(t, r.RecordSeries("run-2", "u1", batch))
	require.NoError(t, r.RecordSeries("run-2", "u2", batch))

	n, err := r.SeriesCount("u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&model.RunSummary{}))
	assert.NoError(t, r.RecordSeries("x", "y", nil))
	runs, err := r.RecentRuns(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
