package duckdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/longevents/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	require.NoError(t, err, "NewStore(\"\")")
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Reset())
	return store
}

func row(id string, d int64) model.AlertRow {
	return model.AlertRow{ID: id, Duration: d, Type: "APPLICATION_LOG", Host: "12345", Alert: true}
}

func TestWriteBatchAndQueryAll(t *testing.T) {
	store := newTestStore(t)

	rows := []model.AlertRow{row("id1", 10), row("id3", 7), row("id3", 7)}
	require.NoError(t, store.WriteBatch(rows))

	got, err := store.QueryAll()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriteBatch_EmptyIsNoop(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.WriteBatch([]model.AlertRow{row("a", 5)}))

	require.NoError(t, store.WriteBatch(nil))
	require.NoError(t, store.WriteBatch([]model.AlertRow{}))

	got, err := store.QueryAll()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteBatch_ParameterizedValues(t *testing.T) {
	store := newTestStore(t)
	tricky := model.AlertRow{ID: "x'); DROP TABLE long_events; --", Duration: 9, Type: "it's", Host: "h", Alert: true}
	require.NoError(t, store.WriteBatch([]model.AlertRow{tricky}))

	got, err := store.QueryAll()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tricky, got[0])
}

func TestReset_ClearsRows(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.WriteBatch([]model.AlertRow{row("a", 5), row("b", 6)}))

	require.NoError(t, store.Reset())
	got, err := store.QueryAll()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryAll_WithoutTable(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.QueryAll()
	assert.Error(t, err)
}

func TestShutdown_Idempotent(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "alerts.duckdb"))
	require.NoError(t, err)
	require.NoError(t, store.Reset())

	require.NoError(t, store.Shutdown())
	require.NoError(t, store.Shutdown())
	require.NoError(t, store.Close())
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alerts.duckdb")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Reset())
	require.NoError(t, store.WriteBatch([]model.AlertRow{row("id1", 10)}))
	require.NoError(t, store.Shutdown())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.QueryAll()
	require.NoError(t, err)
	assert.Equal(t, []model.AlertRow{row("id1", 10)}, got)
	assert.Equal(t, path, reopened.DBPath())
}

func TestRunHistory(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b"} {
		require.NoError(t, store.RecordRun(model.RunSummary{
			RunID:      id,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Second),
			Input:      "events.json",
			Records:    4, Pairs: 3, Alerts: 2, Threshold: 4,
			Degraded: []string{"Persisted"},
		}))
	}

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, []string{"Persisted"}, runs[0].Degraded)
	assert.Equal(t, 2, runs[1].Alerts)

	deleted, err := store.DeleteRunsBefore(base.Add(30 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestPruneRunHistory(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordRun(model.RunSummary{RunID: "old", StartedAt: now.AddDate(0, 0, -40), FinishedAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, store.RecordRun(model.RunSummary{RunID: "new", StartedAt: now.AddDate(0, 0, -1), FinishedAt: now.AddDate(0, 0, -1)}))

	n, err := PruneRunHistory(store, nil, RetentionConfig{RetentionDays: 0})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = PruneRunHistory(store, nil, RetentionConfig{RetentionDays: 30, Now: func() time.Time { return now }})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].RunID)
}
