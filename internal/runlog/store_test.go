package runlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfenske/sonarfix/internal/ledger"
	"github.com/jfenske/sonarfix/internal/orchestrator"
)

func sampleReport(start time.Time) *orchestrator.Report {
	return &orchestrator.Report{
		StartedAt:   start,
		FinishedAt:  start.Add(2 * time.Minute),
		ProjectKey:  "demo",
		Fixed:       3,
		Failed:      1,
		DebtMinutes: 17,
		Usage:       ledger.Totals{TotalTokens: 450, CostUSD: 0.012, Entries: 4},
	}
}

func TestSaveAndGet(t *testing.T) {
	store := NewStore(t.TempDir())
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	id, err := store.Save(sampleReport(start))
	require.NoError(t, err)
	assert.Equal(t, "20260830-100000", id)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.ProjectKey)
	assert.Equal(t, 17, got.DebtMinutes)
	assert.InDelta(t, 0.012, got.Usage.CostUSD, 1e-9)
}

func TestGetMissingRun(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Get("20990101-000000")
	assert.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := store.Save(sampleReport(base.Add(time.Duration(i) * time.Hour)))
		require.NoError(t, err)
	}

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "20260830-120000", runs[0].ID)
	assert.Equal(t, "20260830-100000", runs[2].ID)
}

func TestListEmptyDir(t *testing.T) {
	store := NewStore(t.TempDir())
	runs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLatest(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	_, err := store.Save(sampleReport(base))
	require.NoError(t, err)
	later := sampleReport(base.Add(time.Hour))
	later.Fixed = 9
	_, err = store.Save(later)
	require.NoError(t, err)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 9, latest.Fixed)
}

func TestDelete(t *testing.T) {
	store := NewStore(t.TempDir())
	id, err := store.Save(sampleReport(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Get(id)
	assert.Error(t, err)

	assert.Error(t, store.Delete(id), "second delete reports not found")
}
