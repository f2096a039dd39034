package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jfenske/sonarfix/internal/runlog"
)

func TestSummarize(t *testing.T) {
	runs := []runlog.Summary{
		{ID: "20260830-100000", Fixed: 3, Failed: 1, DebtMinutes: 20, CostUSD: 0.02},
		{ID: "20260830-110000", Fixed: 5, Failed: 0, DebtMinutes: 40, CostUSD: 0.04},
		{ID: "20260830-120000", Fixed: 2, Failed: 2, DebtMinutes: 10, CostUSD: 0.03, DryRun: true},
	}

	agg := Summarize(runs)

	assert.Equal(t, 3, agg.Runs)
	assert.Equal(t, 2, agg.LiveRuns)
	assert.Equal(t, 10, agg.Fixed)
	assert.Equal(t, 3, agg.Failed)
	assert.InDelta(t, 76.9, agg.FixRatePct, 0.05)
	assert.Equal(t, 70, agg.DebtMinutes)
	assert.InDelta(t, 0.09, agg.CostUSD, 1e-9)
	assert.InDelta(t, 0.03, agg.AvgCostPerRun, 1e-9)
	assert.InDelta(t, 0.03, agg.P50CostPerRun, 1e-9)
	assert.True(t, agg.HasCostPerDebtMinute)
	assert.InDelta(t, 0.09/70.0, agg.CostPerDebtMinute, 1e-6)
}

func TestSummarizeEmpty(t *testing.T) {
	agg := Summarize(nil)
	assert.Zero(t, agg.Runs)
	assert.Zero(t, agg.FixRatePct)
	assert.False(t, agg.HasCostPerDebtMinute)
}

func TestSummarizeNoDebtResolved(t *testing.T) {
	runs := []runlog.Summary{
		{ID: "20260830-100000", Fixed: 0, Failed: 3, CostUSD: 0.01},
	}
	agg := Summarize(runs)
	assert.False(t, agg.HasCostPerDebtMinute)
	assert.InDelta(t, 0.01, agg.CostUSD, 1e-9)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{0.01, 0.02, 0.03, 0.04}
	assert.InDelta(t, 0.025, percentile(sorted, 50), 1e-9)
	assert.InDelta(t, 0.04, percentile(sorted, 100), 1e-9)
	assert.Zero(t, percentile(nil, 50))
}
