// Package analytics aggregates spend and outcome statistics across the
// recorded run history.
package analytics

import (
	"math"
	"sort"

	"github.com/jfenske/sonarfix/internal/runlog"
)

// Aggregate summarises all recorded runs.
type Aggregate struct {
	Runs        int     `json:"runs"`
	LiveRuns    int     `json:"live_runs"`
	Fixed       int     `json:"fixed"`
	Failed      int     `json:"failed"`
	FixRatePct  float64 `json:"fix_rate_pct"`
	DebtMinutes int     `json:"debt_minutes"`
	CostUSD     float64 `json:"cost_usd"`

	AvgCostPerRun float64 `json:"avg_cost_per_run"`
	P50CostPerRun float64 `json:"p50_cost_per_run"`
	P95CostPerRun float64 `json:"p95_cost_per_run"`

	// CostPerDebtMinute is meaningful only when HasCostPerDebtMinute is
	// set; zero resolved debt leaves the ratio undefined.
	CostPerDebtMinute    float64 `json:"cost_per_debt_minute"`
	HasCostPerDebtMinute bool    `json:"has_cost_per_debt_minute"`
}

// Summarize folds run summaries into one Aggregate.
func Summarize(runs []runlog.Summary) Aggregate {
	agg := Aggregate{Runs: len(runs)}

	costs := make([]float64, 0, len(runs))
	for _, r := range runs {
		if !r.DryRun {
			agg.LiveRuns++
		}
		agg.Fixed += r.Fixed
		agg.Failed += r.Failed
		agg.DebtMinutes += r.DebtMinutes
		agg.CostUSD += r.CostUSD
		costs = append(costs, r.CostUSD)
	}

	agg.FixRatePct = pct(agg.Fixed, agg.Fixed+agg.Failed)
	agg.AvgCostPerRun = avg(costs)
	sort.Float64s(costs)
	agg.P50CostPerRun = percentile(costs, 50)
	agg.P95CostPerRun = percentile(costs, 95)

	if agg.DebtMinutes > 0 {
		agg.CostPerDebtMinute = agg.CostUSD / float64(agg.DebtMinutes)
		agg.HasCostPerDebtMinute = true
	}
	return agg
}

// --- helpers ---

// Dollar amounts are small, so round to four decimals instead of one.

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return round4(sum / float64(len(values)))
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return round4(sorted[lower])
	}
	weight := rank - float64(lower)
	return round4(sorted[lower]*(1-weight) + sorted[upper]*weight)
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
