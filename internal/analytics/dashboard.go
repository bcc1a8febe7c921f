package analytics

import (
	"time"

	"cashflow/internal/core"
)

const recentCount = 5

// Dashboard bundles every derived figure a renderer needs.
type Dashboard struct {
	GeneratedAt   time.Time
	Count         int
	Monthly       MonthlySummary
	Trend         []TrendBucket
	Categories    []CategoryTotal
	Projection    ProjectionSummary
	Largest       *core.Transaction
	TotalIncome   int64
	TotalExpense  int64
	HealthScore   int
	HealthBand    Band
	TopCategories []CategoryShare
	Radar         RadarMetrics
	Recent        []core.Transaction
}

// Build recomputes the whole dashboard from txs.
func Build(txs []core.Transaction, now time.Time) Dashboard {
	income, expense := Totals(txs)
	score := HealthScore(income, expense)

	d := Dashboard{
		GeneratedAt:   now,
		Count:         len(txs),
		Monthly:       Monthly(txs, now),
		Trend:         Trend(txs, now),
		Categories:    CategoryBreakdown(txs),
		Projection:    Projection(txs, now),
		TotalIncome:   income,
		TotalExpense:  expense,
		HealthScore:   score,
		HealthBand:    HealthBand(score),
		TopCategories: TopCategories(txs, DefaultTopCategories),
		Radar:         Radar(txs),
	}
	if tx, ok := Largest(txs); ok {
		d.Largest = &tx
	}
	n := len(txs)
	if n > recentCount {
		n = recentCount
	}
	d.Recent = append([]core.Transaction(nil), txs[:n]...)
	return d
}
