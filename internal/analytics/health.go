package analytics

import (
	"math"
	"sort"

	"cashflow/internal/core"
)

type (
	Band string

	CategoryShare struct {
		Category string
		Total    int64
		Percent  float64 // relative to the largest row, not the grand total
		Icon     string
	}

	// RadarMetrics are the five radar axes, each in [0,100].
	RadarMetrics struct {
		Thrift      float64
		Investment  float64
		IncomeScale float64
		Health      float64
		Consistency float64
	}
)

const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

const (
	baseScore          = 50
	incomeScaleCeiling = 10_000_000
	// consistencyPlaceholder is not derived from data.
	consistencyPlaceholder = 80
	DefaultTopCategories   = 5
)

// HealthScore rates the expense to income ratio r (1 without income):
// +30 below 0.5, +10 below 0.8, -30 above 1.0, +10 more for a surplus.
// The result is clamped to [0,100].
func HealthScore(income, expense int64) int {
	score := baseScore
	switch {
	case income <= 0:
		// r = 1, no adjustment
	case 2*expense < income:
		score += 30
	case 5*expense < 4*income:
		score += 10
	case expense > income:
		score -= 30
	}
	if income > expense {
		score += 10
	}
	return clampInt(score, 0, 100)
}

// Health is HealthScore over full-set totals.
func Health(txs []core.Transaction) int {
	return HealthScore(Totals(txs))
}

func HealthBand(score int) Band {
	switch {
	case score > 70:
		return BandGood
	case score > 40:
		return BandFair
	default:
		return BandPoor
	}
}

// TopCategories returns the n largest expense categories, descending.
func TopCategories(txs []core.Transaction, n int) []CategoryShare {
	totals := CategoryBreakdown(txs)
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Total > totals[j].Total })
	if n >= 0 && len(totals) > n {
		totals = totals[:n]
	}
	if len(totals) == 0 {
		return nil
	}

	top := totals[0].Total
	if top == 0 {
		top = 1
	}
	out := make([]CategoryShare, len(totals))
	for i, c := range totals {
		out[i] = CategoryShare{
			Category: c.Category,
			Total:    c.Total,
			Percent:  float64(c.Total) / float64(top) * 100,
			Icon:     core.CategoryIcon(c.Category),
		}
	}
	return out
}

// Radar computes the radar axes over the full set. Investment reads the
// expense breakdown, so only expenses filed under the investment category
// count.
func Radar(txs []core.Transaction) RadarMetrics {
	income, expense := Totals(txs)
	ratio := 1.0
	if income > 0 {
		ratio = float64(expense) / float64(income)
	}

	var invested int64
	for _, c := range CategoryBreakdown(txs) {
		if c.Category == core.CategoryInvestment {
			invested = c.Total
		}
	}
	denom := float64(income)
	if income == 0 {
		denom = 1
	}

	return RadarMetrics{
		Thrift:      clamp((1-ratio)*100, 0, 100),
		Investment:  clamp(float64(invested)/denom*500, 0, 100),
		IncomeScale: clamp(float64(income)/incomeScaleCeiling*100, 0, 100),
		Health:      float64(HealthScore(income, expense)),
		Consistency: consistencyPlaceholder,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
