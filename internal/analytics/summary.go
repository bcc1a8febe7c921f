// Package analytics derives every dashboard figure from a transaction
// snapshot. All functions are pure: the same snapshot and now give the same
// result, and nothing is cached between calls.
//
// Time windows differ per figure. Monthly and projection figures use the
// local calendar month of now, the trend uses the six months ending at now,
// and the category, health and radar figures use the full set.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

const trendMonths = 6

type (
	MonthlySummary struct {
		Month       string // YYYY-MM
		Income      int64
		Expense     int64
		Balance     int64
		SavingsRate float64 // percent, 0 without income
	}

	TrendBucket struct {
		Key     string // YYYY-MM
		Label   string // short Indonesian month
		Income  int64
		Expense int64
	}

	CategoryTotal struct {
		Category string
		Total    int64
	}

	ProjectionSummary struct {
		MonthExpense int64
		DailyAverage decimal.Decimal
		MonthEnd     decimal.Decimal
		DaysElapsed  int
		DaysInMonth  int
	}

	QuickSummary struct {
		MonthExpense int64
		DailyAverage decimal.Decimal
	}
)

// Monthly sums the transactions in the calendar month of now.
func Monthly(txs []core.Transaction, now time.Time) MonthlySummary {
	now = now.In(time.Local)
	s := MonthlySummary{Month: now.Format(core.MonthLayout)}
	for _, tx := range txs {
		if !tx.Date.InMonthOf(now) {
			continue
		}
		switch tx.Type {
		case core.Income:
			s.Income += tx.Amount.Amount
		case core.Expense:
			s.Expense += tx.Amount.Amount
		}
	}
	s.Balance = s.Income - s.Expense
	if s.Income > 0 {
		s.SavingsRate = float64(s.Income-s.Expense) / float64(s.Income) * 100
	}
	return s
}

// Trend buckets income and expense for the six calendar months ending at
// now, oldest first. Transactions outside the window are dropped.
func Trend(txs []core.Transaction, now time.Time) []TrendBucket {
	now = now.In(time.Local)
	buckets := make([]TrendBucket, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := 0; i < trendMonths; i++ {
		m := time.Date(now.Year(), now.Month()-time.Month(trendMonths-1-i), 1, 0, 0, 0, 0, time.Local)
		key := m.Format(core.MonthLayout)
		buckets[i] = TrendBucket{Key: key, Label: core.ShortMonthName(m.Month())}
		index[key] = i
	}
	for _, tx := range txs {
		i, ok := index[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Income:
			buckets[i].Income += tx.Amount.Amount
		case core.Expense:
			buckets[i].Expense += tx.Amount.Amount
		}
	}
	return buckets
}

// CategoryBreakdown sums expenses by category over the full set, in the
// order categories are first seen.
func CategoryBreakdown(txs []core.Transaction) []CategoryTotal {
	var out []CategoryTotal
	index := make(map[string]int)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category})
		}
		out[i].Total += tx.Amount.Amount
	}
	return out
}

// Projection extrapolates this month's expense to the end of the month.
func Projection(txs []core.Transaction, now time.Time) ProjectionSummary {
	now = now.In(time.Local)
	p := ProjectionSummary{
		MonthExpense: monthExpense(txs, now),
		DaysElapsed:  now.Day(),
		DaysInMonth:  daysIn(now),
		DailyAverage: decimal.Zero,
		MonthEnd:     decimal.Zero,
	}
	if p.DaysElapsed > 0 {
		p.DailyAverage = decimal.NewFromInt(p.MonthExpense).Div(decimal.NewFromInt(int64(p.DaysElapsed)))
		p.MonthEnd = p.DailyAverage.Mul(decimal.NewFromInt(int64(p.DaysInMonth)))
	}
	return p
}

// QuickAnalysis is this month's expense and its per-day average.
func QuickAnalysis(txs []core.Transaction, now time.Time) QuickSummary {
	p := Projection(txs, now)
	return QuickSummary{MonthExpense: p.MonthExpense, DailyAverage: p.DailyAverage}
}

// Largest returns the transaction with the highest amount over the full set.
// On ties the first one in snapshot order wins.
func Largest(txs []core.Transaction) (core.Transaction, bool) {
	if len(txs) == 0 {
		return core.Transaction{}, false
	}
	best := txs[0]
	for _, tx := range txs[1:] {
		if tx.Amount.Amount > best.Amount.Amount {
			best = tx
		}
	}
	return best, true
}

// Totals sums income and expense over the full set.
func Totals(txs []core.Transaction) (income, expense int64) {
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			income += tx.Amount.Amount
		case core.Expense:
			expense += tx.Amount.Amount
		}
	}
	return income, expense
}

func monthExpense(txs []core.Transaction, now time.Time) int64 {
	var total int64
	for _, tx := range txs {
		if tx.Type == core.Expense && tx.Date.InMonthOf(now) {
			total += tx.Amount.Amount
		}
	}
	return total
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.Local).Day()
}
