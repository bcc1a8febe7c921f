package analytics

import (
	"strings"

	"cashflow/internal/core"
)

// FilterKind selects transactions in the history view.
type FilterKind string

const (
	FilterAll     FilterKind = "all"
	FilterIncome  FilterKind = "income"
	FilterExpense FilterKind = "expense"
)

// ParseFilterKind defaults unknown values to FilterAll.
func ParseFilterKind(s string) FilterKind {
	switch k := FilterKind(strings.ToLower(strings.TrimSpace(s))); k {
	case FilterIncome, FilterExpense:
		return k
	default:
		return FilterAll
	}
}

// Filter keeps transactions of kind whose description or category contains
// search, case-insensitively. Order is preserved.
func Filter(txs []core.Transaction, kind FilterKind, search string) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if kind == FilterIncome && tx.Type != core.Income {
			continue
		}
		if kind == FilterExpense && tx.Type != core.Expense {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.Category), needle) {
			continue
		}
		out = append(out, tx)
	}
	return out
}
