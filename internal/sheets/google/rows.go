package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/sheets"
)

// Column layout of the Transactions sheet (A:H).
var transactionHeader = []any{"id", "email", "type", "amount", "category", "date", "description", "notes"}

// Column layout of the Users sheet (A:C).
var userHeader = []any{"name", "email", "password_hash"}

const (
	colID = iota
	colEmail
	colType
	colAmount
	colCategory
	colDate
	colDescription
	colNotes
)

func transactionRow(tx core.Transaction) []any {
	return []any{
		strconv.FormatInt(tx.ID, 10),
		tx.Owner,
		tx.Type.String(),
		strconv.FormatInt(tx.Amount.Amount, 10),
		tx.Category,
		tx.Date.String(),
		tx.Description,
		tx.Notes,
	}
}

// parseTransactionRow converts one sheet row. ok is false for the header,
// cleared rows and rows that do not hold a usable transaction.
func parseTransactionRow(row []any) (core.Transaction, bool) {
	cols := toStrings(row)
	if len(cols) < colDate+1 {
		return core.Transaction{}, false
	}
	id, ok := parseID(cols[colID])
	if !ok {
		return core.Transaction{}, false
	}
	typ, err := core.ParseTxType(cols[colType])
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseAmount(cols[colAmount])
	if err != nil {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(cols[colDate])
	if err != nil {
		return core.Transaction{}, false
	}
	return core.Transaction{
		ID:          id,
		Owner:       cols[colEmail],
		Type:        typ,
		Amount:      core.Money{Amount: amount},
		Category:    cols[colCategory],
		Date:        date,
		Description: safeGet(cols, colDescription),
		Notes:       safeGet(cols, colNotes),
	}, true
}

// parseTransactions returns owner's rows, newest first.
func parseTransactions(values [][]any, owner string) []core.Transaction {
	var out []core.Transaction
	for _, row := range values {
		tx, ok := parseTransactionRow(row)
		if !ok || !sameEmail(tx.Owner, owner) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

// findTransactionRow returns the 1-based sheet row holding owner's id, or 0.
func findTransactionRow(values [][]any, owner string, id int64) int {
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) <= colEmail {
			continue
		}
		if got, ok := parseID(cols[colID]); ok && got == id && sameEmail(cols[colEmail], owner) {
			return i + 1
		}
	}
	return 0
}

func parseUsers(values [][]any) []sheets.StoredUser {
	var out []sheets.StoredUser
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 3 || cols[1] == "" || strings.EqualFold(cols[1], "email") {
			continue
		}
		out = append(out, sheets.StoredUser{Name: cols[0], Email: cols[1], PasswordHash: cols[2]})
	}
	return out
}

// parseID accepts plain integers and the float rendering Sheets uses for
// numeric cells ("1.7145504e+12").
func parseID(s string) (int64, bool) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return d.IntPart(), true
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:H%d", sheet, row, row)
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
