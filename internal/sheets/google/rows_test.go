package google

import (
	"testing"

	"cashflow/internal/core"
)

func TestParseTransactionRow(t *testing.T) {
	tests := []struct {
		name string
		row  []any
		ok   bool
	}{
		{"header", transactionHeader, false},
		{"cleared", []any{}, false},
		{"numeric cells", []any{1714550400000.0, "a@x.id", "expense", 25000.0, "Makanan", "2024-05-01 08:00", "Nasi", ""}, true},
		{"string cells", []any{"1714550400000", "a@x.id", "expense", "25.000", "Makanan", "2024-05-01 08:00", "Nasi"}, true},
		{"zero amount", []any{"1", "a@x.id", "expense", "0", "Makanan", "2024-05-01 08:00"}, false},
		{"bad type", []any{"1", "a@x.id", "transfer", "10", "Makanan", "2024-05-01 08:00"}, false},
		{"bad date", []any{"1", "a@x.id", "income", "10", "Gaji", "kemarin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseTransactionRow(tt.row)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestTransactionRowRoundTrip(t *testing.T) {
	tx := core.Transaction{
		ID:          1714550400000,
		Owner:       "a@x.id",
		Type:        core.Income,
		Amount:      core.Money{Amount: 1000000},
		Category:    "Gaji",
		Date:        core.NewDate(2024, 5, 1, 8, 0),
		Description: "Gaji Mei",
		Notes:       "transfer",
	}
	got, ok := parseTransactionRow(transactionRow(tx))
	if !ok {
		t.Fatal("row did not parse")
	}
	if got.ID != tx.ID || got.Owner != tx.Owner || got.Type != tx.Type || got.Amount != tx.Amount ||
		got.Category != tx.Category || !got.Date.Equal(tx.Date.Time) || got.Description != tx.Description || got.Notes != tx.Notes {
		t.Errorf("round trip mismatch: %+v vs %+v", got, tx)
	}
}

func TestParseTransactionsFiltersAndSorts(t *testing.T) {
	values := [][]any{
		transactionHeader,
		{"1", "a@x.id", "expense", "100", "Makanan", "2024-05-01 08:00", "A"},
		{"2", "b@x.id", "expense", "100", "Makanan", "2024-05-09 08:00", "B"},
		{},
		{"3", "A@X.ID", "income", "500", "Gaji", "2024-05-03 08:00", "C"},
	}
	got := parseTransactions(values, "a@x.id")
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"1.7145504e+12", 1714550400000, true},
		{"12.5", 0, false},
		{"id", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseID(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFindTransactionRow(t *testing.T) {
	values := [][]any{
		transactionHeader,
		{"1", "a@x.id"},
		{"1", "b@x.id"},
	}
	if got := findTransactionRow(values, "b@x.id", 1); got != 3 {
		t.Errorf("row = %d, want 3", got)
	}
	if got := findTransactionRow(values, "c@x.id", 1); got != 0 {
		t.Errorf("row = %d, want 0", got)
	}
}

func TestParseUsers(t *testing.T) {
	values := [][]any{userHeader, {"Ani", "ani@x.id", "h1"}, {"", "", ""}, {"Budi", "budi@x.id"}}
	got := parseUsers(values)
	if len(got) != 1 || got[0].Name != "Ani" || got[0].PasswordHash != "h1" {
		t.Fatalf("unexpected %+v", got)
	}
}
