package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
)

const owner = "budi@example.com"

func tx(id int64, typ core.TxType, amount int64, category string, date core.Date) core.Transaction {
	return core.Transaction{
		ID:          id,
		Owner:       owner,
		Type:        typ,
		Amount:      core.Money{Amount: amount},
		Category:    category,
		Date:        date,
		Description: category,
	}
}

func ids(list []core.Transaction) []int64 {
	out := make([]int64, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func TestReplaceAllSortsNewestFirst(t *testing.T) {
	s := New(owner)
	s.ReplaceAll([]core.Transaction{
		tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 3, 1, 8, 0)),
		tx(2, core.Expense, 50, "Makanan", core.NewDate(2024, 5, 2, 9, 0)),
		tx(3, core.Expense, 70, "Belanja", core.NewDate(2024, 4, 10, 12, 0)),
	})
	require.Equal(t, []int64{2, 3, 1}, ids(s.Snapshot()))
}

func TestReplaceAllDropsForeignOwnersAndDuplicates(t *testing.T) {
	s := New(owner)
	foreign := tx(9, core.Expense, 10, "Amal", core.NewDate(2024, 5, 1, 0, 0))
	foreign.Owner = "other@example.com"
	s.ReplaceAll([]core.Transaction{
		tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 5, 1, 8, 0)),
		tx(1, core.Income, 999, "Gaji", core.NewDate(2024, 5, 1, 8, 0)),
		foreign,
	})
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, int64(100), snap[0].Amount.Amount)
}

func TestUpsertReplacesAndMovesToFront(t *testing.T) {
	s := New(owner)
	s.ReplaceAll([]core.Transaction{
		tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 5, 3, 8, 0)),
		tx(2, core.Expense, 50, "Makanan", core.NewDate(2024, 5, 2, 9, 0)),
		tx(3, core.Expense, 70, "Belanja", core.NewDate(2024, 5, 1, 12, 0)),
	})

	// Back-dated edit still lands on top: front insertion, no re-sort.
	edited := tx(3, core.Expense, 80, "Belanja", core.NewDate(2023, 1, 1, 0, 0))
	require.NoError(t, s.Upsert(edited))

	require.Equal(t, 3, s.Len())
	require.Equal(t, []int64{3, 1, 2}, ids(s.Snapshot()))

	got, ok := s.Get(3)
	require.True(t, ok)
	require.Equal(t, edited, got)
}

func TestUpsertRejectsForeignOwner(t *testing.T) {
	s := New(owner)
	foreign := tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 5, 3, 8, 0))
	foreign.Owner = "other@example.com"
	require.ErrorIs(t, s.Upsert(foreign), ErrOwnerMismatch)
	require.Zero(t, s.Len())
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := New(owner)
	s.ReplaceAll([]core.Transaction{tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 5, 3, 8, 0))})
	require.False(t, s.Remove(42))
	require.Equal(t, 1, s.Len())
	require.True(t, s.Remove(1))
	require.Zero(t, s.Len())
}

func TestIDsStayUniqueAcrossMutations(t *testing.T) {
	s := New(owner)
	d := core.NewDate(2024, 5, 1, 8, 0)
	for i := 0; i < 50; i++ {
		id := int64(i % 7)
		if i%5 == 0 {
			s.Remove(id)
			continue
		}
		require.NoError(t, s.Upsert(tx(id, core.Expense, int64(i+1), "Makanan", d)))
	}
	seen := map[int64]bool{}
	for _, t2 := range s.Snapshot() {
		require.False(t, seen[t2.ID], "duplicate id %d", t2.ID)
		seen[t2.ID] = true
	}
}

func TestRestoreAndSnapshotIsolation(t *testing.T) {
	s := New(owner)
	s.ReplaceAll([]core.Transaction{
		tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 5, 3, 8, 0)),
		tx(2, core.Expense, 50, "Makanan", core.NewDate(2024, 5, 2, 9, 0)),
	})
	before := s.Snapshot()
	before[0].Amount = core.Money{Amount: 1}
	got, _ := s.Get(1)
	require.Equal(t, int64(100), got.Amount.Amount, "snapshot must be a copy")

	captured := s.Snapshot()
	s.Remove(1)
	s.Restore(captured)
	require.Equal(t, []int64{1, 2}, ids(s.Snapshot()))
}

func TestSubscribeAndReset(t *testing.T) {
	s := New(owner)
	var mu sync.Mutex
	var sizes []int
	s.Subscribe(func(snapshot []core.Transaction) {
		mu.Lock()
		sizes = append(sizes, len(snapshot))
		mu.Unlock()
	})

	require.NoError(t, s.Upsert(tx(1, core.Income, 100, "Gaji", core.NewDate(2024, 5, 3, 8, 0))))
	s.Remove(1)
	s.Remove(1)
	s.Reset("siti@example.com")

	require.Equal(t, []int{1, 0, 0}, sizes)
	require.Equal(t, "siti@example.com", s.Owner())
}
