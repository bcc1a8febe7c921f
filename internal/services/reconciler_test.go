package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	"cashflow/internal/remote"
)

const owner = "ani@example.com"

type fakeGateway struct {
	mu sync.Mutex

	upsertAck remote.Ack
	upsertErr error
	deleteErr error
	fetchList []core.Transaction
	fetchErr  error
	// gates holds upserts of the keyed amount until a result is sent.
	gates map[int64]chan error

	upserts []core.Transaction
	deletes []int64
	fetches int
}

func (f *fakeGateway) FetchAll(ctx context.Context, o string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]core.Transaction(nil), f.fetchList...), nil
}

func (f *fakeGateway) UpsertRemote(ctx context.Context, tx core.Transaction) (remote.Ack, error) {
	f.mu.Lock()
	f.upserts = append(f.upserts, tx)
	gate := f.gates[tx.Amount.Amount]
	ack, err := f.upsertAck, f.upsertErr
	f.mu.Unlock()
	if gate != nil {
		err = <-gate
	}
	return ack, err
}

func (f *fakeGateway) DeleteRemote(ctx context.Context, id int64, o string) (remote.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return remote.Ack{}, f.deleteErr
}

func (f *fakeGateway) Authenticate(ctx context.Context, action string, creds remote.Credentials) (remote.AuthResult, error) {
	return remote.AuthResult{}, errors.New("not used")
}

type noticeLog struct {
	mu   sync.Mutex
	list []Notice
}

func (n *noticeLog) add(x Notice) {
	n.mu.Lock()
	n.list = append(n.list, x)
	n.mu.Unlock()
}

func (n *noticeLog) last(t *testing.T) Notice {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.list, "expected a notice")
	return n.list[len(n.list)-1]
}

func (n *noticeLog) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.list)
}

var fixedNow = time.Date(2024, 5, 15, 10, 30, 0, 0, time.Local)

func newTestReconciler(gw *fakeGateway) (*Reconciler, *ledger.Store, *noticeLog) {
	store := ledger.New(owner)
	notices := &noticeLog{}
	r := NewReconciler(gw, store,
		WithClock(func() time.Time { return fixedNow }),
		WithNotifier(notices.add))
	return r, store, notices
}

func seed(id int64, typ core.TxType, amount int64, category string, date core.Date) core.Transaction {
	return core.Transaction{ID: id, Owner: owner, Type: typ, Amount: core.Money{Amount: amount}, Category: category, Date: date, Description: category}
}

func TestSubmitCreatesLocallyThenSyncs(t *testing.T) {
	gw := &fakeGateway{}
	r, store, notices := newTestReconciler(gw)

	tx, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "25.000", Category: "Makanan", Day: "2024-05-14"})
	require.NoError(t, err)

	got, ok := store.Get(tx.ID)
	require.True(t, ok, "optimistic write must be visible before the remote call settles")
	require.Equal(t, fixedNow.UnixMilli(), got.ID)
	require.Equal(t, "2024-05-14 10:30", got.Date.String())
	require.Equal(t, "Makanan", got.Description)

	r.Wait()
	require.Len(t, gw.upserts, 1)
	require.Equal(t, tx.ID, gw.upserts[0].ID)
	require.Equal(t, Notice{Level: NoticeSuccess, Message: MsgSaved}, notices.last(t))
	require.Empty(t, r.Pending())
}

func TestSubmitRejectsInvalidDraft(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		msg   string
	}{
		{"zero amount", Draft{Type: core.Expense, Amount: "0", Category: "Makanan"}, MsgZeroAmount},
		{"blank amount", Draft{Type: core.Expense, Amount: "", Category: "Makanan"}, MsgZeroAmount},
		{"foreign category", Draft{Type: core.Expense, Amount: "1000", Category: "Gaji"}, "Kategori tidak sesuai dengan tipe transaksi"},
		{"bad day", Draft{Type: core.Expense, Amount: "1000", Category: "Makanan", Day: "kemarin"}, "Tanggal tidak valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			r, store, notices := newTestReconciler(gw)

			_, err := r.Submit(context.Background(), tt.draft)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.msg, ve.Message)
			require.Equal(t, 0, store.Len())

			r.Wait()
			require.Empty(t, gw.upserts)
			require.Equal(t, NoticeWarning, notices.last(t).Level)
		})
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	r := NewReconciler(&fakeGateway{}, ledger.New(""))
	_, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "1000", Category: "Makanan"})
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSubmitEditPreservesType(t *testing.T) {
	gw := &fakeGateway{}
	r, store, notices := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(1, core.Income, 1000000, "Gaji", core.NewDate(2024, 5, 1, 8, 0))))

	tx, err := r.Submit(context.Background(), Draft{EditingID: 1, Type: core.Expense, Amount: "1.200.000", Category: "Bonus", Day: "2024-05-02"})
	require.NoError(t, err)
	require.Equal(t, int64(1), tx.ID)
	require.Equal(t, core.Income, tx.Type)
	require.Equal(t, 1, store.Len())

	r.Wait()
	require.Equal(t, MsgUpdated, notices.last(t).Message)
}

func TestSubmitKeepsLocalCopyOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		detail string
	}{
		{"unreachable", &remote.SyncError{Kind: remote.Unreachable, Op: remote.ActionAddTransaction}, ""},
		{"application", &remote.SyncError{Kind: remote.Application, Op: remote.ActionAddTransaction, Message: "Sheet penuh"}, "Sheet penuh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{upsertErr: tt.err}
			r, store, notices := newTestReconciler(gw)

			tx, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "5000", Category: "Transportasi"})
			require.NoError(t, err)
			r.Wait()

			_, ok := store.Get(tx.ID)
			require.True(t, ok)
			pending := r.Pending()
			require.Len(t, pending, 1)
			require.Equal(t, PendingUpsert, pending[0].Op)
			require.Equal(t, tx.ID, pending[0].ID)
			require.Equal(t, Notice{Level: NoticeWarning, Message: MsgSavedPending, Detail: tt.detail}, notices.last(t))
		})
	}
}

func TestSubmitDegradedAckCountsAsSuccess(t *testing.T) {
	gw := &fakeGateway{upsertAck: remote.Ack{Degraded: true, Raw: "OK"}}
	r, _, notices := newTestReconciler(gw)

	_, err := r.Submit(context.Background(), Draft{Type: core.Income, Amount: "100", Category: "Bonus"})
	require.NoError(t, err)
	r.Wait()

	require.Equal(t, MsgSaved, notices.last(t).Message)
	require.Empty(t, r.Pending())
}

func TestSubmitSameMillisecondGetsDistinctIDs(t *testing.T) {
	gw := &fakeGateway{}
	r, store, _ := newTestReconciler(gw)

	a, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "1000", Category: "Makanan"})
	require.NoError(t, err)
	b, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "2000", Category: "Makanan"})
	require.NoError(t, err)
	r.Wait()

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, store.Len())
}

func TestDeleteMissingIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	r, store, notices := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(1, core.Expense, 1000, "Makanan", core.NewDate(2024, 5, 1, 8, 0))))

	require.NoError(t, r.Delete(context.Background(), 99))
	r.Wait()

	require.Equal(t, 1, store.Len())
	require.Empty(t, gw.deletes)
	require.Equal(t, 0, notices.len())
}

func TestDeleteSuccess(t *testing.T) {
	gw := &fakeGateway{}
	r, store, notices := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(1, core.Expense, 1000, "Makanan", core.NewDate(2024, 5, 1, 8, 0))))

	require.NoError(t, r.Delete(context.Background(), 1))
	require.Equal(t, 0, store.Len())
	r.Wait()

	require.Equal(t, []int64{1}, gw.deletes)
	require.Equal(t, MsgDeleted, notices.last(t).Message)
}

func TestDeleteFailureKeepsLocalDeleteAndCanRevert(t *testing.T) {
	gw := &fakeGateway{deleteErr: &remote.SyncError{Kind: remote.Unreachable, Op: remote.ActionDelete}}
	r, store, notices := newTestReconciler(gw)
	older := seed(1, core.Expense, 1000, "Makanan", core.NewDate(2024, 5, 1, 8, 0))
	newer := seed(2, core.Income, 5000, "Gaji", core.NewDate(2024, 5, 3, 8, 0))
	store.ReplaceAll([]core.Transaction{older, newer})

	require.NoError(t, r.Delete(context.Background(), 2))
	r.Wait()

	require.Equal(t, 1, store.Len())
	require.Equal(t, MsgDeletedPending, notices.last(t).Message)
	pending := r.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, PendingDelete, pending[0].Op)

	require.NoError(t, r.Revert(2))
	snap := store.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, int64(2), snap[0].ID, "restored record goes back on top")
	require.Empty(t, r.Pending())
}

func TestRevertLeavesOtherRecordsInPlace(t *testing.T) {
	gw := &fakeGateway{deleteErr: &remote.SyncError{Kind: remote.Unreachable, Op: remote.ActionDelete}}
	r, store, _ := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(1, core.Expense, 1000, "Makanan", core.NewDate(2024, 5, 1, 8, 0))))
	require.NoError(t, store.Upsert(seed(2, core.Expense, 2000, "Belanja", core.NewDate(2024, 5, 3, 8, 0))))
	// Back-dated entry added last sits on top until the next refresh.
	require.NoError(t, store.Upsert(seed(3, core.Expense, 3000, "Hiburan", core.NewDate(2024, 4, 20, 8, 0))))

	require.NoError(t, r.Delete(context.Background(), 2))
	r.Wait()
	require.NoError(t, r.Revert(2))

	require.Equal(t, []int64{2, 3, 1}, ids(store.Snapshot()))
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

func gatedGateway(amounts ...int64) *fakeGateway {
	gw := &fakeGateway{gates: make(map[int64]chan error)}
	for _, a := range amounts {
		gw.gates[a] = make(chan error, 1)
	}
	return gw
}

func TestStaleEditFailureDoesNotOverrideNewerEdit(t *testing.T) {
	gw := gatedGateway(1000, 5000)
	r, store, notices := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(1, core.Expense, 500, "Makanan", core.NewDate(2024, 5, 1, 8, 0))))

	_, err := r.Submit(context.Background(), Draft{EditingID: 1, Type: core.Expense, Amount: "1000", Category: "Makanan", Day: "2024-05-01"})
	require.NoError(t, err)
	newer, err := r.Submit(context.Background(), Draft{EditingID: 1, Type: core.Expense, Amount: "5000", Category: "Makanan", Day: "2024-05-01"})
	require.NoError(t, err)

	gw.gates[5000] <- nil
	gw.gates[1000] <- &remote.SyncError{Kind: remote.Unreachable, Op: remote.ActionAddTransaction}
	r.Wait()

	require.Empty(t, r.Pending(), "failure of the older edit is superseded")
	for _, n := range notices.list {
		require.NotEqual(t, NoticeWarning, n.Level)
	}

	gw.mu.Lock()
	gw.fetchList = []core.Transaction{newer}
	gw.mu.Unlock()
	require.NoError(t, r.Refresh(context.Background()))

	got, ok := store.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(5000), got.Amount.Amount)
}

func TestStaleEditSuccessKeepsNewerFailurePending(t *testing.T) {
	gw := gatedGateway(1000, 5000)
	r, store, notices := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(1, core.Expense, 500, "Makanan", core.NewDate(2024, 5, 1, 8, 0))))

	older, err := r.Submit(context.Background(), Draft{EditingID: 1, Type: core.Expense, Amount: "1000", Category: "Makanan", Day: "2024-05-01"})
	require.NoError(t, err)
	_, err = r.Submit(context.Background(), Draft{EditingID: 1, Type: core.Expense, Amount: "5000", Category: "Makanan", Day: "2024-05-01"})
	require.NoError(t, err)

	gw.gates[5000] <- &remote.SyncError{Kind: remote.Unreachable, Op: remote.ActionAddTransaction}
	gw.gates[1000] <- nil
	r.Wait()

	pending := r.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, int64(5000), pending[0].Record.Amount.Amount)
	require.Equal(t, MsgSavedPending, notices.last(t).Message)

	gw.mu.Lock()
	gw.fetchList = []core.Transaction{older}
	gw.mu.Unlock()
	require.NoError(t, r.Refresh(context.Background()))

	got, ok := store.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(5000), got.Amount.Amount)
}

func TestRefreshKeepsInFlightEdit(t *testing.T) {
	gw := gatedGateway(5000)
	r, store, _ := newTestReconciler(gw)
	stale := seed(1, core.Expense, 500, "Makanan", core.NewDate(2024, 5, 1, 8, 0))
	require.NoError(t, store.Upsert(stale))

	_, err := r.Submit(context.Background(), Draft{EditingID: 1, Type: core.Expense, Amount: "5000", Category: "Makanan", Day: "2024-05-01"})
	require.NoError(t, err)

	gw.mu.Lock()
	gw.fetchList = []core.Transaction{stale}
	gw.mu.Unlock()
	require.NoError(t, r.Refresh(context.Background()))

	got, ok := store.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(5000), got.Amount.Amount)

	gw.gates[5000] <- nil
	r.Wait()
	require.Empty(t, r.Pending())
}

func TestRevertWithoutPendingDelete(t *testing.T) {
	r, _, _ := newTestReconciler(&fakeGateway{})
	require.ErrorIs(t, r.Revert(5), ErrNotPending)
}

func TestRefreshReplacesStore(t *testing.T) {
	gw := &fakeGateway{fetchList: []core.Transaction{
		seed(1, core.Expense, 1000, "Makanan", core.NewDate(2024, 5, 1, 8, 0)),
		seed(2, core.Income, 5000, "Gaji", core.NewDate(2024, 5, 3, 8, 0)),
	}}
	r, store, _ := newTestReconciler(gw)
	require.NoError(t, store.Upsert(seed(9, core.Expense, 10, "Amal", core.NewDate(2024, 4, 1, 8, 0))))

	require.NoError(t, r.Refresh(context.Background()))
	snap := store.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, int64(2), snap[0].ID)
}

func TestRefreshFailureLeavesStoreUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		notices int
		msg     string
	}{
		{"unreachable", &remote.SyncError{Kind: remote.Unreachable}, 1, MsgLoadFailed},
		{"malformed", &remote.SyncError{Kind: remote.MalformedResponse, Message: "Respon server tidak valid."}, 1, "Respon server tidak valid."},
		{"application", &remote.SyncError{Kind: remote.Application, Message: "Akun tidak ditemukan"}, 1, "Akun tidak ditemukan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{fetchErr: tt.err}
			r, store, notices := newTestReconciler(gw)
			before := seed(3, core.Expense, 700, "Belanja", core.NewDate(2024, 5, 2, 9, 0))
			require.NoError(t, store.Upsert(before))

			require.Error(t, r.Refresh(context.Background()))
			require.Equal(t, []core.Transaction{before}, store.Snapshot())
			require.Equal(t, tt.notices, notices.len())
			if tt.notices > 0 {
				require.Equal(t, tt.msg, notices.last(t).Message)
			}
		})
	}
}

func TestRefreshKeepsPendingMutationsVisible(t *testing.T) {
	gw := &fakeGateway{
		upsertErr: &remote.SyncError{Kind: remote.Unreachable},
		deleteErr: &remote.SyncError{Kind: remote.Unreachable},
	}
	r, store, _ := newTestReconciler(gw)
	gone := seed(1, core.Expense, 1000, "Makanan", core.NewDate(2024, 5, 1, 8, 0))
	require.NoError(t, store.Upsert(gone))

	local, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "3000", Category: "Hiburan", Day: "2024-05-10"})
	require.NoError(t, err)
	require.NoError(t, r.Delete(context.Background(), 1))
	r.Wait()

	gw.mu.Lock()
	gw.fetchList = []core.Transaction{gone, seed(2, core.Income, 9000, "Gaji", core.NewDate(2024, 5, 2, 8, 0))}
	gw.mu.Unlock()

	require.NoError(t, r.Refresh(context.Background()))
	_, ok := store.Get(local.ID)
	require.True(t, ok, "pending upsert survives refresh")
	_, ok = store.Get(1)
	require.False(t, ok, "pending delete stays deleted")
	require.Equal(t, 2, store.Len())
}

func TestRefreshWithoutSession(t *testing.T) {
	r := NewReconciler(&fakeGateway{}, ledger.New(""))
	require.ErrorIs(t, r.Refresh(context.Background()), ErrNoSession)
}

func TestClearForgetsPending(t *testing.T) {
	gw := &fakeGateway{upsertErr: &remote.SyncError{Kind: remote.Unreachable}}
	r, _, _ := newTestReconciler(gw)
	_, err := r.Submit(context.Background(), Draft{Type: core.Expense, Amount: "1000", Category: "Makanan"})
	require.NoError(t, err)
	r.Wait()
	require.Len(t, r.Pending(), 1)

	r.Clear()
	require.Empty(t, r.Pending())
}
