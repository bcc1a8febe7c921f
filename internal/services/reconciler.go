package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	applog "cashflow/internal/log"
	"cashflow/internal/remote"
)

// User facing notice texts.
const (
	MsgSaved          = "Tersimpan"
	MsgUpdated        = "Data diperbarui"
	MsgDeleted        = "Data berhasil dihapus"
	MsgSavedPending   = "Data tersimpan di perangkat (Sync pending)"
	MsgDeletedPending = "Data dihapus di perangkat (Sync pending)"
	MsgZeroAmount     = "Jumlah tidak boleh nol"
	MsgLoadFailed     = "Gagal memuat riwayat. Cek internet."
)

var (
	ErrNoSession  = errors.New("no active session")
	ErrNotPending = errors.New("no pending delete for transaction")
)

type (
	NoticeLevel int

	// Notice is a toast for the presentation layer.
	Notice struct {
		Level   NoticeLevel
		Message string
		Detail  string
	}

	Notifier func(Notice)

	Clock func() time.Time

	// IDGenerator yields the id of a new transaction created at now.
	IDGenerator func(now time.Time) int64

	PendingOp string

	// PendingSync is a local mutation the remote store has not confirmed.
	PendingSync struct {
		ID     int64
		Op     PendingOp
		Since  time.Time
		Reason string
		// Record is the upserted record, or the record removed by a delete.
		Record core.Transaction
	}

	// Draft is the entry form content. Amount and Day are raw input.
	Draft struct {
		EditingID   int64
		Type        core.TxType
		Amount      string
		Category    string
		Day         string
		Description string
		Notes       string
	}

	// ValidationError rejects a draft before any mutation.
	ValidationError struct {
		Message string
		Err     error
	}
)

const (
	NoticeSuccess NoticeLevel = iota
	NoticeInfo
	NoticeWarning
	NoticeError
)

const (
	PendingUpsert PendingOp = "upsert"
	PendingDelete PendingOp = "delete"
)

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

// EpochMillis is the default IDGenerator.
func EpochMillis(now time.Time) int64 { return now.UnixMilli() }

// Reconciler applies mutations to the local store first and settles them
// against the remote gateway in the background. A failed remote write keeps
// the local state and marks the id as pending.
type Reconciler struct {
	gateway remote.Gateway
	store   *ledger.Store
	now     Clock
	newID   IDGenerator
	notify  Notifier
	logger  *applog.Logger

	// applyMu orders local mutations with the sequence numbers they get.
	applyMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]PendingSync
	// latest holds the sequence number of the newest in-flight mutation per
	// id; settlements carrying an older number are stale.
	latest map[int64]uint64
	seq    uint64

	wg      sync.WaitGroup
	refresh singleflight.Group
}

type Option func(*Reconciler)

func WithClock(c Clock) Option             { return func(r *Reconciler) { r.now = c } }
func WithIDGenerator(g IDGenerator) Option { return func(r *Reconciler) { r.newID = g } }
func WithNotifier(n Notifier) Option       { return func(r *Reconciler) { r.notify = n } }
func WithLogger(l *applog.Logger) Option   { return func(r *Reconciler) { r.logger = l } }

func NewReconciler(gateway remote.Gateway, store *ledger.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		gateway: gateway,
		store:   store,
		now:     time.Now,
		newID:   EpochMillis,
		notify:  func(Notice) {},
		pending: make(map[int64]PendingSync),
		latest:  make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentSync})
	}
	return r
}

// Candidate turns a draft into the record Submit would store, without
// touching the store.
func (r *Reconciler) Candidate(d Draft) (core.Transaction, error) {
	owner := r.store.Owner()
	if owner == "" {
		return core.Transaction{}, ErrNoSession
	}

	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return core.Transaction{}, &ValidationError{Message: MsgZeroAmount, Err: err}
	}

	now := r.now()
	typ := d.Type
	id := d.EditingID
	if id != 0 {
		if existing, ok := r.store.Get(id); ok {
			typ = existing.Type
		}
	} else {
		id = r.uniqueID(now)
	}

	date := core.Date{Time: now.In(time.Local).Truncate(time.Minute)}
	if strings.TrimSpace(d.Day) != "" {
		if date, err = core.CombineDateAndClock(d.Day, now); err != nil {
			return core.Transaction{}, &ValidationError{Message: "Tanggal tidak valid", Err: err}
		}
	}

	tx := core.Transaction{
		ID:          id,
		Owner:       owner,
		Type:        typ,
		Amount:      core.Money{Amount: amount},
		Category:    d.Category,
		Date:        date,
		Description: d.Description,
		Notes:       d.Notes,
	}.Normalize()

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Message: validationMessage(err), Err: err}
	}
	return tx, nil
}

// Submit creates or updates a transaction. The store changes before this
// returns; the remote write completes in the background.
func (r *Reconciler) Submit(ctx context.Context, d Draft) (core.Transaction, error) {
	tx, err := r.Candidate(d)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			r.notify(Notice{Level: NoticeWarning, Message: ve.Message})
		}
		return core.Transaction{}, err
	}

	editing := d.EditingID != 0
	r.applyMu.Lock()
	if err := r.store.Upsert(tx); err != nil {
		r.applyMu.Unlock()
		return core.Transaction{}, fmt.Errorf("apply local upsert: %w", err)
	}
	seq := r.begin(tx.ID)
	r.applyMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.settleUpsert(context.WithoutCancel(ctx), tx, editing, seq)
	}()
	return tx, nil
}

func (r *Reconciler) settleUpsert(ctx context.Context, tx core.Transaction, editing bool, seq uint64) {
	ack, err := r.gateway.UpsertRemote(ctx, tx)
	if err != nil {
		if !r.markPending(seq, PendingSync{ID: tx.ID, Op: PendingUpsert, Since: r.now(), Reason: remote.UserMessage(err), Record: tx}) {
			r.logger.InfoContext(ctx, "Dropping failure of a superseded upsert", applog.FieldTxID, tx.ID, applog.FieldError, err)
			return
		}
		r.logger.WarnContext(ctx, "Remote upsert failed, keeping local copy",
			applog.FieldTxID, tx.ID,
			applog.FieldErrorKind, remote.KindOf(err).String(),
			applog.FieldError, err)
		r.notify(Notice{Level: NoticeWarning, Message: MsgSavedPending, Detail: detailFor(err)})
		return
	}

	if !r.settle(tx.ID, seq) {
		r.logger.DebugContext(ctx, "Superseded upsert confirmed", applog.FieldTxID, tx.ID)
		return
	}
	if ack.Degraded {
		r.logger.WarnContext(ctx, "Remote upsert answered without JSON, assuming success", applog.FieldTxID, tx.ID)
	}
	msg := MsgSaved
	if editing {
		msg = MsgUpdated
	}
	r.notify(Notice{Level: NoticeSuccess, Message: msg})
}

// Delete removes id locally and asks the remote store to do the same. A
// failed remote delete keeps the local removal and records the removed
// record so Revert can bring it back. Deleting an unknown id does nothing.
func (r *Reconciler) Delete(ctx context.Context, id int64) error {
	owner := r.store.Owner()
	if owner == "" {
		return ErrNoSession
	}
	r.applyMu.Lock()
	existing, ok := r.store.Get(id)
	if !ok {
		r.applyMu.Unlock()
		return nil
	}
	r.store.Remove(id)
	seq := r.begin(id)
	r.applyMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.settleDelete(context.WithoutCancel(ctx), existing, seq)
	}()
	return nil
}

func (r *Reconciler) settleDelete(ctx context.Context, removed core.Transaction, seq uint64) {
	ack, err := r.gateway.DeleteRemote(ctx, removed.ID, removed.Owner)
	if err != nil {
		if !r.markPending(seq, PendingSync{ID: removed.ID, Op: PendingDelete, Since: r.now(), Reason: remote.UserMessage(err), Record: removed}) {
			r.logger.InfoContext(ctx, "Dropping failure of a superseded delete", applog.FieldTxID, removed.ID, applog.FieldError, err)
			return
		}
		r.logger.WarnContext(ctx, "Remote delete failed, keeping local delete",
			applog.FieldTxID, removed.ID,
			applog.FieldErrorKind, remote.KindOf(err).String(),
			applog.FieldError, err)
		r.notify(Notice{Level: NoticeWarning, Message: MsgDeletedPending, Detail: detailFor(err)})
		return
	}

	if !r.settle(removed.ID, seq) {
		r.logger.DebugContext(ctx, "Superseded delete confirmed", applog.FieldTxID, removed.ID)
		return
	}
	if ack.Degraded {
		r.logger.WarnContext(ctx, "Remote delete answered without JSON, assuming success", applog.FieldTxID, removed.ID)
	}
	r.notify(Notice{Level: NoticeSuccess, Message: MsgDeleted})
}

// Revert restores the record removed by a pending delete.
func (r *Reconciler) Revert(id int64) error {
	r.mu.Lock()
	p, ok := r.pending[id]
	if ok && p.Op == PendingDelete {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok || p.Op != PendingDelete {
		return fmt.Errorf("%w: %d", ErrNotPending, id)
	}

	if _, exists := r.store.Get(id); exists {
		return nil
	}
	if err := r.store.Upsert(p.Record); err != nil {
		return fmt.Errorf("restore %d: %w", id, err)
	}
	return nil
}

// Refresh replaces the store with the remote list. On any failure the store
// is left as it was. Concurrent calls share one fetch.
func (r *Reconciler) Refresh(ctx context.Context) error {
	owner := r.store.Owner()
	if owner == "" {
		return ErrNoSession
	}

	_, err, _ := r.refresh.Do(owner, func() (any, error) {
		list, err := r.gateway.FetchAll(ctx, owner)
		if err != nil {
			return nil, err
		}
		if r.store.Owner() != owner {
			return nil, nil
		}
		r.store.ReplaceAll(r.overlayPending(list))
		r.logger.InfoContext(ctx, "Transactions refreshed", applog.FieldOwner, owner, applog.FieldCount, len(list))
		return nil, nil
	})
	if err != nil {
		r.reportRefreshError(ctx, err)
	}
	return err
}

func (r *Reconciler) reportRefreshError(ctx context.Context, err error) {
	switch remote.KindOf(err) {
	case remote.MalformedResponse:
		r.logger.WarnContext(ctx, "Malformed transaction list, keeping local data", applog.FieldError, err)
		r.notify(Notice{Level: NoticeWarning, Message: remote.UserMessage(err)})
	case remote.Application:
		r.logger.WarnContext(ctx, "Server rejected transaction list", applog.FieldError, err)
		r.notify(Notice{Level: NoticeError, Message: remote.UserMessage(err)})
	default:
		r.logger.WarnContext(ctx, "Transaction list unreachable, keeping local data", applog.FieldError, err)
		r.notify(Notice{Level: NoticeWarning, Message: MsgLoadFailed})
	}
}

// overlayPending keeps unconfirmed local mutations visible on top of a fresh
// remote list. Records with a mutation still in flight keep their local state.
func (r *Reconciler) overlayPending(list []core.Transaction) []core.Transaction {
	r.mu.Lock()
	pending := make(map[int64]PendingSync, len(r.pending))
	for id, p := range r.pending {
		pending[id] = p
	}
	inflight := make([]int64, 0, len(r.latest))
	for id := range r.latest {
		inflight = append(inflight, id)
	}
	r.mu.Unlock()
	if len(pending) == 0 && len(inflight) == 0 {
		return list
	}

	local := make(map[int64]*core.Transaction, len(inflight))
	for _, id := range inflight {
		if tx, ok := r.store.Get(id); ok {
			local[id] = &tx
		} else {
			local[id] = nil
		}
	}

	out := make([]core.Transaction, 0, len(list)+len(pending)+len(local))
	for id, tx := range local {
		if tx != nil {
			out = append(out, *tx)
		}
		delete(pending, id)
	}
	for _, p := range pending {
		if p.Op == PendingUpsert {
			out = append(out, p.Record)
		}
	}
	for _, tx := range list {
		if _, ok := local[tx.ID]; ok {
			continue
		}
		if _, ok := pending[tx.ID]; ok {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Pending lists unconfirmed mutations, oldest first.
func (r *Reconciler) Pending() []PendingSync {
	r.mu.Lock()
	out := make([]PendingSync, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].ID < out[j].ID
		}
		return out[i].Since.Before(out[j].Since)
	})
	return out
}

// Clear forgets all pending entries, used when the session ends.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.pending = make(map[int64]PendingSync)
	r.latest = make(map[int64]uint64)
	r.mu.Unlock()
}

// Wait blocks until every background remote call has settled.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// begin numbers a new mutation of id, superseding any still in flight.
func (r *Reconciler) begin(id int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.latest[id] = r.seq
	return r.seq
}

// markPending records a failed mutation unless a newer one of the same id
// was applied since.
func (r *Reconciler) markPending(seq uint64, p PendingSync) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest[p.ID] != seq {
		return false
	}
	delete(r.latest, p.ID)
	r.pending[p.ID] = p
	return true
}

// settle clears the pending entry of id after a confirmed mutation, unless a
// newer mutation of the same id was applied since.
func (r *Reconciler) settle(id int64, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest[id] != seq {
		return false
	}
	delete(r.latest, id)
	delete(r.pending, id)
	return true
}

// uniqueID avoids handing out an id already in the store when two entries
// land in the same millisecond.
func (r *Reconciler) uniqueID(now time.Time) int64 {
	id := r.newID(now)
	for {
		if _, taken := r.store.Get(id); !taken {
			return id
		}
		id++
	}
}

func detailFor(err error) string {
	if remote.IsApplication(err) {
		return remote.UserMessage(err)
	}
	return ""
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return MsgZeroAmount
	case errors.Is(err, core.ErrInvalidCategory):
		return "Kategori tidak sesuai dengan tipe transaksi"
	case errors.Is(err, core.ErrInvalidType):
		return "Tipe transaksi tidak valid"
	case errors.Is(err, core.ErrDescriptionLong):
		return "Deskripsi terlalu panjang"
	default:
		return err.Error()
	}
}
