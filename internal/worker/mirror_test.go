package worker

import (
	"context"
	"errors"
	"io"
	"testing"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/sheets/memory"
)

const owner = "ani@example.com"

func record(id, amount int64) core.Transaction {
	return core.Transaction{
		ID: id, Owner: owner, Type: core.Expense,
		Amount: core.Money{Amount: amount}, Category: "Makanan",
		Date: core.NewDate(2024, 5, 1, 12, 0), Description: "Makan siang",
	}
}

func newWorker(t *testing.T) (*MirrorWorker, *memory.Store, *memory.Store) {
	t.Helper()
	src, dst := memory.New(), memory.New()
	logger := applog.New(applog.Config{Output: io.Discard})
	return NewMirrorWorker(src, dst, logger), src, dst
}

func TestHandleEvent_Upsert(t *testing.T) {
	w, src, dst := newWorker(t)
	ctx := context.Background()
	if _, err := src.Upsert(ctx, record(1, 100)); err != nil {
		t.Fatal(err)
	}

	if err := w.HandleEvent(ctx, amqp.NewUpsertedEvent(owner, 1, true)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	got, _ := dst.ListByOwner(ctx, owner)
	if len(got) != 1 || got[0].Amount.Amount != 100 {
		t.Fatalf("mirror = %+v", got)
	}

	// record vanished before the event was handled
	if err := w.HandleEvent(ctx, amqp.NewUpsertedEvent(owner, 2, true)); err != nil {
		t.Fatalf("missing source record should be skipped, got %v", err)
	}
}

func TestHandleEvent_Delete(t *testing.T) {
	w, _, dst := newWorker(t)
	ctx := context.Background()
	if _, err := dst.Upsert(ctx, record(1, 100)); err != nil {
		t.Fatal(err)
	}

	if err := w.HandleEvent(ctx, amqp.NewDeletedEvent(owner, 1)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewDeletedEvent(owner, 1)); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
	got, _ := dst.ListByOwner(ctx, owner)
	if len(got) != 0 {
		t.Fatalf("mirror = %+v", got)
	}
}

func TestHandleEvent_UnknownKindAndNoMirror(t *testing.T) {
	w, _, _ := newWorker(t)
	if err := w.HandleEvent(context.Background(), amqp.Event{Kind: "transaction.renamed"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}

	logOnly := NewMirrorWorker(memory.New(), nil, applog.New(applog.Config{Output: io.Discard}))
	if err := logOnly.HandleEvent(context.Background(), amqp.Event{Kind: "transaction.renamed"}); err != nil {
		t.Fatalf("log-only worker should accept everything, got %v", err)
	}
	if n, err := logOnly.Resync(context.Background(), owner); n != 0 || err != nil {
		t.Fatalf("Resync without mirror = %d, %v", n, err)
	}
}

type failingRepo struct{ *memory.Store }

func (failingRepo) ListByOwner(context.Context, string) ([]core.Transaction, error) {
	return nil, errors.New("sheet unavailable")
}

func TestHandleEvent_SourceError(t *testing.T) {
	w := NewMirrorWorker(failingRepo{memory.New()}, memory.New(), applog.New(applog.Config{Output: io.Discard}))
	if err := w.HandleEvent(context.Background(), amqp.NewUpsertedEvent(owner, 1, true)); err == nil {
		t.Fatal("expected source error to requeue")
	}
}

func TestResync(t *testing.T) {
	w, src, dst := newWorker(t)
	ctx := context.Background()

	for _, tx := range []core.Transaction{record(1, 100), record(2, 200), record(3, 300)} {
		if _, err := src.Upsert(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	// 1 is current, 2 is stale, 9 no longer exists
	for _, tx := range []core.Transaction{record(1, 100), record(2, 999), record(9, 1)} {
		if _, err := dst.Upsert(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	changed, err := w.Resync(ctx, owner)
	if err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if changed != 3 {
		t.Errorf("changed = %d, want 3", changed)
	}

	got, _ := dst.ListByOwner(ctx, owner)
	amounts := map[int64]int64{}
	for _, tx := range got {
		amounts[tx.ID] = tx.Amount.Amount
	}
	want := map[int64]int64{1: 100, 2: 200, 3: 300}
	if len(amounts) != len(want) {
		t.Fatalf("mirror = %v, want %v", amounts, want)
	}
	for id, a := range want {
		if amounts[id] != a {
			t.Errorf("mirror[%d] = %d, want %d", id, amounts[id], a)
		}
	}
}
