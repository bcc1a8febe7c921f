// Package worker applies transaction change events to a mirror repository,
// typically a spreadsheet kept in step with the SQLite store.
package worker

import (
	"context"
	"errors"
	"fmt"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/sheets"
)

// MirrorWorker copies changes from source to mirror. A nil mirror turns it
// into an event logger.
type MirrorWorker struct {
	source sheets.TransactionRepository
	mirror sheets.TransactionRepository
	logger *applog.Logger
}

func NewMirrorWorker(source, mirror sheets.TransactionRepository, logger *applog.Logger) *MirrorWorker {
	return &MirrorWorker{source: source, mirror: mirror, logger: logger}
}

// HandleEvent is an amqp.Client.Consume handler. An error requeues the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev amqp.Event) error {
	w.logger.InfoContext(ctx, "Processing change event",
		applog.FieldAction, ev.Kind,
		applog.FieldOwner, ev.Owner,
		applog.FieldTxID, ev.ID)

	if w.mirror == nil {
		return nil
	}

	switch ev.Kind {
	case amqp.EventUpserted:
		return w.copyOne(ctx, ev.Owner, ev.ID)
	case amqp.EventDeleted:
		err := w.mirror.Delete(ctx, ev.Owner, ev.ID)
		if err != nil && !errors.Is(err, sheets.ErrNotFound) {
			return fmt.Errorf("delete %d from mirror: %w", ev.ID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// copyOne mirrors the current source version of id. A record deleted since
// the event was published is skipped; its delete event follows.
func (w *MirrorWorker) copyOne(ctx context.Context, owner string, id int64) error {
	list, err := w.source.ListByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	for _, tx := range list {
		if tx.ID == id {
			if _, err := w.mirror.Upsert(ctx, tx); err != nil {
				return fmt.Errorf("upsert %d into mirror: %w", id, err)
			}
			return nil
		}
	}
	w.logger.WarnContext(ctx, "Transaction gone before mirroring", applog.FieldOwner, owner, applog.FieldTxID, id)
	return nil
}

// Resync makes the mirror hold exactly the source records of owner.
func (w *MirrorWorker) Resync(ctx context.Context, owner string) (int, error) {
	if w.mirror == nil {
		return 0, nil
	}
	src, err := w.source.ListByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("read source: %w", err)
	}
	dst, err := w.mirror.ListByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("read mirror: %w", err)
	}

	keep := make(map[int64]core.Transaction, len(src))
	for _, tx := range src {
		keep[tx.ID] = tx
	}
	changed := 0
	for _, tx := range dst {
		want, ok := keep[tx.ID]
		if !ok {
			if err := w.mirror.Delete(ctx, owner, tx.ID); err != nil && !errors.Is(err, sheets.ErrNotFound) {
				return changed, fmt.Errorf("delete %d from mirror: %w", tx.ID, err)
			}
			changed++
			continue
		}
		if sameRecord(want, tx) {
			delete(keep, tx.ID)
		}
	}
	for _, tx := range src {
		if _, pending := keep[tx.ID]; !pending {
			continue
		}
		if _, err := w.mirror.Upsert(ctx, tx); err != nil {
			return changed, fmt.Errorf("upsert %d into mirror: %w", tx.ID, err)
		}
		changed++
	}

	w.logger.InfoContext(ctx, "Mirror resynced", applog.FieldOwner, owner, applog.FieldCount, changed)
	return changed, nil
}

func sameRecord(a, b core.Transaction) bool {
	return a.ID == b.ID && a.Owner == b.Owner && a.Type == b.Type &&
		a.Amount == b.Amount && a.Category == b.Category &&
		a.Date.Equal(b.Date.Time) && a.Description == b.Description && a.Notes == b.Notes
}
