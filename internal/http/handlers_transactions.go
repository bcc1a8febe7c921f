package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/remote"
	"cashflow/internal/sheets"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, email string) {
	ctx := r.Context()
	owner := strings.TrimSpace(email)
	if owner == "" {
		writeError(w, MsgMissingEmail)
		return
	}

	key := cacheKey(owner)
	if list, ok := s.listCache.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Transaction list served from cache", applog.FieldOwner, owner, applog.FieldCount, len(list))
		writeSuccess(w, list)
		return
	}

	list, err := s.txs.ListByOwner(ctx, owner)
	if err != nil {
		s.events.LogError(ctx, "Failed to list transactions", err, applog.ComponentHTTP, applog.OpList, nil)
		writeError(w, MsgServerError)
		return
	}
	if list == nil {
		list = []core.Transaction{}
	}
	s.listCache.Set(key, list)
	writeSuccess(w, list)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()

	var req remote.UpsertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, MsgInvalidBody)
		return
	}
	tx, err := req.Transaction()
	if err == nil {
		tx = tx.Normalize()
		err = tx.Validate()
	}
	if err == nil && tx.ID <= 0 {
		err = errors.New("missing id")
	}
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Rejected transaction", applog.FieldTxID, req.ID, applog.FieldError, err)
		writeError(w, "Data transaksi tidak valid: "+err.Error())
		return
	}

	created, err := s.txs.Upsert(ctx, tx)
	if err != nil {
		s.events.LogError(ctx, "Failed to save transaction", err, applog.ComponentHTTP, applog.OpCreate,
			applog.NewFields().WithTransaction(tx.ID, tx.Owner, tx.Type.String(), tx.Amount.Amount, tx.Category))
		writeError(w, MsgServerError)
		return
	}
	s.listCache.Delete(cacheKey(tx.Owner))
	s.events.LogTransactionSaved(ctx, tx.ID, tx.Owner, tx.Type.String(), tx.Amount.Amount, tx.Category, created)
	s.publish(ctx, amqp.NewUpsertedEvent(tx.Owner, tx.ID, created))

	writeSuccess(w, map[string]any{"id": tx.ID, "created": created})
}

// handleDelete treats a missing record as deleted so a retried delete
// succeeds.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var req remote.DeleteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, MsgInvalidBody)
		return
	}
	owner := strings.TrimSpace(req.Email)
	if owner == "" || req.ID <= 0 {
		writeError(w, MsgIncomplete)
		return
	}

	err := s.txs.Delete(ctx, owner, req.ID)
	switch {
	case errors.Is(err, sheets.ErrNotFound):
		logger.InfoContext(ctx, "Delete of unknown transaction", applog.FieldOwner, owner, applog.FieldTxID, req.ID)
		writeSuccess(w, nil)
		return
	case err != nil:
		s.events.LogError(ctx, "Failed to delete transaction", err, applog.ComponentHTTP, applog.OpDelete,
			applog.NewFields().WithTransaction(req.ID, owner, "", 0, ""))
		writeError(w, MsgServerError)
		return
	}

	s.listCache.Delete(cacheKey(owner))
	logger.InfoContext(ctx, "Transaction deleted", applog.FieldOwner, owner, applog.FieldTxID, req.ID)
	s.publish(ctx, amqp.NewDeletedEvent(owner, req.ID))
	writeSuccess(w, nil)
}

// publish is best effort: the write already happened.
func (s *Server) publish(ctx context.Context, ev amqp.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(context.WithoutCancel(ctx), ev); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to publish change event",
			applog.FieldTxID, ev.ID,
			applog.FieldError, err)
	}
}
