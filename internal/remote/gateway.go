// Package remote talks to the single-endpoint finance API.
//
// Every call is one request: no retries, no backoff. Outcomes are classified
// into SyncError kinds so callers can pick a recovery policy per operation.
package remote

import (
	"context"

	"cashflow/internal/core"
)

// Action names as the API expects them in the request body or query string.
const (
	ActionLogin           = "login"
	ActionRegister        = "register"
	ActionGetTransactions = "getTransactions"
	ActionAddTransaction  = "addTransaction"
	ActionDelete          = "deleteTransaction"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type (
	// Gateway is the outbound port of the reconciliation engine.
	Gateway interface {
		FetchAll(ctx context.Context, owner string) ([]core.Transaction, error)
		UpsertRemote(ctx context.Context, tx core.Transaction) (Ack, error)
		DeleteRemote(ctx context.Context, id int64, owner string) (Ack, error)
		Authenticate(ctx context.Context, action string, creds Credentials) (AuthResult, error)
	}

	// Ack is a write acknowledgement. Degraded means the server answered
	// with something that was not JSON and the write is assumed to have
	// landed.
	Ack struct {
		Degraded bool
		Raw      string
	}

	Credentials struct {
		Name     string
		Email    string
		Password string
	}

	// AuthResult carries the user record for a login; a register returns a
	// bare success with a nil User.
	AuthResult struct {
		User *core.User
	}
)
