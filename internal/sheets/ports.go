package sheets

import (
	"context"
	"errors"

	"cashflow/internal/core"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrNotFound     = errors.New("transaction not found")
)

// Ports for the server side persistence adapters.
type (
	// TransactionRepository stores transactions partitioned by owner email.
	TransactionRepository interface {
		// ListByOwner returns owner's transactions, newest first.
		ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error)
		// Upsert creates the record, or updates it when owner already has
		// one with the same id.
		Upsert(ctx context.Context, tx core.Transaction) (created bool, err error)
		// Delete removes owner's record id. Deleting a missing record
		// returns ErrNotFound.
		Delete(ctx context.Context, owner string, id int64) error
	}

	// StoredUser is a user record with its password hash.
	StoredUser struct {
		Name         string
		Email        string
		PasswordHash string
	}

	UserRepository interface {
		CreateUser(ctx context.Context, u StoredUser) error
		FindUser(ctx context.Context, email string) (StoredUser, error)
	}
)
