package remote

import (
	"encoding/json"

	"cashflow/internal/core"
)

// Envelope is the response shape of every action.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type (
	LoginRequest struct {
		Action   string `json:"action"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	RegisterRequest struct {
		Action   string `json:"action"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// UpsertRequest creates or updates: the server decides by whether id
	// already exists for the owner.
	UpsertRequest struct {
		Action      string `json:"action"`
		Email       string `json:"email"`
		ID          int64  `json:"id"`
		Type        string `json:"type"`
		Amount      int64  `json:"amount"`
		Category    string `json:"category"`
		Date        string `json:"date"`
		Description string `json:"description"`
		Notes       string `json:"notes"`
	}

	DeleteRequest struct {
		Action string `json:"action"`
		ID     int64  `json:"id"`
		Email  string `json:"email"`
	}
)

// NewUpsertRequest builds the addTransaction payload for tx.
func NewUpsertRequest(tx core.Transaction) UpsertRequest {
	return UpsertRequest{
		Action:      ActionAddTransaction,
		Email:       tx.Owner,
		ID:          tx.ID,
		Type:        tx.Type.String(),
		Amount:      tx.Amount.Amount,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Description: tx.Description,
		Notes:       tx.Notes,
	}
}

// Transaction converts the payload back to the domain type.
func (r UpsertRequest) Transaction() (core.Transaction, error) {
	typ, err := core.ParseTxType(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          r.ID,
		Owner:       r.Email,
		Type:        typ,
		Amount:      core.Money{Amount: r.Amount},
		Category:    r.Category,
		Date:        date,
		Description: r.Description,
		Notes:       r.Notes,
	}, nil
}
