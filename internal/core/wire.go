package core

import (
	"encoding/json"
	"fmt"
)

// transactionJSON is the field layout shared by the remote API and local
// persistence.
type transactionJSON struct {
	ID          json.RawMessage `json:"id"`
	Owner       string          `json:"email"`
	Type        string          `json:"type"`
	Amount      Money           `json:"amount"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:          json.RawMessage(fmt.Sprintf("%d", t.ID)),
		Owner:       t.Owner,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Category:    t.Category,
		Date:        t.Date,
		Description: t.Description,
		Notes:       t.Notes,
	})
}

// UnmarshalJSON is lenient on id and amount types but strict on the
// transaction type.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var id int64
	if len(raw.ID) > 0 {
		v, err := flexInt(raw.ID)
		if err != nil {
			return fmt.Errorf("invalid id %s: %w", string(raw.ID), err)
		}
		id = v
	}
	typ, err := ParseTxType(raw.Type)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", id, err)
	}
	*t = Transaction{
		ID:          id,
		Owner:       raw.Owner,
		Type:        typ,
		Amount:      raw.Amount,
		Category:    raw.Category,
		Date:        raw.Date,
		Description: raw.Description,
		Notes:       raw.Notes,
	}
	return nil
}
