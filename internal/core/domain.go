package core

import (
	"errors"
	"strings"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

type (
	TxType string

	// Money is an amount in whole Rupiah. The dashboard never shows minor units.
	Money struct {
		Amount int64
	}

	// Transaction is the only persisted entity. ID is client generated (epoch
	// millis) unless the server assigned one.
	Transaction struct {
		ID          int64
		Owner       string // owner email, immutable
		Type        TxType // immutable once created
		Amount      Money
		Category    string
		Date        Date
		Description string
		Notes       string
	}

	// User is the active session. It has no id: the email is the partition key
	// of every transaction.
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("category does not belong to transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
)

// ParseTxType maps the wire value to a TxType.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TxType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TxType) String() string {
	return string(t)
}

func (m Money) Validate() error {
	if m.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims the free text fields and defaults a blank description to
// the category name.
func (t Transaction) Normalize() Transaction {
	t.Owner = strings.TrimSpace(t.Owner)
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	t.Notes = strings.TrimSpace(t.Notes)
	if t.Description == "" {
		t.Description = t.Category
	}
	return t
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !IsValidCategory(t.Type, t.Category) {
		return ErrInvalidCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (t Transaction) IsIncome() bool  { return t.Type == Income }
func (t Transaction) IsExpense() bool { return t.Type == Expense }
