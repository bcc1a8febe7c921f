package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cashflow/internal/core"
	"cashflow/internal/sheets"
)

// Store keeps users and transactions in process memory.
type Store struct {
	mu    sync.Mutex
	users map[string]sheets.StoredUser
	txs   map[string][]core.Transaction // by owner
}

var (
	_ sheets.TransactionRepository = (*Store)(nil)
	_ sheets.UserRepository        = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users: make(map[string]sheets.StoredUser),
		txs:   make(map[string][]core.Transaction),
	}
}

func (s *Store) ListByOwner(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := append([]core.Transaction(nil), s.txs[key(owner)]...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) Upsert(_ context.Context, tx core.Transaction) (bool, error) {
	if err := tx.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(tx.Owner)
	list := s.txs[k]
	for i := range list {
		if list[i].ID == tx.ID {
			list[i] = tx
			return false, nil
		}
	}
	s.txs[k] = append(list, tx)
	return true, nil
}

func (s *Store) Delete(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(owner)
	list := s.txs[k]
	for i := range list {
		if list[i].ID == id {
			s.txs[k] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return sheets.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, u sheets.StoredUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(u.Email)
	if _, ok := s.users[k]; ok {
		return sheets.ErrUserExists
	}
	s.users[k] = u
	return nil
}

func (s *Store) FindUser(_ context.Context, email string) (sheets.StoredUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[key(email)]
	if !ok {
		return sheets.StoredUser{}, sheets.ErrUserNotFound
	}
	return u, nil
}

// emails compare case-insensitively
func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
