// Package ledger holds the local snapshot of one owner's transactions.
//
// The store is the single shared mutable resource of the client. Mutations
// come from the user event stream and from remote completion handlers running
// on their own goroutines, so every access goes through the mutex.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"cashflow/internal/core"
)

// ErrOwnerMismatch is returned when a record of another owner is upserted.
var ErrOwnerMismatch = errors.New("transaction belongs to a different owner")

// Listener receives the snapshot after every mutation.
type Listener func(snapshot []core.Transaction)

type Store struct {
	mu        sync.RWMutex
	owner     string
	items     []core.Transaction
	listeners []Listener
}

// New returns an empty store bound to owner. An empty owner accepts any
// record, which only tests rely on.
func New(owner string) *Store {
	return &Store{owner: owner}
}

// Owner returns the email the store is partitioned by.
func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Reset drops every record and rebinds the store to owner.
func (s *Store) Reset(owner string) {
	s.mu.Lock()
	s.owner = owner
	s.items = nil
	s.mu.Unlock()
	s.notify()
}

// ReplaceAll swaps the whole snapshot, as after a successful fetch. Records of
// another owner are dropped and the result is sorted by date, newest first.
// Duplicate ids keep the first occurrence.
func (s *Store) ReplaceAll(list []core.Transaction) {
	items := make([]core.Transaction, 0, len(list))
	seen := make(map[int64]struct{}, len(list))

	s.mu.Lock()
	for _, tx := range list {
		if !s.accepts(tx) {
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		items = append(items, tx)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date.Time)
	})
	s.items = items
	s.mu.Unlock()

	s.notify()
}

// Upsert removes any record with the same id and puts tx at the front. The
// rest of the list is not re-sorted, so a back-dated record stays on top
// until the next ReplaceAll.
func (s *Store) Upsert(tx core.Transaction) error {
	s.mu.Lock()
	if !s.accepts(tx) {
		s.mu.Unlock()
		return fmt.Errorf("upsert %d for %q: %w", tx.ID, tx.Owner, ErrOwnerMismatch)
	}
	items := make([]core.Transaction, 0, len(s.items)+1)
	items = append(items, tx)
	for _, cur := range s.items {
		if cur.ID != tx.ID {
			items = append(items, cur)
		}
	}
	s.items = items
	s.mu.Unlock()

	s.notify()
	return nil
}

// Remove filters out the record with the given id. It reports whether a
// record was removed; an absent id is a no-op.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	items := make([]core.Transaction, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	s.items = items
	s.mu.Unlock()

	s.notify()
	return true
}

// Restore reinstates a snapshot captured earlier, order included.
func (s *Store) Restore(snapshot []core.Transaction) {
	s.mu.Lock()
	s.items = append([]core.Transaction(nil), snapshot...)
	s.mu.Unlock()
	s.notify()
}

// Get looks a record up by id.
func (s *Store) Get(id int64) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx], true
	}
	return core.Transaction{}, false
}

// Snapshot returns a copy of the ordered records.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Subscribe registers fn to run after every mutation. Listeners run on the
// goroutine that mutated the store, outside the lock.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	snapshot := append([]core.Transaction(nil), s.items...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *Store) accepts(tx core.Transaction) bool {
	return s.owner == "" || tx.Owner == s.owner
}

func (s *Store) indexOf(id int64) int {
	for i, tx := range s.items {
		if tx.ID == id {
			return i
		}
	}
	return -1
}
