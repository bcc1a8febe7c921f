package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Keys of the client preference store.
const (
	KeyUser  = "user"
	KeyTheme = "theme"
)

// Prefs is the client key-value area that survives restarts.
type Prefs interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type MemoryPrefs struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryPrefs() *MemoryPrefs {
	return &MemoryPrefs{data: make(map[string]string)}
}

func (p *MemoryPrefs) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.data[key]
	return v, ok, nil
}

func (p *MemoryPrefs) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = value
	return nil
}

func (p *MemoryPrefs) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}

// SQLitePrefs keeps preferences in the kv table.
type SQLitePrefs struct {
	db *sql.DB
}

func NewSQLitePrefs(dbPath string) (*SQLitePrefs, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLitePrefs{db: db}, nil
}

func (p *SQLitePrefs) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref %s: %w", key, err)
	}
	return v, true, nil
}

func (p *SQLitePrefs) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set pref %s: %w", key, err)
	}
	return nil
}

func (p *SQLitePrefs) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete pref %s: %w", key, err)
	}
	return nil
}

func (p *SQLitePrefs) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
