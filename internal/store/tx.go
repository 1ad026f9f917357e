package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tx is one atomic unit of work. All state accessors live on Tx so that
// every read and write of an entry point shares the same transaction.
//
// A Tx is only valid inside the Atomic or View callback that created it.
type Tx struct {
	ctx     context.Context
	tx      *sql.Tx
	emitted []emitted
}

type emitted struct {
	kind    string
	payload map[string]any
}

// Context returns the context the transaction was started with.
func (t *Tx) Context() context.Context {
	return t.ctx
}

func (t *Tx) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

func (t *Tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

func (t *Tx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

// Setting reads a settings value. ok is false when the key is unset.
func (t *Tx) Setting(key string) (value string, ok bool, err error) {
	err = t.queryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, true, nil
}

// PutSetting inserts or replaces a settings value.
func (t *Tx) PutSetting(key, value string) error {
	_, err := t.exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}
