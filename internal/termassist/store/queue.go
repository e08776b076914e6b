package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bdobrica/termassist/internal/termassist/queue"
)

// ErrWrongType is returned by list operations on a key that holds a
// non-list value.
var ErrWrongType = errors.New("key holds a non-list value")

// The Store satisfies queue.ListStore with one row per list element. A list
// with no rows does not exist, so a drained queue reads back as KeyNone.

func (s *Store) KeyType(ctx context.Context, key string) (queue.KeyType, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_values WHERE key = ?", key).Scan(&n); err != nil {
		return queue.KeyNone, err
	}
	if n > 0 {
		return queue.KeyOther, nil
	}
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM queue_items WHERE key = ? LIMIT 1", key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return queue.KeyNone, nil
	}
	if err != nil {
		return queue.KeyNone, err
	}
	return queue.KeyList, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_items WHERE key = ?", key); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_values WHERE key = ?", key); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// PushTail appends all values in one transaction.
func (s *Store) PushTail(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_values WHERE key = ?", key).Scan(&n); err != nil {
		tx.Rollback()
		return err
	}
	if n > 0 {
		tx.Rollback()
		return ErrWrongType
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO queue_items (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, key, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert queue item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) PopHead(ctx context.Context, key string) (string, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	var (
		id    int64
		value string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, value FROM queue_items WHERE key = ? ORDER BY id LIMIT 1", key,
	).Scan(&id, &value)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return "", false, nil
	}
	if err != nil {
		tx.Rollback()
		return "", false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_items WHERE id = ?", id); err != nil {
		tx.Rollback()
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_items WHERE key = ?", key).Scan(&n)
	return n, err
}

// PutValue stores a non-list value under key, replacing any list there.
func (s *Store) PutValue(ctx context.Context, key, value string) error {
	if err := s.Delete(ctx, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_values (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

var _ queue.ListStore = (*Store)(nil)
