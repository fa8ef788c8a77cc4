package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// MySQLStore implements the KV contract on a MySQL kv_entries table.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore creates a MySQL-backed store. The kv_entries table is managed
// by the migrate command.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Put stores value under bucket/key, overwriting any previous entry.
func (m *MySQLStore) Put(ctx context.Context, bucket, key string, value []byte) error {
	query := `INSERT INTO kv_entries (bucket, k, v, updated_at)
			  VALUES (?, ?, ?, NOW())
			  ON DUPLICATE KEY UPDATE v = VALUES(v), updated_at = NOW()`

	_, err := m.db.ExecContext(ctx, query, bucket, key, value)
	if err != nil {
		return apperrors.Wrap(err, "failed to put entry")
	}
	return nil
}

// Get returns the entry stored under bucket/key.
func (m *MySQLStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	query := `SELECT v FROM kv_entries WHERE bucket = ? AND k = ?`

	var value []byte
	err := m.db.QueryRowContext(ctx, query, bucket, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get entry")
	}
	return value, nil
}

// Delete removes the entry stored under bucket/key.
func (m *MySQLStore) Delete(ctx context.Context, bucket, key string) error {
	query := `DELETE FROM kv_entries WHERE bucket = ? AND k = ?`

	result, err := m.db.ExecContext(ctx, query, bucket, key)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete entry")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// ForEach visits every entry in a bucket ordered by key.
func (m *MySQLStore) ForEach(
	ctx context.Context,
	bucket string,
	fn func(key string, value []byte) error,
) error {
	query := `SELECT k, v FROM kv_entries WHERE bucket = ? ORDER BY k ASC`

	rows, err := m.db.QueryContext(ctx, query, bucket)
	if err != nil {
		return apperrors.Wrap(err, "failed to list entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return apperrors.Wrap(err, "failed to scan entry")
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, "error iterating entries")
	}
	return nil
}

// Close releases the underlying connection pool.
func (m *MySQLStore) Close() error {
	return m.db.Close()
}
