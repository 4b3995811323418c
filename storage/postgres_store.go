package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"localeditor/database"
	"localeditor/utils"

	"go.uber.org/zap"
)

const (
	createStateTable = `CREATE TABLE IF NOT EXISTS editor_state (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectState = `SELECT value FROM editor_state WHERE key = $1`
	upsertState = `INSERT INTO editor_state (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteState = `DELETE FROM editor_state WHERE key = $1`
)

// PostgresStore keeps values in the editor_state table.
type PostgresStore struct {
	client *database.Client
}

// NewPostgresStore creates the table if needed.
func NewPostgresStore(ctx context.Context, client *database.Client) (*PostgresStore, error) {
	if _, err := client.DB().ExecContext(ctx, createStateTable); err != nil {
		return nil, fmt.Errorf("storage: create editor_state: %w", err)
	}
	return &PostgresStore{client: client}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.client.DB().QueryRowContext(ctx, selectState, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertState, key, value); err != nil {
			return fmt.Errorf("storage: set %s: %w", key, err)
		}
		if s.client.Debug() {
			utils.Logger.Debug("State saved", zap.String("key", key), zap.Int("bytes", len(value)))
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DB().ExecContext(ctx, deleteState, key); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}
