package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS ledger_kv (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	getValueSQL = `SELECT value FROM ledger_kv WHERE key = $1`
	setValueSQL = `INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    version = ledger_kv.version + 1,
    updated_at = now()`
)

// Store persists ledger collections in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, checks connectivity and creates the table if needed.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create ledger_kv table: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Get implements kv.Store
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, getValueSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, setValueSQL, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	slog.DebugContext(ctx, "Value saved to PostgreSQL", "key", key, "bytes", len(value))
	return nil
}
