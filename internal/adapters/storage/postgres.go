package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/crypto-digest/pkg/models"
)

// PostgresStore archives every digest in the daily_digests table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates new postgres store. The schema comes from database.RunMigrations.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

func (s *PostgresStore) Get(ctx context.Context, key string) (models.Digest, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT entries FROM daily_digests WHERE date_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query digest: %w", err)
	}

	var digest models.Digest
	if err := json.Unmarshal(raw, &digest); err != nil {
		return nil, fmt.Errorf("failed to decode digest row: %w", err)
	}
	return digest, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, digest models.Digest) error {
	raw, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_digests (date_key, entries, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (date_key) DO UPDATE SET
			entries = EXCLUDED.entries,
			updated_at = NOW()
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to upsert digest: %w", err)
	}
	return nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
