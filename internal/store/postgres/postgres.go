package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context, storeID string) (*domain.Snapshot, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document
		FROM store_snapshots
		WHERE store_id = $1
	`, storeID).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return store.Decode(document)
}

// Save replaces the store's document. Concurrent writers resolve by last
// write wins.
func (s *Store) Save(ctx context.Context, storeID string, snapshot *domain.Snapshot) error {
	document, err := store.Encode(snapshot)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO store_snapshots (store_id, document, version, updated_at)
		VALUES ($1, $2::jsonb, 1, now())
		ON CONFLICT (store_id)
		DO UPDATE SET document = EXCLUDED.document,
		              version = store_snapshots.version + 1,
		              updated_at = now()
	`, storeID, string(document))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", storeID, err)
	}
	return nil
}
