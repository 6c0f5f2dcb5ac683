package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith-99/streams/internal/repository"
)

// snapshotRow is the single row the workspace snapshot lives in.
const snapshotRow = 1

// SnapshotStore keeps the latest workspace snapshot in store_snapshots.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

var _ repository.SnapshotStore = (*SnapshotStore)(nil)

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO store_snapshots (id, body, saved_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET body = EXCLUDED.body, saved_at = EXCLUDED.saved_at`

	if _, err := s.pool.Exec(ctx, query, snapshotRow, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns nil, nil when nothing was saved yet.
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	query := `SELECT body FROM store_snapshots WHERE id = $1`

	var data []byte
	err := s.pool.QueryRow(ctx, query, snapshotRow).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}
