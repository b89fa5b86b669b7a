// Package store persists tenants, synced resources and webhook events in
// Postgres. Resource writes are upserts keyed by the platform's external ID.
package store

import (
	"context"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store owns no connection lifecycle; the pool is opened and closed by main.
type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// sendBatch runs b inside one transaction, so a failed batch writes nothing.
func (s *Store) sendBatch(ctx context.Context, b *pgx.Batch) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
