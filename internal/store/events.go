package store

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
)

// AppendEvent inserts e and returns its id. Events are never updated.
func (s *Store) AppendEvent(ctx context.Context, e shop.Event) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
		INSERT INTO events(tenant_id, event_type, payload)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id`, e.TenantID, e.EventType, string(e.Payload)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append event %s: %w", e.EventType, err)
	}
	return id, nil
}

func (s *Store) CountEvents(ctx context.Context, tenantID int64, eventType string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE tenant_id=$1 AND event_type=$2`, tenantID, eventType).Scan(&n)
	return n, err
}
