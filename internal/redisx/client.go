package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// StatusCache keeps the latest sync result of every tenant.
type StatusCache struct {
	R   *redis.Client
	TTL time.Duration
}

func (c *StatusCache) Save(ctx context.Context, tenantID int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl == 0 {
		ttl = TTLSyncStatus
	}
	return c.R.Set(ctx, fmt.Sprintf(KeySyncStatus, tenantID), b, ttl).Err()
}

// Load returns the cached result, or ok=false when none is stored.
func (c *StatusCache) Load(ctx context.Context, tenantID int64) (json.RawMessage, bool, error) {
	s, err := c.R.Get(ctx, fmt.Sprintf(KeySyncStatus, tenantID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(s), true, nil
}
