// Package cache persists the last good snapshot in Redis so a restarted
// server can serve while the record store is slow or down. The cached copy is
// only ever a whole snapshot; partial snapshots are never written.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
)

const snapshotKey = "ecap:dashboard:snapshot"

// Redis is a SnapshotCache backed by a Redis instance.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis builds a snapshot cache with the given retention.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get returns the cached snapshot, or (nil, nil) on a miss or expiry.
func (c *Redis) Get(ctx context.Context) (*models.Snapshot, error) {
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}

// Set stores the snapshot with the configured TTL.
func (c *Redis) Set(ctx context.Context, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}
