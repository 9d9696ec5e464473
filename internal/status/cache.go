package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// snapshotTTL bounds how stale a cached aggregate can get if the worker
// dies; readers fall back to the durable store after expiry.
const snapshotTTL = 2 * time.Hour

// Cache is the hot copy of the published aggregate the public endpoints
// read on every poll.
type Cache struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewCache wraps a Redis client as the snapshot cache.
func NewCache(client *redis.Client, tracer trace.Tracer) *Cache {
	if client == nil {
		panic("status: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("reception.internal.status.cache")
	}
	return &Cache{redis: client, tracer: tracer}
}

// Save caches the day's aggregate.
func (c *Cache) Save(ctx context.Context, snap Snapshot) error {
	ctx, span := c.tracer.Start(ctx, "status.save_snapshot")
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("status: failed to marshal snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey(snap.Date), data, snapshotTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("status: failed to cache snapshot: %w", err)
	}
	return nil
}

// Load returns the cached aggregate for a day, or nil on a miss.
func (c *Cache) Load(ctx context.Context, date string) (*Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "status.load_snapshot")
	defer span.End()

	data, err := c.redis.Get(ctx, snapshotKey(date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("status: failed to load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("status: failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

func snapshotKey(date string) string {
	return fmt.Sprintf("status:%s", date)
}
