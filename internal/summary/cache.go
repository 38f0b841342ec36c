package summary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel dashboards subscribe to instead of polling.
const Channel = "campusbus:summary"

const cacheKeyPrefix = "campusbus:summary:"

// Snapshot is the cached and published form of a day's table.
type Snapshot struct {
	Date string `json:"date"`
	Rows []Row  `json:"rows"`
}

// Cache keeps the latest summary per date in Redis and pushes updates to
// subscribers. Written by the worker after each ledger event.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a cache; ttl bounds how long stale dates linger.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

// Store writes the snapshot and notifies subscribers.
func (c *Cache) Store(ctx context.Context, date string, rows []Row) error {
	raw, err := json.Marshal(Snapshot{Date: date, Rows: rows})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+date, raw, c.ttl).Err(); err != nil {
		return err
	}
	return c.client.Publish(ctx, Channel, raw).Err()
}

// Get returns the cached snapshot for a date, false when absent.
func (c *Cache) Get(ctx context.Context, date string) (Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+date).Result()
	if err != nil {
		if err == redis.Nil {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}
