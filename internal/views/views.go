package views

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"estate-marketplace/internal/database"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "listing:views:"

// Counter accumulates listing view counts. With Redis configured the hot
// path is a single INCR and deltas are flushed into the store on a timer;
// without Redis every view goes straight to the store. Flushes only ever
// add, so the stored counter is monotonic either way.
type Counter struct {
	store database.Store
	rdb   *redis.Client
	ctx   context.Context
}

// NewCounter creates a store-only counter.
func NewCounter(store database.Store) *Counter {
	return &Counter{store: store, ctx: context.Background()}
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(store database.Store, host, port, password string, db int) (*Counter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Views: connected to Redis")
	return &Counter{store: store, rdb: rdb, ctx: ctx}, nil
}

// Bump records one view of the listing.
func (c *Counter) Bump(listingID string) {
	if c.rdb != nil {
		if err := c.rdb.Incr(c.ctx, keyPrefix+listingID).Err(); err != nil {
			log.Printf("Views: redis incr failed for %s: %v", listingID, err)
		}
		return
	}
	if err := c.store.AddListingViews(listingID, 1); err != nil {
		log.Printf("Views: failed to bump views for %s: %v", listingID, err)
	}
}

// Flush drains the pending Redis deltas into the store. A delta that fails
// to apply is pushed back so it is retried on the next tick.
func (c *Counter) Flush() error {
	if c.rdb == nil {
		return nil
	}

	keys, err := c.rdb.Keys(c.ctx, keyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to list view counter keys: %w", err)
	}

	flushed := 0
	for _, key := range keys {
		val, err := c.rdb.GetDel(c.ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			log.Printf("Views: failed to drain %s: %v", key, err)
			continue
		}
		delta, err := strconv.ParseInt(val, 10, 64)
		if err != nil || delta <= 0 {
			continue
		}

		listingID := strings.TrimPrefix(key, keyPrefix)
		if err := c.store.AddListingViews(listingID, delta); err != nil {
			log.Printf("Views: failed to flush %d views for %s, requeueing: %v", delta, listingID, err)
			c.rdb.IncrBy(c.ctx, key, delta)
			continue
		}
		flushed++
	}

	if flushed > 0 {
		log.Printf("Views: flushed counters for %d listings", flushed)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Counter) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
